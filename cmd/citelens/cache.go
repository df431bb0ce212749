package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the embedding cache",
	}
	cmd.AddCommand(newCacheStatsCommand(), newCacheClearCommand(), newCachePruneCommand())
	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached embeddings, optionally for one model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.Cache.Clear(cmd.Context(), model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d embeddings\n", deleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Only clear embeddings of this model")
	return cmd
}

func newCachePruneCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete embeddings not accessed in the given number of days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.Cache.Prune(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d embeddings older than %d days\n", deleted, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Age in days since last access")
	return cmd
}
