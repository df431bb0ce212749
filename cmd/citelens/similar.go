package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmy/citelens/internal/source"
)

func newSimilarCommand() *cobra.Command {
	var (
		embeddingsPath string
		topK           int
	)
	cmd := &cobra.Command{
		Use:   "similar <query>",
		Short: "Rank the pages of an embeddings file by similarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.RequireClient()
			if err != nil {
				return err
			}
			bundle, err := source.ReadEmbeddings(embeddingsPath)
			if err != nil {
				return err
			}
			query, err := client.Embed(ctx, args[0], false)
			if err != nil {
				return err
			}

			candidates := make([][]float32, len(bundle.ContentEmbeddings))
			for i, item := range bundle.ContentEmbeddings {
				candidates[i] = item.Embedding
			}
			for _, m := range client.MostSimilar(query.Embedding, candidates, topK) {
				item := bundle.ContentEmbeddings[m.Index]
				fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %s  %s\n", m.Score, item.URL, item.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&embeddingsPath, "embeddings", "e", "", "Embeddings file written by generate")
	cmd.Flags().IntVarP(&topK, "top", "k", 10, "Number of pages to show")
	_ = cmd.MarkFlagRequired("embeddings")
	return cmd
}
