package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmy/citelens/internal/service"
	"github.com/timmy/citelens/internal/source/csvsource"
)

func newGenerateCommand() *cobra.Command {
	var (
		contentPath  string
		keywordsPath string
		outputDir    string
		index        bool
		skipCache    bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Embed site content and keywords into an embeddings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.NewGenerateService(index)
			if err != nil {
				return err
			}
			stats, err := svc.Generate(ctx, csvsource.NewAdapter(contentPath, keywordsPath), service.GenerateOptions{
				OutputDir: outputDir,
				SkipCache: skipCache,
			})
			if err != nil {
				return err
			}

			usage, err := a.Client.Usage(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %d keywords)\n", stats.Path, stats.ContentCount, stats.KeywordCount)
			if index {
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d pages\n", stats.Indexed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API calls: %d, cache hits: %d, tokens: %d, estimated cost: %s\n",
				usage.APICalls, usage.CacheHits, usage.TokensUsed, usage.EstimatedCost)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentPath, "content", "", "Content CSV file")
	cmd.Flags().StringVar(&keywordsPath, "keywords", "", "Keywords CSV file (default: keywords extracted from the content file)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./data", "Directory for the embeddings file")
	cmd.Flags().BoolVar(&index, "index", false, "Upsert page vectors into the Qdrant site index")
	cmd.Flags().BoolVar(&skipCache, "skip-cache", false, "Ignore cached embeddings")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}
