package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		outputDir string
		skip      []string
		upload    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <embeddings.json>",
		Short: "Run the embedding analyses and write the optimization report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if outputDir != "" {
				a.Config.Analysis.OutputDir = outputDir
			}
			a.Config.Analysis.Skip = append(a.Config.Analysis.Skip, skip...)
			if cmd.Flags().Changed("upload") {
				a.Config.Analysis.Upload = upload
			}

			job, err := a.NewAnalysisJob()
			if err != nil {
				return err
			}
			out, err := job.Run(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %s: %d pages, %d keywords\n", out.Run.ID, out.Run.ContentCount, out.Run.KeywordCount)
			for _, f := range out.Files {
				fmt.Fprintf(w, "  %s\n", f.Path)
			}
			keys := make([]string, 0, len(out.URLs))
			for k := range out.URLs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  uploaded %s: %s\n", k, out.URLs[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report directory (default: analysis.output_dir)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Analyses to skip: clustering, completeness, answers, entities, citations, rag")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the report to object storage")
	return cmd
}
