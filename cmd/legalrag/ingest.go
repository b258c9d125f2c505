package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"legalrag-backend/app"

	"github.com/spf13/cobra"
)

var ingestCollection string

func init() {
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "target collection (e.g. adre, oah)")
	_ = ingestCmd.MarkFlagRequired("collection")
}

// ingestCmd indexes every text file in a directory
var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Ingest a directory of decision text files",
	Long: `Extract metadata from every .txt, .text and .md file in a directory, chunk and
embed it, and add it to a collection. Documents already ingested are skipped.

Examples:
  legalrag ingest ./data/adre --collection adre
  legalrag ingest ./data/oah --collection oah --config config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			report, err := a.Ingest.IngestDirectory(ctx, ingestCollection, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Collection %s: %d processed, %d skipped, %d failed, %d chunks\n",
				report.Collection, report.Processed, report.Skipped, report.Failed, report.TotalChunks)
			for _, name := range slices.Sorted(maps.Keys(report.DocumentTypes)) {
				fmt.Printf("  %-20s %d\n", name, report.DocumentTypes[name])
			}
			for _, file := range slices.Sorted(maps.Keys(report.Errors)) {
				fmt.Printf("  failed %s: %s\n", file, report.Errors[file])
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d documents failed", report.Failed)
			}
			return nil
		})
	},
}
