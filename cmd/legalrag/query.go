package main

import (
	"context"
	"fmt"
	"strings"

	"legalrag-backend/app"
	"legalrag-backend/service"

	"github.com/spf13/cobra"
)

var (
	queryK        int
	retrievalOnly bool
	citeNoCiting  bool
)

func init() {
	for _, c := range []*cobra.Command{queryCmd, citeCmd, statsCmd} {
		c.Flags().StringSliceVar(&collections, "collections", nil, "collections to search (default: all)")
	}
	queryCmd.Flags().IntVar(&queryK, "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&retrievalOnly, "retrieval-only", false, "print sources without generating an answer")
	citeCmd.Flags().BoolVar(&citeNoCiting, "no-citing", false, "skip the list of citing documents")
}

// queryCmd answers a question from the index
var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the index",
	Long: `Route a question to the case-number, entity or semantic retrieval path and,
when generation is configured, answer it from the retrieved decisions.

Examples:
  legalrag query "What happened in case 24F-H036-REL?"
  legalrag query "violations of A.R.S. § 32-2153" --collections adre --retrieval-only`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			answer := !retrievalOnly
			if answer && a.Gemini == nil {
				a.Logger.Warn("no Gemini API key configured, printing sources only")
				answer = false
			}
			resp, err := a.Query.Ask(ctx, service.QueryRequest{
				Question:           strings.Join(args, " "),
				Collections:        collections,
				K:                  queryK,
				AuthorityHierarchy: true,
				IncludeAnswer:      answer,
				ResolveCitations:   answer,
			})
			if err != nil {
				return err
			}
			if resp.Answer != "" {
				fmt.Println(resp.Answer)
				fmt.Println()
			}
			fmt.Printf("Query type: %s, path: %s, %d sources (%d primary)\n",
				resp.QueryType, resp.Path, resp.TotalSources, resp.PrimaryAuthorities)
			for i, src := range resp.Sources {
				marker := ""
				if src.IsPrimaryAuthority {
					marker = " [primary]"
				}
				fmt.Printf("  %d. %s/%s %s %s%s\n", i+1, src.Collection, src.Filename,
					src.CaseNumber, src.DocumentType, marker)
			}
			for _, w := range resp.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			return nil
		})
	},
}

// citeCmd looks up a statute or regulation
var citeCmd = &cobra.Command{
	Use:   "cite <citation>",
	Short: "Find the document for a citation and the documents citing it",
	Long: `Resolve a citation such as "A.R.S. § 32-2153" or "A.A.C. R4-28-1101" to the
highest-authority document containing it.

Examples:
  legalrag cite "A.R.S. § 32-2153"
  legalrag cite "R4-28-1101" --collections oah --no-citing`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			lookup, err := a.Query.LookupCitation(ctx, strings.Join(args, " "), collections, !citeNoCiting)
			if err != nil {
				return err
			}
			return printJSON(lookup)
		})
	},
}

// statsCmd summarizes the extracted metadata
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus statistics",
	Long: `Print document counts by collection, document type, ruling and violation type.

Examples:
  legalrag stats
  legalrag stats --collections adre`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			stats, err := a.Query.Statistics(ctx, collections)
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}
