package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lexideck/lexideck/internal/services"
)

func newSearchCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vocabulary ledger by word or definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			results, err := a.query.SearchWords(context.Background(), args[0], limit)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			case "table":
				renderSearchTable(cmd, results)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of results (0 for all)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func renderSearchTable(cmd *cobra.Command, results []services.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matches found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Word", "Definition", "Score", "Reps", "Lapses"})
	for _, r := range results {
		reps, lapses := "-", "-"
		if r.Stats != nil {
			reps = fmt.Sprintf("%d", r.Stats.Reps)
			lapses = fmt.Sprintf("%d", r.Stats.Lapses)
		}
		t.AppendRow(table.Row{r.Entry.Word, r.Entry.Definition, r.Score, reps, lapses})
	}
	t.Render()
}
