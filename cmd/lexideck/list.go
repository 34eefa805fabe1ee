package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lexideck/lexideck/internal/services"
)

func newListCmd() *cobra.Command {
	var (
		sortBy string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vocabulary cards with review statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			words, err := a.query.ListWords(context.Background(), sortBy, limit)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(words)
			case "table":
				renderWordTable(cmd, words)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&sortBy, "sort", "s", services.SortInterval, "Sort order: interval, reps, accuracy, recent or lapses")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of cards to show (0 for all)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func renderWordTable(cmd *cobra.Command, words []services.WordOverview) {
	if len(words) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cards found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Word", "Definition", "Reps", "Lapses", "Interval"})
	for _, w := range words {
		t.AppendRow(table.Row{w.Word, w.Definition, w.Reps, w.Lapses, w.Interval})
	}
	t.Render()
}
