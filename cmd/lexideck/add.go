package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexideck/lexideck/internal/services"
)

func newAddCmd() *cobra.Command {
	var (
		definition string
		example    string
		notes      string
		tags       []string
		filePath   string
	)

	cmd := &cobra.Command{
		Use:   "add [word]",
		Short: "Add vocabulary words to the ledger and Anki",
		Long: `Add one word via flags, or a batch of tab-separated lines
(word, definition, example, notes) from a file or stdin with --file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var words []services.NewWord

			switch {
			case filePath != "":
				batch, err := readBatch(cmd, filePath)
				if err != nil {
					return err
				}
				words = batch
			case len(args) == 1:
				if definition == "" {
					return fmt.Errorf("--definition is required when adding a single word")
				}
				words = []services.NewWord{{
					Word:       args[0],
					Definition: definition,
					Example:    example,
					Notes:      notes,
					Tags:       tags,
				}}
			default:
				return fmt.Errorf("provide a word argument or --file")
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			report, err := a.sync.AddWords(context.Background(), words)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			for _, f := range report.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", f.Word, f.Err)
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d word(s) failed", len(report.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&definition, "definition", "d", "", "Definition of the word")
	cmd.Flags().StringVarP(&example, "example", "e", "", "Example sentence")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Usage notes")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read tab-separated entries from file, or - for stdin")

	return cmd
}

// readBatch parses tab-separated entries: word, definition, then optional
// example and notes columns. Blank lines and #-comments are skipped.
func readBatch(cmd *cobra.Command, path string) ([]services.NewWord, error) {
	var reader io.Reader
	if path == "-" {
		reader = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}

	var words []services.NewWord
	scanner := bufio.NewScanner(reader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return nil, fmt.Errorf("line %d: expected at least word and definition columns", lineNo)
		}
		w := services.NewWord{
			Word:       strings.TrimSpace(cols[0]),
			Definition: strings.TrimSpace(cols[1]),
		}
		if len(cols) > 2 {
			w.Example = strings.TrimSpace(cols[2])
		}
		if len(cols) > 3 {
			w.Notes = strings.TrimSpace(cols[3])
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no entries found in %s", path)
	}
	return words, nil
}
