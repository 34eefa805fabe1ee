package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// header is the fixed column order of the durable record.
var header = []string{
	"key", "word", "definition", "example", "notes", "tags",
	"created_at", "word_audio", "definition_audio", "example_audio",
}

// Store reads and replaces the durable CSV record.
type Store struct {
	path string
}

// NewStore creates a Store over the given file path. The file need not exist
// yet; a missing file reads as an empty ledger.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the durable record.
func (s *Store) Path() string { return s.path }

// Load reads every entry from the durable record.
func (s *Store) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !equalRow(rows[0], header) {
		return nil, fmt.Errorf("ledger: %s has unexpected header %v", s.path, rows[0])
	}

	entries := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("ledger: row %d has %d columns, want %d", i+2, len(row), len(header))
		}
		createdAt, err := time.Parse(time.RFC3339, row[6])
		if err != nil {
			return nil, fmt.Errorf("ledger: row %d: bad created_at %q: %w", i+2, row[6], err)
		}
		entries = append(entries, Entry{
			Key:             row[0],
			Word:            row[1],
			Definition:      row[2],
			Example:         row[3],
			Notes:           row[4],
			Tags:            splitTags(row[5]),
			CreatedAt:       createdAt,
			WordAudio:       row[7],
			DefinitionAudio: row[8],
			ExampleAudio:    row[9],
		})
	}
	return entries, nil
}

// Replace persists the full record in one atomic rewrite: the entries are
// written to a temporary file in the same directory and renamed over the old
// record. There is no incremental append path.
func (s *Store) Replace(entries []Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ledger: ensure dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "ledger-*.csv")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("ledger: write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Key, e.Word, e.Definition, e.Example, e.Notes,
			strings.Join(e.Tags, " "),
			e.CreatedAt.Format(time.RFC3339),
			e.WordAudio, e.DefinitionAudio, e.ExampleAudio,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("ledger: write row for %q: %w", e.Key, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("ledger: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("ledger: replace %s: %w", s.path, err)
	}
	return nil
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
