// Package ledger maintains the canonical deduplicated vocabulary record. The
// on-disk form is a flat CSV file replaced wholesale on every write, so a
// reader never observes a half-written record.
package ledger

import (
	"strings"
	"time"
)

// Entry is one logical vocabulary item. Entries are immutable once created;
// a merge replaces whole records, never individual fields.
type Entry struct {
	Key             string
	Word            string
	Definition      string
	Example         string
	Notes           string
	Tags            []string
	CreatedAt       time.Time
	WordAudio       string
	DefinitionAudio string
	ExampleAudio    string
}

// NormalizeKey derives the merge identity of a headword: lowercased with
// runs of whitespace collapsed to single spaces.
func NormalizeKey(word string) string {
	return strings.ToLower(strings.Join(strings.Fields(word), " "))
}

// Merge folds staged entries into the existing record using last-write-wins
// by key: when two entries share a key, the one with the later CreatedAt
// survives and the other is discarded entirely. Staged entries come first in
// the result, so equal-key ties read back most-recently-added first.
func Merge(existing, staged []Entry) []Entry {
	byKey := make(map[string]int)
	merged := make([]Entry, 0, len(existing)+len(staged))

	keep := func(e Entry) {
		if i, ok := byKey[e.Key]; ok {
			if e.CreatedAt.After(merged[i].CreatedAt) {
				merged[i] = e
			}
			return
		}
		byKey[e.Key] = len(merged)
		merged = append(merged, e)
	}

	for _, e := range staged {
		keep(e)
	}
	for _, e := range existing {
		keep(e)
	}
	return merged
}
