// Package services holds the write-side batch workflow and the read-side
// query operations composing the ledger with the external card store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lexideck/lexideck/internal/anki"
	"github.com/lexideck/lexideck/internal/ledger"
)

// NoteStore is the slice of the external store the sync workflow needs.
type NoteStore interface {
	AddNote(ctx context.Context, fields map[string]string, tags []string) (int64, error)
}

// AudioCache derives and caches pronunciation audio for a text under a
// logical key and role.
type AudioCache interface {
	Ensure(ctx context.Context, text, key, role string) (string, error)
}

// LedgerStore reads and atomically replaces the durable record.
type LedgerStore interface {
	Load() ([]ledger.Entry, error)
	Replace(entries []ledger.Entry) error
}

// NewWord is one requested vocabulary entry, pre-acceptance.
type NewWord struct {
	Word       string   `validate:"required,headword"`
	Definition string   `validate:"required"`
	Example    string   `validate:"omitempty"`
	Notes      string   `validate:"omitempty"`
	Tags       []string `validate:"omitempty,dive,max=64"`
}

// WordFailure names one entry that did not make it into the ledger.
type WordFailure struct {
	Word string
	Err  error
}

// AddReport is the per-batch success/failure breakdown.
type AddReport struct {
	Added  []ledger.Entry
	Failed []WordFailure
}

// Summary renders the caller-facing outcome. A batch of one gets singular
// phrasing; this affects presentation only, never persisted data.
func (r *AddReport) Summary() string {
	total := len(r.Added) + len(r.Failed)
	if total == 1 {
		if len(r.Added) == 1 {
			return fmt.Sprintf("Added %q to the vocabulary ledger.", r.Added[0].Word)
		}
		return fmt.Sprintf("Failed to add %q: %v.", r.Failed[0].Word, r.Failed[0].Err)
	}
	return fmt.Sprintf("Added %d of %d words (%d failed).", len(r.Added), total, len(r.Failed))
}

// headwordPattern is the allowed-character policy for headwords: letters,
// spaces, hyphens and apostrophes. Digits and punctuation are rejected.
var headwordPattern = regexp.MustCompile(`^[a-zA-Z]+(?:[ '\-][a-zA-Z]+)*$`)

// SyncService drives the per-entry workflow across a batch: validate,
// synthesize audio, mirror to the external store, then commit all staged
// successes to the ledger in a single atomic rewrite.
type SyncService struct {
	store    LedgerStore
	notes    NoteStore
	cache    AudioCache
	validate *validator.Validate
	fanOut   int
	logger   *slog.Logger
	now      func() time.Time
}

// NewSyncService creates a SyncService with the given fan-out width. A
// non-positive width falls back to 3.
func NewSyncService(store LedgerStore, notes NoteStore, cache AudioCache, fanOut int, logger *slog.Logger) *SyncService {
	if fanOut <= 0 {
		fanOut = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	// Registration only fails for an empty tag name.
	_ = v.RegisterValidation("headword", func(fl validator.FieldLevel) bool {
		return headwordPattern.MatchString(fl.Field().String())
	})
	return &SyncService{
		store:    store,
		notes:    notes,
		cache:    cache,
		validate: v,
		fanOut:   fanOut,
		logger:   logger,
		now:      time.Now,
	}
}

type entryResult struct {
	entry ledger.Entry
	err   error
}

// AddWords runs the batch. Per-entry failures land in the report's Failed
// list and never abort the batch; a ledger read or write failure is fatal to
// the whole call because the record can no longer be merged safely. The
// durable record is written exactly once, after every entry resolves, so a
// crash mid-batch loses only in-flight progress.
func (s *SyncService) AddWords(ctx context.Context, words []NewWord) (*AddReport, error) {
	results := make([]entryResult, len(words))

	// Entries run concurrently up to the fan-out width; chunks are
	// sequential to respect downstream rate limits.
	for start := 0; start < len(words); start += s.fanOut {
		end := start + s.fanOut
		if end > len(words) {
			end = len(words)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.processWord(ctx, words[i])
			}(i)
		}
		wg.Wait()
	}

	report := &AddReport{}
	for i, res := range results {
		if res.err != nil {
			s.logger.Warn("word failed", "word", words[i].Word, "error", res.err)
			report.Failed = append(report.Failed, WordFailure{Word: words[i].Word, Err: res.err})
			continue
		}
		report.Added = append(report.Added, res.entry)
	}

	if len(report.Added) > 0 {
		existing, err := s.store.Load()
		if err != nil {
			return nil, err
		}
		merged := ledger.Merge(existing, report.Added)
		if err := s.store.Replace(merged); err != nil {
			return nil, err
		}
	}

	s.logger.Info("batch complete", "added", len(report.Added), "failed", len(report.Failed))
	return report, nil
}

// processWord runs the full workflow for a single entry.
func (s *SyncService) processWord(ctx context.Context, w NewWord) entryResult {
	if err := s.validate.Struct(w); err != nil {
		return entryResult{err: fmt.Errorf("validation: %w", err)}
	}

	key := ledger.NormalizeKey(w.Word)

	audio, err := s.synthesizeAll(ctx, w, key)
	if err != nil {
		return entryResult{err: err}
	}

	fields := map[string]string{
		"Word":            w.Word,
		"WordAudio":       sound(audio.word),
		"Definition":      w.Definition,
		"DefinitionAudio": sound(audio.definition),
		"Example":         w.Example,
		"ExampleAudio":    sound(audio.example),
		"Notes":           w.Notes,
	}
	if _, err := s.notes.AddNote(ctx, fields, w.Tags); err != nil {
		return entryResult{err: err}
	}

	return entryResult{entry: ledger.Entry{
		Key:             key,
		Word:            w.Word,
		Definition:      w.Definition,
		Example:         w.Example,
		Notes:           w.Notes,
		Tags:            w.Tags,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
		WordAudio:       audio.word,
		DefinitionAudio: audio.definition,
		ExampleAudio:    audio.example,
	}}
}

type entryAudio struct {
	word       string
	definition string
	example    string
}

// synthesizeAll renders the word, definition and optional example audio
// concurrently within the entry and awaits them jointly.
func (s *SyncService) synthesizeAll(ctx context.Context, w NewWord, key string) (entryAudio, error) {
	var (
		audio entryAudio
		errs  [3]error
		wg    sync.WaitGroup
	)

	run := func(dst *string, errSlot *error, text, role string) {
		defer wg.Done()
		*dst, *errSlot = s.cache.Ensure(ctx, text, key, role)
	}

	wg.Add(2)
	go run(&audio.word, &errs[0], w.Word, "word")
	go run(&audio.definition, &errs[1], w.Definition, "definition")
	if w.Example != "" {
		wg.Add(1)
		go run(&audio.example, &errs[2], w.Example, "example")
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return entryAudio{}, err
		}
	}
	return audio, nil
}

// sound formats a media filename as an embedded Anki sound reference.
func sound(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", filename)
}

// IsDuplicate reports whether a word failure was caused by the external
// store already holding an equivalent note.
func IsDuplicate(f WordFailure) bool {
	return f.Err != nil && errors.Is(f.Err, anki.ErrDuplicateNote)
}
