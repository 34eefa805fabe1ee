package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lexideck/lexideck/internal/anki"
	"github.com/lexideck/lexideck/internal/ledger"
)

// CardStore is the read-only slice of the external store the query side
// needs.
type CardStore interface {
	FindCards(ctx context.Context) ([]int64, error)
	CardsInfo(ctx context.Context, ids []int64) ([]anki.CardInfo, error)
	NotesInfo(ctx context.Context, ids []int64) ([]anki.NoteInfo, error)
}

// WordOverview joins one card's review statistics with its note fields.
type WordOverview struct {
	CardID     int64
	Word       string
	Definition string
	Reps       int
	Lapses     int
	Interval   int
	Due        int64
}

// SearchResult is one ledger entry matched by a search, with any live
// statistics found for it.
type SearchResult struct {
	Entry ledger.Entry
	Score int
	Stats *anki.CardInfo
}

// Sort orders accepted by ListWords.
const (
	SortInterval = "interval" // ascending: least familiar first
	SortReps     = "reps"     // descending: most recently active first
	SortAccuracy = "accuracy" // ascending: most in need of review first
	SortRecent   = "recent"   // descending card id: most recently created first
	SortLapses   = "lapses"   // descending: most forgotten first
)

// QueryService composes read-only views over the ledger and the external
// store. It never mutates either.
type QueryService struct {
	store LedgerStore
	cards CardStore
}

// NewQueryService creates a QueryService.
func NewQueryService(store LedgerStore, cards CardStore) *QueryService {
	return &QueryService{store: store, cards: cards}
}

// accuracy scores a card for the accuracy ordering. Zero repetitions means
// the accuracy is undefined, which sorts as most in need of review.
func accuracy(c anki.CardInfo) float64 {
	if c.Reps == 0 {
		return -1
	}
	return float64(c.Reps-c.Lapses) / float64(c.Reps)
}

// ListWords fetches all cards in the configured scope, sorts their review
// statistics by the requested ordering, truncates to limit, then joins the
// survivors to their note fields. A non-positive limit means no truncation.
func (s *QueryService) ListWords(ctx context.Context, sortBy string, limit int) ([]WordOverview, error) {
	ids, err := s.cards.FindCards(ctx)
	if err != nil {
		return nil, err
	}
	infos, err := s.cards.CardsInfo(ctx, ids)
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case SortInterval:
		sort.SliceStable(infos, func(i, j int) bool { return infos[i].Interval < infos[j].Interval })
	case SortReps:
		sort.SliceStable(infos, func(i, j int) bool { return infos[i].Reps > infos[j].Reps })
	case SortAccuracy:
		sort.SliceStable(infos, func(i, j int) bool { return accuracy(infos[i]) < accuracy(infos[j]) })
	case SortRecent:
		sort.SliceStable(infos, func(i, j int) bool { return infos[i].CardID > infos[j].CardID })
	case SortLapses:
		sort.SliceStable(infos, func(i, j int) bool { return infos[i].Lapses > infos[j].Lapses })
	default:
		return nil, fmt.Errorf("unknown sort order %q", sortBy)
	}

	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}

	noteIDs := make([]int64, 0, len(infos))
	for _, c := range infos {
		noteIDs = append(noteIDs, c.NoteID)
	}
	notes, err := s.cards.NotesInfo(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	byNote := make(map[int64]anki.NoteInfo, len(notes))
	for _, n := range notes {
		byNote[n.NoteID] = n
	}

	overviews := make([]WordOverview, 0, len(infos))
	for _, c := range infos {
		note := byNote[c.NoteID]
		overviews = append(overviews, WordOverview{
			CardID:     c.CardID,
			Word:       note.Field("Word"),
			Definition: note.Field("Definition"),
			Reps:       c.Reps,
			Lapses:     c.Lapses,
			Interval:   c.Interval,
			Due:        c.Due,
		})
	}
	return overviews, nil
}

// Relevance weights, strictly descending.
const (
	scoreExact        = 100
	scorePrefix       = 80
	scoreSubstring    = 60
	scoreDefWord      = 40
	scoreDefSubstring = 20
)

// relevance scores how well an entry matches a normalized query, or 0 for no
// match.
func relevance(e ledger.Entry, query string) int {
	word := strings.ToLower(e.Word)
	def := strings.ToLower(e.Definition)

	switch {
	case word == query:
		return scoreExact
	case strings.HasPrefix(word, query):
		return scorePrefix
	case strings.Contains(word, query):
		return scoreSubstring
	}
	for _, w := range strings.Fields(def) {
		if strings.Trim(w, ".,;:!?\"'()") == query {
			return scoreDefWord
		}
	}
	if strings.Contains(def, query) {
		return scoreDefSubstring
	}
	return 0
}

// SearchWords filters the ledger by case-insensitive substring match on word
// or definition, cross-references live statistics for the matched subset,
// and returns results by descending relevance, truncated to limit.
func (s *QueryService) SearchWords(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	entries, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var results []SearchResult
	for _, e := range entries {
		if score := relevance(e, q); score > 0 {
			results = append(results, SearchResult{Entry: e, Score: score})
		}
	}
	if len(results) == 0 {
		return nil, nil
	}

	stats, err := s.statsByWord(ctx)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if info, ok := stats[ledger.NormalizeKey(results[i].Entry.Word)]; ok {
			c := info
			results[i].Stats = &c
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// statsByWord indexes the scope's live card statistics by normalized
// headword.
func (s *QueryService) statsByWord(ctx context.Context) (map[string]anki.CardInfo, error) {
	ids, err := s.cards.FindCards(ctx)
	if err != nil {
		return nil, err
	}
	infos, err := s.cards.CardsInfo(ctx, ids)
	if err != nil {
		return nil, err
	}
	noteIDs := make([]int64, 0, len(infos))
	for _, c := range infos {
		noteIDs = append(noteIDs, c.NoteID)
	}
	notes, err := s.cards.NotesInfo(ctx, noteIDs)
	if err != nil {
		return nil, err
	}

	wordByNote := make(map[int64]string, len(notes))
	for _, n := range notes {
		wordByNote[n.NoteID] = ledger.NormalizeKey(n.Field("Word"))
	}
	byWord := make(map[string]anki.CardInfo, len(infos))
	for _, c := range infos {
		if word, ok := wordByNote[c.NoteID]; ok {
			byWord[word] = c
		}
	}
	return byWord, nil
}
