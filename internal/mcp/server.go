// Package mcp exposes the sync core as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexideck/lexideck/internal/audio"
	"github.com/lexideck/lexideck/internal/services"
)

// Server wraps the MCP server with the lexideck tool set.
type Server struct {
	server *mcp.Server
	sync   *services.SyncService
	query  *services.QueryService
	cache  *audio.Cache
	logger *slog.Logger
}

// NewServer creates an MCP server over the given services.
func NewServer(sync *services.SyncService, query *services.QueryService, cache *audio.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "lexideck",
		Version: "0.1.0",
	}, nil)

	s := &Server{
		server: mcpServer,
		sync:   sync,
		query:  query,
		cache:  cache,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Run serves the tools over stdio until the transport closes, then runs a
// best-effort audio cache reconciliation before returning.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &mcp.StdioTransport{})

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if removed, cleanupErr := s.cache.Cleanup(cleanupCtx); cleanupErr != nil {
		s.logger.Warn("audio cache cleanup failed", "error", cleanupErr)
	} else if removed > 0 {
		s.logger.Info("audio cache reconciled on shutdown", "removed", removed)
	}

	return err
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lexideck_add_words",
		Description: "Add vocabulary words to the ledger and mirror them into Anki with pronunciation audio",
	}, s.handleAddWords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lexideck_list_words",
		Description: "List vocabulary cards with review statistics, sorted by familiarity, activity, accuracy, recency or lapses",
	}, s.handleListWords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lexideck_search_words",
		Description: "Search the vocabulary ledger by word or definition",
	}, s.handleSearchWords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lexideck_cleanup_audio",
		Description: "Remove locally cached audio files that no longer back any Anki card",
	}, s.handleCleanupAudio)
}

// Input/Output types for each tool

type WordInput struct {
	Word       string   `json:"word" jsonschema:"required,description=The word or phrase to add"`
	Definition string   `json:"definition" jsonschema:"required,description=The definition"`
	Example    *string  `json:"example,omitempty" jsonschema:"description=Optional example sentence"`
	Notes      *string  `json:"notes,omitempty" jsonschema:"description=Optional usage notes"`
	Tags       []string `json:"tags,omitempty" jsonschema:"description=Optional tags"`
}

type AddWordsInput struct {
	Words []WordInput `json:"words" jsonschema:"required,description=The entries to add"`
}

type FailedWord struct {
	Word  string `json:"word"`
	Error string `json:"error"`
}

type AddWordsOutput struct {
	Message string       `json:"message"`
	Added   []string     `json:"added"`
	Failed  []FailedWord `json:"failed,omitempty"`
}

type ListWordsInput struct {
	SortBy *string `json:"sortBy,omitempty" jsonschema:"enum=interval;reps;accuracy;recent;lapses,description=Sort order (default interval)"`
	Limit  *int    `json:"limit,omitempty" jsonschema:"description=Maximum number of cards to return (default 20)"`
}

type ListedWord struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Reps       int    `json:"reps"`
	Lapses     int    `json:"lapses"`
	Interval   int    `json:"interval"`
}

type ListWordsOutput struct {
	Words []ListedWord `json:"words"`
}

type SearchWordsInput struct {
	Query string `json:"query" jsonschema:"required,description=Text to match against words and definitions"`
	Limit *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of results (default 10)"`
}

type SearchedWord struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Score      int    `json:"score"`
	Reps       *int   `json:"reps,omitempty"`
	Lapses     *int   `json:"lapses,omitempty"`
}

type SearchWordsOutput struct {
	Results []SearchedWord `json:"results"`
}

type CleanupAudioInput struct{}

type CleanupAudioOutput struct {
	Removed int `json:"removed"`
}

// Tool handlers

func (s *Server) handleAddWords(ctx context.Context, req *mcp.CallToolRequest, input AddWordsInput) (*mcp.CallToolResult, AddWordsOutput, error) {
	words := make([]services.NewWord, 0, len(input.Words))
	for _, w := range input.Words {
		nw := services.NewWord{
			Word:       w.Word,
			Definition: w.Definition,
			Tags:       w.Tags,
		}
		if w.Example != nil {
			nw.Example = *w.Example
		}
		if w.Notes != nil {
			nw.Notes = *w.Notes
		}
		words = append(words, nw)
	}

	report, err := s.sync.AddWords(ctx, words)
	if err != nil {
		return nil, AddWordsOutput{}, err
	}

	out := AddWordsOutput{Message: report.Summary()}
	for _, e := range report.Added {
		out.Added = append(out.Added, e.Word)
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, FailedWord{Word: f.Word, Error: f.Err.Error()})
	}
	return nil, out, nil
}

func (s *Server) handleListWords(ctx context.Context, req *mcp.CallToolRequest, input ListWordsInput) (*mcp.CallToolResult, ListWordsOutput, error) {
	sortBy := services.SortInterval
	if input.SortBy != nil {
		sortBy = *input.SortBy
	}
	limit := 20
	if input.Limit != nil {
		limit = *input.Limit
	}

	words, err := s.query.ListWords(ctx, sortBy, limit)
	if err != nil {
		return nil, ListWordsOutput{}, err
	}

	out := ListWordsOutput{Words: make([]ListedWord, 0, len(words))}
	for _, w := range words {
		out.Words = append(out.Words, ListedWord{
			Word:       w.Word,
			Definition: w.Definition,
			Reps:       w.Reps,
			Lapses:     w.Lapses,
			Interval:   w.Interval,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSearchWords(ctx context.Context, req *mcp.CallToolRequest, input SearchWordsInput) (*mcp.CallToolResult, SearchWordsOutput, error) {
	limit := 10
	if input.Limit != nil {
		limit = *input.Limit
	}

	results, err := s.query.SearchWords(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchWordsOutput{}, err
	}

	out := SearchWordsOutput{Results: make([]SearchedWord, 0, len(results))}
	for _, r := range results {
		sw := SearchedWord{
			Word:       r.Entry.Word,
			Definition: r.Entry.Definition,
			Example:    r.Entry.Example,
			Notes:      r.Entry.Notes,
			Score:      r.Score,
		}
		if r.Stats != nil {
			reps, lapses := r.Stats.Reps, r.Stats.Lapses
			sw.Reps = &reps
			sw.Lapses = &lapses
		}
		out.Results = append(out.Results, sw)
	}
	return nil, out, nil
}

func (s *Server) handleCleanupAudio(ctx context.Context, req *mcp.CallToolRequest, input CleanupAudioInput) (*mcp.CallToolResult, CleanupAudioOutput, error) {
	removed, err := s.cache.Cleanup(ctx)
	if err != nil {
		return nil, CleanupAudioOutput{}, err
	}
	return nil, CleanupAudioOutput{Removed: removed}, nil
}
