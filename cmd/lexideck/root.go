package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/lexideck/lexideck/internal/anki"
	"github.com/lexideck/lexideck/internal/audio"
	"github.com/lexideck/lexideck/internal/config"
	"github.com/lexideck/lexideck/internal/ledger"
	"github.com/lexideck/lexideck/internal/services"
	"github.com/lexideck/lexideck/internal/tts"
)

var rootCmd = &cobra.Command{
	Use:     "lexideck",
	Short:   "lexideck - A vocabulary ledger synced into Anki with pronunciation audio",
	Long:    "lexideck keeps a deduplicated vocabulary record and mirrors it into Anki, attaching generated text-to-speech audio to each entry.",
	Version: version,
}

func init() {
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newMCPCmd())
}

// newLogger builds the process logger: tinted slog on stderr at the
// configured level.
func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.RFC3339,
	}))
}

// app bundles the wired components. Configuration is loaded once here and
// passed into every constructor; nothing below this layer reads the
// environment.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *anki.Client
	cache  *audio.Cache
	sync   *services.SyncService
	query  *services.QueryService
}

func newApp() (*app, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	client := anki.NewClient(anki.Options{
		URL:        cfg.Anki.URL,
		Deck:       cfg.Anki.Deck,
		Model:      cfg.Anki.Model,
		Retries:    cfg.Anki.Retries,
		RetryDelay: cfg.Anki.RetryDelay,
		Logger:     logger,
	})
	synth := tts.NewOpenAI(tts.OpenAIOptions{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Voice:   cfg.OpenAI.Voice,
	})
	cache := audio.NewCache(cfg.Sync.AudioDir, client, synth, logger)
	store := ledger.NewStore(cfg.Sync.LedgerPath)

	return &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		cache:  cache,
		sync:   services.NewSyncService(store, client, cache, cfg.Sync.FanOut, logger),
		query:  services.NewQueryService(store, client),
	}, nil
}
