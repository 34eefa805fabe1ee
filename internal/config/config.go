// Package config resolves the runtime configuration for lexideck. The
// configuration is loaded exactly once at startup and handed to each
// component's constructor; no other package reads environment state.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config carries every tunable the sync core consumes.
type Config struct {
	Anki struct {
		URL        string        `mapstructure:"url"`
		Deck       string        `mapstructure:"deck"`
		Model      string        `mapstructure:"model"`
		Retries    int           `mapstructure:"retries"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"anki"`
	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
		Voice   string `mapstructure:"voice"`
	} `mapstructure:"openai"`
	Sync struct {
		FanOut     int    `mapstructure:"fan_out"`
		LedgerPath string `mapstructure:"ledger_path"`
		AudioDir   string `mapstructure:"audio_dir"`
	} `mapstructure:"sync"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// dataDir resolves the base directory for ledger and audio storage. It checks
// LEXIDECK_DIR first, then XDG data home, then the OS temp dir as a last
// resort.
func dataDir() string {
	v := viper.New()
	v.SetEnvPrefix("LEXIDECK")
	v.AutomaticEnv()
	if explicit := v.GetString("DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()
	if xdg.DataHome != "" {
		return filepath.Join(xdg.DataHome, "lexideck")
	}
	return filepath.Join("/tmp", "lexideck")
}

// Load builds the Config from an optional config file plus LEXIDECK_*
// environment variables. A missing config file is not an error; defaults
// cover every field.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEXIDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	base := dataDir()
	v.SetDefault("anki.url", "http://127.0.0.1:8765")
	v.SetDefault("anki.deck", "Vocabulary")
	v.SetDefault("anki.model", "Lexideck Vocabulary")
	v.SetDefault("anki.retries", 2)
	v.SetDefault("anki.retry_delay", 500*time.Millisecond)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "tts-1")
	v.SetDefault("openai.voice", "alloy")
	v.SetDefault("sync.fan_out", 3)
	v.SetDefault("sync.ledger_path", filepath.Join(base, "ledger.csv"))
	v.SetDefault("sync.audio_dir", filepath.Join(base, "audio"))
	v.SetDefault("log.level", "info")

	// OPENAI_API_KEY and OPENAI_API_BASE are honored for compatibility with
	// the usual OpenAI tooling.
	_ = v.BindEnv("openai.api_key", "LEXIDECK_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "LEXIDECK_OPENAI_BASE_URL", "OPENAI_API_BASE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Anki.Retries < 0 {
		cfg.Anki.Retries = 0
	}
	if cfg.Sync.FanOut <= 0 {
		cfg.Sync.FanOut = 3
	}

	return &cfg, nil
}
