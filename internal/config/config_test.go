package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEXIDECK_DIR", dir)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8765", cfg.Anki.URL)
	assert.Equal(t, "Vocabulary", cfg.Anki.Deck)
	assert.Equal(t, 2, cfg.Anki.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Anki.RetryDelay)
	assert.Equal(t, 3, cfg.Sync.FanOut)
	assert.Equal(t, filepath.Join(dir, "ledger.csv"), cfg.Sync.LedgerPath)
	assert.Equal(t, filepath.Join(dir, "audio"), cfg.Sync.AudioDir)
	assert.Equal(t, "tts-1", cfg.OpenAI.Model)
	assert.Equal(t, "alloy", cfg.OpenAI.Voice)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEXIDECK_DIR", dir)
	t.Setenv("LEXIDECK_ANKI_DECK", "English::Vocab")
	t.Setenv("LEXIDECK_ANKI_RETRY_DELAY", "2s")
	t.Setenv("LEXIDECK_SYNC_FAN_OUT", "5")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "English::Vocab", cfg.Anki.Deck)
	assert.Equal(t, 2*time.Second, cfg.Anki.RetryDelay)
	assert.Equal(t, 5, cfg.Sync.FanOut)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEXIDECK_DIR", dir)
	writeConfig(t, dir, "anki:\n  deck: Spanish\n  retries: 4\nsync:\n  fan_out: 2\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "Spanish", cfg.Anki.Deck)
	assert.Equal(t, 4, cfg.Anki.Retries)
	assert.Equal(t, 2, cfg.Sync.FanOut)
	// Untouched keys keep their defaults.
	assert.Equal(t, "http://127.0.0.1:8765", cfg.Anki.URL)
}

func TestLoadClampsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEXIDECK_DIR", dir)
	writeConfig(t, dir, "anki:\n  retries: -1\nsync:\n  fan_out: 0\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Anki.Retries)
	assert.Equal(t, 3, cfg.Sync.FanOut)
}
