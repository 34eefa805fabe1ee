// Package audio provides the content-addressed pronunciation cache. An
// artifact's identity is a pure function of its source text, so identical
// text is synthesized exactly once and survives process restarts. Local cache
// presence and external media presence are tracked independently and
// reconciled, never assumed equal.
package audio

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lexideck/lexideck/internal/tts"
)

// MediaStore is the slice of the external store the cache needs: push one
// blob, list all blob names.
type MediaStore interface {
	StoreMediaFile(ctx context.Context, filename string, data []byte) error
	MediaFileNames(ctx context.Context) ([]string, error)
}

// Cache coordinates the local audio directory with the external media
// collection.
type Cache struct {
	dir        string
	store      MediaStore
	synth      tts.Synthesizer
	logger     *slog.Logger
	ensureOnce sync.Once
	ensureErr  error
}

// NewCache creates a Cache over the given directory.
func NewCache(dir string, store MediaStore, synth tts.Synthesizer, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{dir: dir, store: store, synth: synth, logger: logger}
}

// ContentKey derives the stable identity of a rendering from its exact source
// text: the first 8 hex characters of the text's MD5.
func ContentKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// SanitizeKey converts a headword into a filename-friendly form. Used only
// for legibility; identity lives in the content key.
func SanitizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

// Filename is the deterministic artifact name for a text rendered under a
// logical key and role.
func Filename(text, key, role string) string {
	return fmt.Sprintf("%s-%s-%s.mp3", SanitizeKey(key), role, ContentKey(text))
}

func (c *Cache) ensureDir() error {
	c.ensureOnce.Do(func() {
		c.ensureErr = os.MkdirAll(c.dir, 0o750)
	})
	return c.ensureErr
}

// Ensure returns the filename of the cached rendering for text, generating
// and persisting it on first use. A file already present locally but missing
// from the external store is pushed without resynthesizing, which repairs a
// partially-completed prior run.
func (c *Cache) Ensure(ctx context.Context, text, key, role string) (string, error) {
	if err := c.ensureDir(); err != nil {
		return "", fmt.Errorf("audio: ensure cache dir: %w", err)
	}

	filename := Filename(text, key, role)
	path := filepath.Join(c.dir, filename)

	if _, err := os.Stat(path); err == nil {
		stored, err := c.storedExternally(ctx, filename)
		if err != nil {
			return "", err
		}
		if !stored {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("audio: read cached %s: %w", filename, err)
			}
			c.logger.Info("repairing external media from local cache", "file", filename)
			if err := c.store.StoreMediaFile(ctx, filename, data); err != nil {
				return "", err
			}
		}
		return filename, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("audio: stat %s: %w", filename, err)
	}

	data, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("audio: write %s: %w", filename, err)
	}
	if err := c.store.StoreMediaFile(ctx, filename, data); err != nil {
		return "", err
	}
	c.logger.Debug("synthesized audio", "file", filename, "bytes", len(data))
	return filename, nil
}

func (c *Cache) storedExternally(ctx context.Context, filename string) (bool, error) {
	names, err := c.store.MediaFileNames(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == filename {
			return true, nil
		}
	}
	return false, nil
}

// Cleanup removes local cache files that no longer back any usable card: any
// file absent from the external store's live media list is deleted locally.
// It never deletes from the external store. Returns the number of files
// removed.
func (c *Cache) Cleanup(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("audio: read cache dir: %w", err)
	}

	names, err := c.store.MediaFileNames(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(names))
	for _, name := range names {
		live[name] = struct{}{}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("audio: remove %s: %w", entry.Name(), err)
		}
		c.logger.Info("pruned orphaned audio file", "file", entry.Name())
		removed++
	}
	return removed, nil
}
