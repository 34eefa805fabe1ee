package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "run", NormalizeKey("Run"))
	assert.Equal(t, "give up", NormalizeKey("  Give   Up "))
	assert.Equal(t, NormalizeKey("run"), NormalizeKey("RUN"))
}

func TestMergeLastWriteWinsByKey(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	existing := []Entry{{Key: "run", Word: "run", Definition: "old", CreatedAt: t1}}
	staged := []Entry{{Key: "run", Word: "Run", Definition: "new", CreatedAt: t2}}

	merged := Merge(existing, staged)
	require.Len(t, merged, 1)
	assert.Equal(t, "new", merged[0].Definition)
	assert.Equal(t, t2, merged[0].CreatedAt)
}

func TestMergeOlderStagedEntryLoses(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	existing := []Entry{{Key: "run", Definition: "current", CreatedAt: t2}}
	staged := []Entry{{Key: "run", Definition: "stale", CreatedAt: t1}}

	merged := Merge(existing, staged)
	require.Len(t, merged, 1)
	assert.Equal(t, "current", merged[0].Definition)
}

func TestMergeDiscardsLoserWholesale(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []Entry{{
		Key: "run", CreatedAt: t1,
		Example: "kept nowhere", Notes: "distinct notes", Tags: []string{"verb"},
	}}
	staged := []Entry{{Key: "run", CreatedAt: t1.Add(time.Minute)}}

	merged := Merge(existing, staged)
	require.Len(t, merged, 1)
	assert.Empty(t, merged[0].Example)
	assert.Empty(t, merged[0].Notes)
	assert.Empty(t, merged[0].Tags)
}

func TestMergeNewEntriesComeFirst(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []Entry{{Key: "old", CreatedAt: t1}}
	staged := []Entry{{Key: "a", CreatedAt: t1.Add(time.Hour)}, {Key: "b", CreatedAt: t1.Add(time.Hour)}}

	merged := Merge(existing, staged)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].Key)
	assert.Equal(t, "b", merged[1].Key)
	assert.Equal(t, "old", merged[2].Key)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "ledger.csv"))

	entries := []Entry{
		{
			Key: "run", Word: "run", Definition: "to move fast",
			Example: "I run daily", Notes: "irregular verb",
			Tags:      []string{"verb", "basic"},
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			WordAudio: "run-word-aaaa1111.mp3", DefinitionAudio: "run-definition-bbbb2222.mp3",
		},
		{
			Key: "give up", Word: "give up", Definition: "to stop trying, to quit",
			CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, store.Replace(entries))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestStoreLoadMissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.csv"))
	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreReplaceOverwritesWholeFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "ledger.csv"))
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Replace([]Entry{{Key: "a", Word: "a", CreatedAt: at}, {Key: "b", Word: "b", CreatedAt: at}}))
	require.NoError(t, store.Replace([]Entry{{Key: "c", Word: "c", CreatedAt: at}}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].Key)
}

func TestStoreRejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.csv")
	require.NoError(t, writeFile(path, "word,meaning\nrun,to move fast\n"))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected header")
}
