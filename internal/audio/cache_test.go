package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	files  map[string][]byte
	stores int
	lists  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (f *fakeStore) StoreMediaFile(_ context.Context, filename string, data []byte) error {
	f.stores++
	f.files[filename] = data
	return nil
}

func (f *fakeStore) MediaFileNames(_ context.Context) ([]string, error) {
	f.lists++
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

type fakeSynth struct {
	calls int
	data  []byte
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, nil
}

func TestFilenameIsDeterministic(t *testing.T) {
	a := Filename("to run quickly", "Run Fast", "word")
	b := Filename("to run quickly", "Run Fast", "word")
	assert.Equal(t, a, b)
	assert.Equal(t, "run_fast-word-"+ContentKey("to run quickly")+".mp3", a)
}

func TestContentKeyChangesWithText(t *testing.T) {
	assert.NotEqual(t, ContentKey("run"), ContentKey("ran"))
	assert.Len(t, ContentKey("run"), 8)
}

func TestEnsureSynthesizesOnceForIdenticalArguments(t *testing.T) {
	store := newFakeStore()
	synth := &fakeSynth{data: []byte("audio")}
	cache := NewCache(t.TempDir(), store, synth, nil)
	ctx := context.Background()

	first, err := cache.Ensure(ctx, "run", "run", "word")
	require.NoError(t, err)

	second, err := cache.Ensure(ctx, "run", "run", "word")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, 1, store.stores)
}

func TestEnsureRepairsMissingExternalCopyWithoutResynthesis(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	synth := &fakeSynth{data: []byte("audio")}
	cache := NewCache(dir, store, synth, nil)

	filename := Filename("run", "run", "word")
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("cached"), 0o600))

	got, err := cache.Ensure(context.Background(), "run", "run", "word")
	require.NoError(t, err)

	assert.Equal(t, filename, got)
	assert.Equal(t, 0, synth.calls)
	assert.Equal(t, 1, store.stores)
	assert.Equal(t, []byte("cached"), store.files[filename])
}

func TestEnsureSkipsPushWhenBothCopiesPresent(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	synth := &fakeSynth{data: []byte("audio")}
	cache := NewCache(dir, store, synth, nil)

	filename := Filename("run", "run", "word")
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("cached"), 0o600))
	store.files[filename] = []byte("cached")

	_, err := cache.Ensure(context.Background(), "run", "run", "word")
	require.NoError(t, err)
	assert.Equal(t, 0, synth.calls)
	assert.Equal(t, 0, store.stores)
}

func TestSharedDefinitionTextHitsCacheAcrossKeys(t *testing.T) {
	store := newFakeStore()
	synth := &fakeSynth{data: []byte("audio")}
	cache := NewCache(t.TempDir(), store, synth, nil)
	ctx := context.Background()

	// Same definition text under two different headwords still yields two
	// files: scope key differs even though the content key matches.
	a, err := cache.Ensure(ctx, "to move fast", "run", "definition")
	require.NoError(t, err)
	b, err := cache.Ensure(ctx, "to move fast", "sprint", "definition")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, ContentKey("to move fast"))
	assert.Contains(t, b, ContentKey("to move fast"))
}

func TestCleanupPrunesLocalOrphansOnly(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	cache := NewCache(dir, store, &fakeSynth{}, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.mp3"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orphan.mp3"), []byte("b"), 0o600))
	store.files["kept.mp3"] = []byte("a")
	store.files["external-only.mp3"] = []byte("c")

	removed, err := cache.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "kept.mp3"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "orphan.mp3"))
	assert.True(t, os.IsNotExist(err))

	// External copies are never touched.
	assert.Contains(t, store.files, "external-only.mp3")
}

func TestCleanupMissingDirIsNoop(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "never-created"), newFakeStore(), &fakeSynth{}, nil)
	removed, err := cache.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
