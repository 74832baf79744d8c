package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"

func testCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	clock := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestGetMissesOnEmptyCache(t *testing.T) {
	c, _ := testCache(t)
	_, ok := c.Get(testKey)
	assert.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	c, _ := testCache(t)
	c.Set(testKey, json.RawMessage(`{"metrics":["visitors"]}`), json.RawMessage(`{"results":[]}`))

	raw, ok := c.Get(testKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"results":[]}`, string(raw))
}

func TestGetHonorsFreshnessWindow(t *testing.T) {
	c, clock := testCache(t)
	c.Set(testKey, nil, json.RawMessage(`{"results":[]}`))

	*clock = clock.Add(FreshnessWindow - time.Second)
	_, ok := c.Get(testKey)
	assert.True(t, ok, "entry one second inside the window must be fresh")

	*clock = clock.Add(2 * time.Second)
	_, ok = c.Get(testKey)
	assert.False(t, ok, "entry one second past the window must be a miss")
}

func TestGetDeletesStaleEntry(t *testing.T) {
	c, clock := testCache(t)
	c.Set(testKey, nil, json.RawMessage(`{"results":[]}`))

	*clock = clock.Add(FreshnessWindow + time.Second)
	_, ok := c.Get(testKey)
	require.False(t, ok)

	// Lazy eviction: the stale read removed the file.
	assert.Equal(t, 0, c.Info().TotalEntries)
}

func TestGetTreatsCorruptEntryAsMiss(t *testing.T) {
	c, _ := testCache(t)
	path := filepath.Join(c.dir, testKey+entryFileExt)
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0600))

	_, ok := c.Get(testKey)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt entry must be removed")
}

func TestSetOverwritesPreviousEntry(t *testing.T) {
	c, _ := testCache(t)
	c.Set(testKey, nil, json.RawMessage(`{"results":[1]}`))
	c.Set(testKey, nil, json.RawMessage(`{"results":[2]}`))

	raw, ok := c.Get(testKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"results":[2]}`, string(raw))
	assert.Equal(t, 1, c.Info().TotalEntries)
}

func TestSetSwallowsWriteFailures(t *testing.T) {
	c, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	c.dir = filepath.Join(c.dir, "does-not-exist")

	// Must not panic or error; a failed write is a silent no-op.
	c.Set(testKey, nil, json.RawMessage(`{"results":[]}`))
	_, ok := c.Get(testKey)
	assert.False(t, ok)
}

func TestClearRemovesEverything(t *testing.T) {
	c, _ := testCache(t)
	c.Set(testKey, nil, json.RawMessage(`{}`))
	c.Set(testKey[1:]+"a", nil, json.RawMessage(`{}`))
	require.Equal(t, 2, c.Info().TotalEntries)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Info().TotalEntries)
}

func TestPruneRemovesOnlyStaleEntries(t *testing.T) {
	c, clock := testCache(t)
	c.Set("stale-one", nil, json.RawMessage(`{}`))
	c.Set("stale-two", nil, json.RawMessage(`{}`))

	*clock = clock.Add(FreshnessWindow + time.Second)
	c.Set("fresh", nil, json.RawMessage(`{}`))

	removed := c.Prune()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Info().TotalEntries)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestPruneCountsCorruptEntriesAsStale(t *testing.T) {
	c, _ := testCache(t)
	path := filepath.Join(c.dir, "broken"+entryFileExt)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 0, c.Info().TotalEntries)
}

func TestInfoCountsStaleEntries(t *testing.T) {
	c, clock := testCache(t)
	c.Set(testKey, nil, json.RawMessage(`{}`))

	*clock = clock.Add(FreshnessWindow + time.Hour)
	info := c.Info()
	assert.Equal(t, 1, info.TotalEntries, "info reports files on disk, staleness included")
	assert.Equal(t, c.dir, info.Location)
}

func TestInfoIgnoresForeignFiles(t *testing.T) {
	c, _ := testCache(t)
	require.NoError(t, os.WriteFile(filepath.Join(c.dir, "notes.txt"), []byte("x"), 0600))
	assert.Equal(t, 0, c.Info().TotalEntries)
}
