package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTarget(t *testing.T) *catfetch.CatalogTarget {
	t.Helper()
	target, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/9")
	require.NoError(t, err)
	return target
}

func testCandidate() *catfetch.ConfigCandidate {
	return &catfetch.ConfigCandidate{
		Label: "type-0-subcategory",
		Template: &catfetch.RequestTemplate{
			Method: "POST",
			URL:    "https://api.shop.example.com/api/products",
			Params: []catfetch.Param{
				{Name: "type", Value: 0},
				{Name: "subcategoryId", Value: "9"},
			},
		},
	}
}

func TestCacheStore_StoreThenLookup(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(t.TempDir())
	target := testTarget(t)

	// When a config is stored and looked up again
	err := store.Store(context.Background(), target, testCandidate(), 143)
	require.NoError(t, err)

	cached, err := store.Lookup(context.Background(), target)

	// Then the round trip preserves the candidate and validation count
	require.NoError(t, err)
	assert.Equal(t, target.Key(), cached.TargetKey)
	assert.Equal(t, "type-0-subcategory", cached.Candidate.Label)
	assert.Equal(t, 143, cached.ValidatedCount)
	assert.False(t, cached.DiscoveredAt.IsZero())
}

func TestCacheStore_LookupMissingIsNotFound(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(t.TempDir())

	_, err := store.Lookup(context.Background(), testTarget(t))

	assert.Equal(t, catfetch.ENOTFOUND, catfetch.ErrorCode(err))
}

func TestCacheStore_ExpiredEntryIsNotFound(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	store := fs.NewCacheStore(t.TempDir(),
		fs.WithFreshness(time.Hour),
		fs.WithClock(func() time.Time { return *clock }),
	)
	target := testTarget(t)

	require.NoError(t, store.Store(context.Background(), target, testCandidate(), 10))

	// Within the freshness window the entry is served
	_, err := store.Lookup(context.Background(), target)
	require.NoError(t, err)

	// After the window passes it is treated as absent
	later := now.Add(2 * time.Hour)
	clock = &later
	_, err = store.Lookup(context.Background(), target)
	assert.Equal(t, catfetch.ENOTFOUND, catfetch.ErrorCode(err))
}

func TestCacheStore_CorruptEntryIsReported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := fs.NewCacheStore(dir)
	target := testTarget(t)

	require.NoError(t, store.Store(context.Background(), target, testCandidate(), 10))

	// Truncate the cache file to simulate a torn write from another tool
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte(`{"version":1,"config"`), 0644))

	_, err = store.Lookup(context.Background(), target)
	assert.Equal(t, catfetch.ECORRUPT, catfetch.ErrorCode(err))
}

func TestCacheStore_InvalidateRemovesEntry(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(t.TempDir())
	target := testTarget(t)

	require.NoError(t, store.Store(context.Background(), target, testCandidate(), 10))
	require.NoError(t, store.Invalidate(context.Background(), target))

	_, err := store.Lookup(context.Background(), target)
	assert.Equal(t, catfetch.ENOTFOUND, catfetch.ErrorCode(err))

	// Invalidating an absent entry is not an error
	assert.NoError(t, store.Invalidate(context.Background(), target))
}

func TestCacheStore_StoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := fs.NewCacheStore(dir)
	target := testTarget(t)

	// Overwrite the same entry several times
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(context.Background(), target, testCandidate(), i))
	}

	// Only the final entry remains on disk
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))

	cached, err := store.Lookup(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 4, cached.ValidatedCount)
}

func TestCacheStore_DistinctTargetsDoNotCollide(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(t.TempDir())
	first := testTarget(t)
	second, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/12")
	require.NoError(t, err)

	require.NoError(t, store.Store(context.Background(), first, testCandidate(), 1))
	other := testCandidate()
	other.Label = "all-flag"
	require.NoError(t, store.Store(context.Background(), second, other, 2))

	cached, err := store.Lookup(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, "type-0-subcategory", cached.Candidate.Label)

	cached, err = store.Lookup(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "all-flag", cached.Candidate.Label)
}
