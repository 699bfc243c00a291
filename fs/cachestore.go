// Package fs provides file-based persistence: the per-target configuration
// cache and the record exporters.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/msolis/catfetch"
)

// cacheVersion guards the on-disk format. Entries written by an
// incompatible version are treated as corrupt and rediscovered.
const cacheVersion = 1

// DefaultFreshness is how long a cached configuration is trusted without
// re-discovery. Backends change their API contracts rarely, but a stale
// config silently returning partial catalogs is worse than an extra
// discovery pass.
const DefaultFreshness = 24 * time.Hour

// Ensure CacheStore implements catfetch.ConfigCache at compile time.
var _ catfetch.ConfigCache = (*CacheStore)(nil)

// CacheStore persists one JSON file per catalog target under a base
// directory. Writes go to a temporary file in the same directory and are
// renamed into place, so a crash mid-write never leaves a truncated entry.
type CacheStore struct {
	baseDir   string
	freshness time.Duration
	now       func() time.Time
}

// CacheOption configures a CacheStore.
type CacheOption func(*CacheStore)

// WithFreshness sets the window during which a cached entry is trusted.
// Defaults to DefaultFreshness. Zero or negative disables expiry.
func WithFreshness(d time.Duration) CacheOption {
	return func(s *CacheStore) {
		s.freshness = d
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) CacheOption {
	return func(s *CacheStore) {
		s.now = now
	}
}

// NewCacheStore creates a CacheStore rooted at baseDir. The directory is
// created on first Store.
func NewCacheStore(baseDir string, opts ...CacheOption) *CacheStore {
	s := &CacheStore{
		baseDir:   baseDir,
		freshness: DefaultFreshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheEntry is the on-disk format.
type cacheEntry struct {
	Version int                    `json:"version"`
	Config  *catfetch.CachedConfig `json:"config"`
}

// Lookup returns the cached configuration for the target. Absent and
// expired entries return ENOTFOUND; unreadable or structurally invalid
// entries return ECORRUPT so callers can fall back to discovery.
func (s *CacheStore) Lookup(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.CachedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(target))
	if os.IsNotExist(err) {
		return nil, catfetch.Errorf(catfetch.ENOTFOUND, "no cached config for %s", target.Key())
	}
	if err != nil {
		return nil, catfetch.Errorf(catfetch.ECORRUPT, "reading cached config for %s: %v", target.Key(), err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, catfetch.Errorf(catfetch.ECORRUPT, "decoding cached config for %s: %v", target.Key(), err)
	}
	if entry.Version != cacheVersion || entry.Config == nil {
		return nil, catfetch.Errorf(catfetch.ECORRUPT, "cached config for %s has unsupported format", target.Key())
	}
	if err := entry.Config.Validate(); err != nil {
		return nil, catfetch.Errorf(catfetch.ECORRUPT, "cached config for %s is invalid: %v", target.Key(), err)
	}
	if s.freshness > 0 && s.now().Sub(entry.Config.DiscoveredAt) > s.freshness {
		return nil, catfetch.Errorf(catfetch.ENOTFOUND, "cached config for %s has expired", target.Key())
	}

	return entry.Config, nil
}

// Store overwrites any prior entry for the target. The write is atomic:
// the entry is written to a temporary file and renamed into place.
func (s *CacheStore) Store(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, validatedCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cand.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return catfetch.Errorf(catfetch.EINTERNAL, "creating cache directory: %v", err)
	}

	entry := cacheEntry{
		Version: cacheVersion,
		Config: &catfetch.CachedConfig{
			TargetKey:      target.Key(),
			Candidate:      cand,
			DiscoveredAt:   s.now(),
			ValidatedCount: validatedCount,
		},
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return catfetch.Errorf(catfetch.EINTERNAL, "encoding cached config: %v", err)
	}

	final := s.path(target)
	tmp, err := os.CreateTemp(s.baseDir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return catfetch.Errorf(catfetch.EINTERNAL, "creating temp cache file: %v", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "writing cached config: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "closing temp cache file: %v", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "committing cached config: %v", err)
	}
	return nil
}

// Invalidate removes the entry for the target. Removing an absent entry
// is not an error.
func (s *CacheStore) Invalidate(ctx context.Context, target *catfetch.CatalogTarget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(target)); err != nil && !os.IsNotExist(err) {
		return catfetch.Errorf(catfetch.EINTERNAL, "removing cached config for %s: %v", target.Key(), err)
	}
	return nil
}

// path returns the cache file path for a target: a readable host slug plus
// a hash of the full key so distinct targets never collide.
func (s *CacheStore) path(target *catfetch.CatalogTarget) string {
	return filepath.Join(s.baseDir, targetSlug(target)+".json")
}

// targetSlug derives a filesystem-safe name from a target.
func targetSlug(target *catfetch.CatalogTarget) string {
	host := "target"
	if u, err := url.Parse(target.URL); err == nil && u.Host != "" {
		host = strings.ReplaceAll(u.Host, ":", "_")
	}
	sum := xxhash.Sum64String(target.Key())
	if target.SubcategoryID != 0 {
		return fmt.Sprintf("%s_%d_%016x", host, target.SubcategoryID, sum)
	}
	return fmt.Sprintf("%s_%016x", host, sum)
}
