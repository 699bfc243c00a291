// Package lru provides an in-memory read-through layer over a persistent
// configuration cache, so repeated extractions of the same target in one
// process skip the filesystem.
package lru

import (
	"context"

	hlru "github.com/hashicorp/golang-lru/v2"
	"github.com/msolis/catfetch"
)

// DefaultSize is the default number of targets held in memory.
const DefaultSize = 128

// Ensure Cache implements catfetch.ConfigCache at compile time.
var _ catfetch.ConfigCache = (*Cache)(nil)

// Cache decorates a ConfigCache with an LRU memory layer. Lookups are
// served from memory when possible; writes and invalidations go to the
// underlying cache and evict the memory entry, so the next lookup re-reads
// the authoritative copy.
type Cache struct {
	next    catfetch.ConfigCache
	entries *hlru.Cache[string, *catfetch.CachedConfig]
}

// New creates a read-through layer of the given size over next.
// A size of zero or less uses DefaultSize.
func New(next catfetch.ConfigCache, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := hlru.New[string, *catfetch.CachedConfig](size)
	if err != nil {
		return nil, catfetch.Errorf(catfetch.EINTERNAL, "creating lru cache: %v", err)
	}
	return &Cache{next: next, entries: entries}, nil
}

// Lookup returns the cached configuration, consulting memory first.
func (c *Cache) Lookup(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.CachedConfig, error) {
	if cfg, ok := c.entries.Get(target.Key()); ok {
		return cfg, nil
	}
	cfg, err := c.next.Lookup(ctx, target)
	if err != nil {
		return nil, err
	}
	c.entries.Add(target.Key(), cfg)
	return cfg, nil
}

// Store writes through to the underlying cache and evicts the memory
// entry. The authoritative entry (with its timestamp) is re-read on the
// next lookup.
func (c *Cache) Store(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, validatedCount int) error {
	if err := c.next.Store(ctx, target, cand, validatedCount); err != nil {
		return err
	}
	c.entries.Remove(target.Key())
	return nil
}

// Invalidate removes the entry from both layers.
func (c *Cache) Invalidate(ctx context.Context, target *catfetch.CatalogTarget) error {
	c.entries.Remove(target.Key())
	return c.next.Invalidate(ctx, target)
}
