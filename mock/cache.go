package mock

import (
	"context"

	"github.com/msolis/catfetch"
)

var _ catfetch.ConfigCache = (*ConfigCache)(nil)

// ConfigCache is a mock implementation of catfetch.ConfigCache.
type ConfigCache struct {
	LookupFn     func(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.CachedConfig, error)
	StoreFn      func(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, validatedCount int) error
	InvalidateFn func(ctx context.Context, target *catfetch.CatalogTarget) error
}

func (c *ConfigCache) Lookup(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.CachedConfig, error) {
	return c.LookupFn(ctx, target)
}

func (c *ConfigCache) Store(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, validatedCount int) error {
	return c.StoreFn(ctx, target, cand, validatedCount)
}

func (c *ConfigCache) Invalidate(ctx context.Context, target *catfetch.CatalogTarget) error {
	return c.InvalidateFn(ctx, target)
}
