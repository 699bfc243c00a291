package catfetch

import (
	"context"
	"time"
)

// CachedConfig is a persisted best-known-working configuration for a
// catalog target. An entry is retained only if its most recent probe was
// CompleteCatalog or a successfully exhausted pagination run; stale or
// failed entries are evicted or re-validated, never trusted silently.
type CachedConfig struct {
	TargetKey      string           `json:"targetKey"`
	Candidate      *ConfigCandidate `json:"candidate"`
	DiscoveredAt   time.Time        `json:"discoveredAt"`
	ValidatedCount int              `json:"validatedCount"`
}

// Validate returns an error if the cached config contains invalid fields.
func (c *CachedConfig) Validate() error {
	if c.TargetKey == "" {
		return Errorf(EINVALID, "cached config target key required")
	}
	if c.Candidate == nil {
		return Errorf(EINVALID, "cached config candidate required")
	}
	return c.Candidate.Validate()
}

// ConfigCache is a persistent mapping from catalog target to
// best-known-working configuration. Implementations must make Store
// atomic with respect to process crash; no in-process concurrent writers
// are assumed.
type ConfigCache interface {
	// Lookup returns the cached configuration for the target.
	// Returns ENOTFOUND when the entry is absent, older than the
	// freshness window, or previously invalidated.
	Lookup(ctx context.Context, target *CatalogTarget) (*CachedConfig, error)

	// Store overwrites any prior entry for the target.
	Store(ctx context.Context, target *CatalogTarget, cand *ConfigCandidate, validatedCount int) error

	// Invalidate removes the entry for the target, forcing the next run
	// to perform full discovery.
	Invalidate(ctx context.Context, target *CatalogTarget) error
}
