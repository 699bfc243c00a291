package discover

import (
	"context"
	"log/slog"

	"github.com/msolis/catfetch"
	"golang.org/x/sync/singleflight"
)

// Result is the outcome of a successful discovery.
type Result struct {
	// Candidate is the validated configuration.
	Candidate *catfetch.ConfigCandidate

	// Probe is the probe result that validated the candidate.
	// Nil when the candidate came from the cache without probing.
	Probe *catfetch.ProbeResult

	// FromCache reports whether the candidate was served from the
	// configuration cache.
	FromCache bool

	// Probes is the number of probe requests issued.
	Probes int
}

// Discoverer finds a working configuration for a catalog target.
// It checks the configuration cache first and falls back to observing a
// client session and probing generated candidates in order. Concurrent
// discovery for the same target is deduplicated: one caller performs the
// work while the others wait on its result.
type Discoverer struct {
	Observer  catfetch.Observer
	Prober    catfetch.Prober
	Cache     catfetch.ConfigCache // optional
	Generator *Generator
	Logger    *slog.Logger // optional

	group singleflight.Group
}

// Discover returns a validated configuration for the target.
//
// A fresh cache entry is returned as-is with zero probe requests; the
// first page fetch of the subsequent pagination run serves as its
// re-validation. On a cache miss the Discoverer observes one client
// session, generates candidates, and probes them in order until one
// classifies as CompleteCatalog, which is then stored in the cache.
//
// Returns EEXHAUSTED when every candidate has been tried without a
// complete catalog. The caller may then fall back to a different
// strategy, such as DOM scraping.
func (d *Discoverer) Discover(ctx context.Context, target *catfetch.CatalogTarget) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	v, err, _ := d.group.Do(target.Key(), func() (any, error) {
		return d.discover(ctx, target, true)
	})
	if err != nil {
		return nil, err
	}
	res, _ := v.(*Result)
	return res, nil
}

// Rediscover drops any cached entry for the target and performs full
// discovery. Used when a cached configuration fails re-validation.
func (d *Discoverer) Rediscover(ctx context.Context, target *catfetch.CatalogTarget) (*Result, error) {
	if d.Cache != nil {
		if err := d.Cache.Invalidate(ctx, target); err != nil {
			d.log().Warn("cache invalidate failed", "target", target.Key(), "err", err)
		}
	}
	v, err, _ := d.group.Do("rediscover:"+target.Key(), func() (any, error) {
		return d.discover(ctx, target, false)
	})
	if err != nil {
		return nil, err
	}
	res, _ := v.(*Result)
	return res, nil
}

func (d *Discoverer) discover(ctx context.Context, target *catfetch.CatalogTarget, useCache bool) (*Result, error) {
	if cached := d.lookup(ctx, target, useCache); cached != nil {
		d.log().Info("using cached configuration",
			"target", target.Key(),
			"config", cached.Candidate.Label,
			"validated_count", cached.ValidatedCount,
		)
		cand := cached.Candidate
		if cand.ExpectedTotal == 0 {
			cand.ExpectedTotal = cached.ValidatedCount
		}
		return &Result{Candidate: cand, FromCache: true}, nil
	}

	tmpl, err := d.Observer.Observe(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	gen := d.Generator
	if gen == nil {
		gen = &Generator{}
	}
	candidates := gen.Generate(tmpl, target)

	var probes int
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		probes++
		result, err := d.Prober.Probe(ctx, cand)
		if err != nil {
			return nil, err
		}

		d.log().Debug("probed candidate",
			"target", target.Key(),
			"config", cand.Label,
			"classification", string(result.Classification),
			"items", result.ItemCount,
		)

		if result.Classification != catfetch.CompleteCatalog {
			continue
		}

		if result.Page != nil && result.Page.TotalCount != nil {
			cand.ExpectedTotal = *result.Page.TotalCount
		} else {
			cand.ExpectedTotal = result.ItemCount
		}

		if d.Cache != nil {
			if err := d.Cache.Store(ctx, target, cand, result.ItemCount); err != nil {
				d.log().Warn("cache store failed", "target", target.Key(), "err", err)
			}
		}

		return &Result{Candidate: cand, Probe: result, Probes: probes}, nil
	}

	return nil, catfetch.Errorf(catfetch.EEXHAUSTED,
		"no candidate configuration returned a complete catalog for %s after %d probes", target.Key(), probes)
}

// lookup returns a usable cache entry or nil. Corrupt or missing entries
// degrade to a cache miss.
func (d *Discoverer) lookup(ctx context.Context, target *catfetch.CatalogTarget, useCache bool) *catfetch.CachedConfig {
	if !useCache || d.Cache == nil {
		return nil
	}
	cached, err := d.Cache.Lookup(ctx, target)
	if err != nil {
		switch catfetch.ErrorCode(err) {
		case catfetch.ENOTFOUND:
		case catfetch.ECORRUPT:
			d.log().Warn("configuration cache unreadable, rediscovering", "target", target.Key(), "err", err)
		default:
			d.log().Warn("cache lookup failed", "target", target.Key(), "err", err)
		}
		return nil
	}
	if cached.Candidate == nil {
		// Forward compatibility: an entry this version cannot interpret
		// is a cache miss.
		return nil
	}
	return cached
}

func (d *Discoverer) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
