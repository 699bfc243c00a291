// Package extract provides catalog extraction orchestration. It
// coordinates configuration discovery, cached-config re-validation,
// pagination, persistence, and the DOM-scraping fallback across a set of
// catalog targets.
package extract

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/discover"
	"github.com/msolis/catfetch/paginate"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is how many targets are extracted in parallel.
// Each target holds a browser session and a pagination loop, so the
// default is deliberately low.
const DefaultConcurrency = 4

// Fallback extracts records without a working API configuration, by
// scraping the rendered listing pages.
type Fallback interface {
	Extract(ctx context.Context, target *catfetch.CatalogTarget) ([]*catfetch.ProductRecord, error)
}

// Runner orchestrates extraction runs.
type Runner struct {
	Discoverer *discover.Discoverer
	Driver     *paginate.Driver
	Prober     catfetch.Prober

	Cache    catfetch.ConfigCache // optional
	Runs     catfetch.RunService  // optional
	Fallback Fallback             // optional

	// Concurrency bounds parallel targets. Defaults to DefaultConcurrency.
	Concurrency int

	// RunTimeout bounds one target's discovery plus pagination.
	// Zero means no bound.
	RunTimeout time.Duration

	Logger *slog.Logger // optional
}

// ProgressEvent reports progress during an extraction.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Target    string
	Records   int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting extraction progress.
type ProgressFunc func(event ProgressEvent)

// ExtractAll extracts every target and returns one run per target, in
// input order. Individual target failures are reported inside their run
// results, never by dropping the target.
func (r *Runner) ExtractAll(ctx context.Context, targets []*catfetch.CatalogTarget, progress ProgressFunc) ([]*catfetch.RunResult, error) {
	if len(targets) == 0 {
		return nil, catfetch.Errorf(catfetch.EINVALID, "at least one catalog target required")
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	total := len(targets)
	var completed atomic.Int64

	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, Total: total})
	}

	runs := make([]*catfetch.RunResult, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			run := r.ExtractOne(gctx, target)
			runs[i] = run

			done := int(completed.Add(1))
			if progress == nil {
				return nil
			}
			if run.Status == catfetch.RunFailed {
				progress(ProgressEvent{
					Type:      ProgressFailed,
					Completed: done,
					Total:     total,
					Target:    target.Key(),
					Error:     run.Err,
				})
			} else {
				progress(ProgressEvent{
					Type:      ProgressCompleted,
					Completed: done,
					Total:     total,
					Target:    target.Key(),
					Records:   len(run.Records),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})
	}
	return runs, nil
}

// ExtractOne extracts a single target. The returned run is always
// non-nil and is persisted through the run service when one is
// configured.
func (r *Runner) ExtractOne(ctx context.Context, target *catfetch.CatalogTarget) *catfetch.RunResult {
	if r.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RunTimeout)
		defer cancel()
	}

	run := r.extract(ctx, target)

	if r.Runs != nil {
		if err := r.Runs.CreateRun(ctx, run); err != nil {
			r.log().Warn("persisting run failed", "target", target.Key(), "err", err)
		}
	}
	return run
}

func (r *Runner) extract(ctx context.Context, target *catfetch.CatalogTarget) *catfetch.RunResult {
	started := time.Now().UTC()

	disc, err := r.Discoverer.Discover(ctx, target)
	if err != nil {
		if catfetch.ErrorCode(err) == catfetch.EEXHAUSTED && r.Fallback != nil {
			return r.fallbackRun(ctx, target, started)
		}
		return failedRun(target, started, err)
	}

	cand := disc.Candidate
	first := disc.Probe

	// A cache hit was trusted without probing; its first page fetch is
	// the re-validation. A partial result means the backend moved on,
	// so the entry is dropped and discovery repeated.
	if disc.FromCache {
		first = nil
		result, err := r.Prober.Probe(ctx, cand)
		if err != nil {
			return failedRun(target, started, err)
		}
		switch result.Classification {
		case catfetch.CompleteCatalog:
			first = result
		case catfetch.PartialCatalog:
			r.log().Info("cached configuration failed re-validation, rediscovering",
				"target", target.Key(),
				"config", cand.Label,
			)
			disc, err = r.Discoverer.Rediscover(ctx, target)
			if err != nil {
				if catfetch.ErrorCode(err) == catfetch.EEXHAUSTED && r.Fallback != nil {
					return r.fallbackRun(ctx, target, started)
				}
				return failedRun(target, started, err)
			}
			cand = disc.Candidate
			first = disc.Probe
		default:
			// Transport or malformed outcomes are transient as far as
			// re-validation is concerned; the driver's first page fetch
			// retries them with backoff.
		}
	}

	run := r.Driver.Run(ctx, target, cand, first)
	run.StartedAt = started

	// A successfully exhausted run is the strongest validation the
	// config can get; refresh the cache entry with the real count.
	if run.Status == catfetch.RunCompleted && r.Cache != nil {
		if err := r.Cache.Store(ctx, target, cand, len(run.Records)); err != nil {
			r.log().Warn("refreshing cached config failed", "target", target.Key(), "err", err)
		}
	}
	return run
}

// fallbackRun extracts via DOM scraping when no API configuration works.
func (r *Runner) fallbackRun(ctx context.Context, target *catfetch.CatalogTarget, started time.Time) *catfetch.RunResult {
	r.log().Info("falling back to DOM extraction", "target", target.Key())

	records, err := r.Fallback.Extract(ctx, target)
	if err != nil {
		return failedRun(target, started, err)
	}
	return &catfetch.RunResult{
		Target:     target,
		Records:    records,
		Status:     catfetch.RunCompleted,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
}

func failedRun(target *catfetch.CatalogTarget, started time.Time, err error) *catfetch.RunResult {
	return &catfetch.RunResult{
		Target:     target,
		Status:     catfetch.RunFailed,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Err:        err,
	}
}

func (r *Runner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
