// Package paginate drives full catalog extraction over a validated
// configuration: it repeatedly issues page requests, accumulates and
// deduplicates records, detects completion, and retries transient page
// failures with exponential backoff.
package paginate

import (
	"context"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/msolis/catfetch"
)

// State is a pagination run state. Runs always terminate in
// StateCompleted or StateFailed.
type State string

// Pagination run states.
const (
	StateInitializing State = "initializing"
	StateFetchingPage State = "fetching_page"
	StateAccumulating State = "accumulating"
	StateRetrying     State = "retrying"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Driver runs the pagination state machine for one validated
// configuration. Pages are fetched strictly sequentially: the cursor for
// page N+1 depends on page N's outcome.
type Driver struct {
	Prober catfetch.Prober

	// RetryDelays is the backoff schedule applied between retry attempts
	// for a failing page. The total attempt budget per page is
	// len(RetryDelays)+1. Defaults to DefaultRetryDelays.
	RetryDelays []time.Duration

	Metrics *Metrics     // optional
	Logger  *slog.Logger // optional
}

// pageState is the mutable state of one pagination run. It is created at
// run start, mutated only by the driver, and discarded on completion.
type pageState struct {
	cursor       string
	pageNum      int
	pageRetries  int
	totalRetries int
	pages        int

	seen         map[string]bool
	fingerprints map[uint64]bool
	records      []*catfetch.ProductRecord
	expected     int
	pageSize     int

	last *catfetch.ProbeResult
	err  error
}

// Run extracts the full catalog for a target using a validated candidate.
//
// first, when non-nil, is the already-fetched result for the opening page
// (the probe that validated the candidate); the driver consumes it instead
// of re-issuing the first request.
//
// The returned RunResult is always non-nil. A failed run carries the
// partial accumulated records and an explicit error; the catalog is never
// silently truncated.
func (d *Driver) Run(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, first *catfetch.ProbeResult) *catfetch.RunResult {
	run := &catfetch.RunResult{
		Target:    target,
		Config:    cand,
		StartedAt: time.Now().UTC(),
	}

	ps := &pageState{
		pageNum:      1,
		seen:         make(map[string]bool),
		fingerprints: make(map[uint64]bool),
		expected:     cand.ExpectedTotal,
		pageSize:     cand.PageSize,
	}

	state := StateInitializing
	for state != StateCompleted && state != StateFailed {
		switch state {
		case StateInitializing:
			if err := cand.Validate(); err != nil {
				ps.err = err
				state = StateFailed
				continue
			}
			if first != nil {
				ps.last = first
				ps.pages++
				state = StateAccumulating
				continue
			}
			state = StateFetchingPage

		case StateFetchingPage:
			state = d.fetchPage(ctx, cand, ps)

		case StateAccumulating:
			state = d.accumulate(ps)

		case StateRetrying:
			state = d.retry(ctx, ps)
		}
	}

	run.Records = ps.records
	run.Pages = ps.pages
	run.Retries = ps.totalRetries
	run.FinishedAt = time.Now().UTC()
	if state == StateFailed {
		run.Status = catfetch.RunFailed
		run.Err = ps.err
	} else {
		run.Status = catfetch.RunCompleted
	}
	d.Metrics.IncRun(string(run.Status))
	d.log().Info("pagination run finished",
		"target", target.Key(),
		"status", string(run.Status),
		"records", len(run.Records),
		"pages", run.Pages,
		"retries", run.Retries,
	)
	return run
}

// fetchPage issues the request for the current page and routes the outcome.
func (d *Driver) fetchPage(ctx context.Context, cand *catfetch.ConfigCandidate, ps *pageState) State {
	if err := ctx.Err(); err != nil {
		ps.err = catfetch.Errorf(catfetch.EUNAVAILABLE, "run aborted on page %d: %v", ps.pageNum, err)
		return StateFailed
	}

	pageCand := cand
	if ps.pageNum > 1 {
		pageCand = cand.WithCursor(ps.cursor, ps.pageNum)
	}

	begin := time.Now()
	result, err := d.Prober.Probe(ctx, pageCand)
	d.Metrics.ObservePage(time.Since(begin))
	if err != nil {
		// Only context cancellation reaches here; network outcomes are
		// classified inside the result.
		ps.err = catfetch.Errorf(catfetch.EUNAVAILABLE, "run aborted on page %d: %v", ps.pageNum, err)
		return StateFailed
	}

	d.Metrics.IncPage(string(result.Classification))
	ps.pages++

	switch result.Classification {
	case catfetch.CompleteCatalog, catfetch.PartialCatalog:
		ps.last = result
		return StateAccumulating
	default:
		ps.last = result
		return StateRetrying
	}
}

// accumulate folds the fetched page into the run and decides whether more
// pages remain.
func (d *Driver) accumulate(ps *pageState) State {
	page := ps.last.Page

	// A byte-identical payload means the server is replaying the same
	// page; stop before the run loops forever.
	if len(ps.last.Raw) > 0 {
		fp := xxhash.Sum64(ps.last.Raw)
		if ps.fingerprints[fp] {
			d.log().Warn("identical page payload repeated, stopping", "page", ps.pageNum)
			return StateCompleted
		}
		ps.fingerprints[fp] = true
	}

	var added int
	for _, rec := range page.Records {
		key := rec.Key()
		if ps.seen[key] {
			d.Metrics.AddDuplicates(1)
			continue
		}
		ps.seen[key] = true
		ps.records = append(ps.records, rec)
		added++
	}
	d.Metrics.AddRecords(added)

	if page.TotalCount != nil && *page.TotalCount > ps.expected {
		ps.expected = *page.TotalCount
	}

	// A page of pure duplicates cannot make progress; overlapping
	// backend pages must not loop the run forever.
	if added == 0 {
		return StateCompleted
	}

	more := d.morePages(ps)
	if !more {
		return StateCompleted
	}

	ps.cursor = page.NextCursor
	ps.pageNum++
	ps.pageRetries = 0
	return StateFetchingPage
}

// morePages applies the completion heuristics in priority order: explicit
// has-more signal, then expected-total comparison, then undersized-page
// detection.
func (d *Driver) morePages(ps *pageState) bool {
	page := ps.last.Page

	if page.HasMore != nil {
		return *page.HasMore
	}
	if page.NextCursor != "" {
		return true
	}
	if ps.expected > 0 {
		return len(ps.records) < ps.expected
	}
	// No signals at all: a full page suggests more, anything smaller is
	// the end. An unbounded candidate returns everything in one page.
	if ps.pageSize > 0 {
		return len(page.Records) >= ps.pageSize
	}
	return false
}

// retry applies backoff for the current page, failing the run once the
// retry budget is exhausted.
func (d *Driver) retry(ctx context.Context, ps *pageState) State {
	delays := d.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	if ps.pageRetries >= len(delays) {
		code := catfetch.EUNAVAILABLE
		if ps.last != nil && ps.last.Classification == catfetch.Malformed {
			code = catfetch.EMALFORMED
		}
		cause := ""
		if ps.last != nil && ps.last.Err != nil {
			cause = ": " + ps.last.Err.Error()
		}
		ps.err = catfetch.Errorf(code, "page %d failed after %d attempts%s", ps.pageNum, ps.pageRetries+1, cause)
		return StateFailed
	}

	delay := delays[ps.pageRetries]
	ps.pageRetries++
	ps.totalRetries++
	d.Metrics.IncRetry()
	d.log().Debug("retrying page", "page", ps.pageNum, "attempt", ps.pageRetries+1, "delay", delay)

	select {
	case <-ctx.Done():
		ps.err = catfetch.Errorf(catfetch.EUNAVAILABLE, "run aborted during backoff on page %d: %v", ps.pageNum, ctx.Err())
		return StateFailed
	case <-time.After(delay):
	}
	return StateFetchingPage
}

func (d *Driver) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
