// Package slog provides logging decorators for the engine's service
// interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/msolis/catfetch"
)

// Ensure LoggingProber implements catfetch.Prober.
var _ catfetch.Prober = (*LoggingProber)(nil)

// LoggingProber wraps a Prober with per-request logging.
type LoggingProber struct {
	next   catfetch.Prober
	logger *slog.Logger
}

// NewLoggingProber creates a new LoggingProber.
func NewLoggingProber(next catfetch.Prober, logger *slog.Logger) *LoggingProber {
	return &LoggingProber{next: next, logger: logger}
}

// Probe delegates to the wrapped prober and logs the classification.
func (p *LoggingProber) Probe(ctx context.Context, cand *catfetch.ConfigCandidate) (result *catfetch.ProbeResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"candidate", cand.Label,
			"duration", time.Since(begin),
			"err", err,
		}
		if result != nil {
			attrs = append(attrs,
				"classification", string(result.Classification),
				"items", result.ItemCount,
			)
		}
		p.logger.Info("probe", attrs...)
	}(time.Now())
	return p.next.Probe(ctx, cand)
}
