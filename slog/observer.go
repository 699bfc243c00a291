package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/msolis/catfetch"
)

// Ensure LoggingObserver implements catfetch.Observer.
var _ catfetch.Observer = (*LoggingObserver)(nil)

// LoggingObserver wraps an Observer with debug logging.
type LoggingObserver struct {
	next   catfetch.Observer
	logger *slog.Logger
}

// NewLoggingObserver creates a new LoggingObserver.
func NewLoggingObserver(next catfetch.Observer, logger *slog.Logger) *LoggingObserver {
	return &LoggingObserver{next: next, logger: logger}
}

// Observe delegates to the wrapped observer and logs the session outcome.
func (o *LoggingObserver) Observe(ctx context.Context, target *catfetch.CatalogTarget) (tmpl *catfetch.RequestTemplate, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"target", target.Key(),
			"duration", time.Since(begin),
			"err", err,
		}
		if tmpl != nil {
			attrs = append(attrs,
				"method", tmpl.Method,
				"url", tmpl.URL,
				"params", len(tmpl.Params),
			)
		}
		o.logger.Info("traffic observation", attrs...)
	}(time.Now())
	return o.next.Observe(ctx, target)
}

// Close delegates to the wrapped observer.
func (o *LoggingObserver) Close() error {
	return o.next.Close()
}
