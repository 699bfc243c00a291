package slog

import (
	"context"
	"log/slog"

	"github.com/msolis/catfetch"
)

// Ensure LoggingConfigCache implements catfetch.ConfigCache.
var _ catfetch.ConfigCache = (*LoggingConfigCache)(nil)

// LoggingConfigCache wraps a ConfigCache with debug logging.
type LoggingConfigCache struct {
	next   catfetch.ConfigCache
	logger *slog.Logger
}

// NewLoggingConfigCache creates a new LoggingConfigCache.
func NewLoggingConfigCache(next catfetch.ConfigCache, logger *slog.Logger) *LoggingConfigCache {
	return &LoggingConfigCache{next: next, logger: logger}
}

// Lookup delegates to the wrapped cache and logs hit or miss.
func (c *LoggingConfigCache) Lookup(ctx context.Context, target *catfetch.CatalogTarget) (cfg *catfetch.CachedConfig, err error) {
	cfg, err = c.next.Lookup(ctx, target)
	outcome := "hit"
	switch catfetch.ErrorCode(err) {
	case "":
	case catfetch.ENOTFOUND:
		outcome = "miss"
	case catfetch.ECORRUPT:
		outcome = "corrupt"
	default:
		outcome = "error"
	}
	c.logger.Debug("config cache lookup",
		"target", target.Key(),
		"outcome", outcome,
	)
	return cfg, err
}

// Store delegates to the wrapped cache and logs the write.
func (c *LoggingConfigCache) Store(ctx context.Context, target *catfetch.CatalogTarget, cand *catfetch.ConfigCandidate, validatedCount int) (err error) {
	defer func() {
		c.logger.Info("config cache store",
			"target", target.Key(),
			"candidate", cand.Label,
			"validated", validatedCount,
			"err", err,
		)
	}()
	return c.next.Store(ctx, target, cand, validatedCount)
}

// Invalidate delegates to the wrapped cache and logs the eviction.
func (c *LoggingConfigCache) Invalidate(ctx context.Context, target *catfetch.CatalogTarget) (err error) {
	defer func() {
		c.logger.Info("config cache invalidate",
			"target", target.Key(),
			"err", err,
		)
	}()
	return c.next.Invalidate(ctx, target)
}
