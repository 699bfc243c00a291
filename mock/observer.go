// Package mock provides mock implementations of catfetch interfaces for testing.
package mock

import (
	"context"

	"github.com/msolis/catfetch"
)

var _ catfetch.Observer = (*Observer)(nil)

// Observer is a mock implementation of catfetch.Observer.
type Observer struct {
	ObserveFn func(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.RequestTemplate, error)
	CloseFn   func() error
}

func (o *Observer) Observe(ctx context.Context, target *catfetch.CatalogTarget) (*catfetch.RequestTemplate, error) {
	return o.ObserveFn(ctx, target)
}

func (o *Observer) Close() error {
	if o.CloseFn == nil {
		return nil
	}
	return o.CloseFn()
}
