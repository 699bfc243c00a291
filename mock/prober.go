package mock

import (
	"context"

	"github.com/msolis/catfetch"
)

var _ catfetch.Prober = (*Prober)(nil)

// Prober is a mock implementation of catfetch.Prober.
type Prober struct {
	ProbeFn func(ctx context.Context, cand *catfetch.ConfigCandidate) (*catfetch.ProbeResult, error)
}

func (p *Prober) Probe(ctx context.Context, cand *catfetch.ConfigCandidate) (*catfetch.ProbeResult, error) {
	return p.ProbeFn(ctx, cand)
}
