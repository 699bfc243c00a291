package mock

import (
	"context"

	"github.com/msolis/catfetch"
)

var _ catfetch.RunService = (*RunService)(nil)

// RunService is a mock implementation of catfetch.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *catfetch.RunResult) error
	FindRunByIDFn func(ctx context.Context, id string) (*catfetch.RunResult, error)
	FindRunsFn    func(ctx context.Context, filter catfetch.RunFilter) ([]*catfetch.RunResult, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *catfetch.RunResult) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*catfetch.RunResult, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter catfetch.RunFilter) ([]*catfetch.RunResult, error) {
	return s.FindRunsFn(ctx, filter)
}
