package main_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/msolis/catfetch"
	main "github.com/msolis/catfetch/cmd/catfetch"
	"github.com/msolis/catfetch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("lists runs with ID, status, and target", func(t *testing.T) {
		t.Parallel()

		target, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/9")
		require.NoError(t, err)

		runs := &mock.RunService{
			FindRunsFn: func(_ context.Context, _ catfetch.RunFilter) ([]*catfetch.RunResult, error) {
				return []*catfetch.RunResult{
					{
						ID:          "run-123",
						Target:      target,
						Status:      catfetch.RunCompleted,
						RecordCount: 143,
						StartedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
					},
					{
						ID:          "run-456",
						Target:      target,
						Status:      catfetch.RunFailed,
						StartedAt:   time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC),
					},
				}, nil
			},
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: stderr,
			Runs:   runs,
		}

		cmd := &main.RunsListCmd{Limit: 20}

		err = cmd.Run(deps)

		require.NoError(t, err)
		output := stdout.String()
		assert.Contains(t, output, "run-123")
		assert.Contains(t, output, "run-456")
		assert.Contains(t, output, "completed")
		assert.Contains(t, output, "failed")
		assert.Contains(t, output, "143 records")
		assert.Contains(t, output, "https://shop.example.com/catalog/9")
	})

	t.Run("passes target and status filters", func(t *testing.T) {
		t.Parallel()

		var received catfetch.RunFilter
		runs := &mock.RunService{
			FindRunsFn: func(_ context.Context, filter catfetch.RunFilter) ([]*catfetch.RunResult, error) {
				received = filter
				return nil, nil
			},
		}

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Runs:   runs,
		}

		cmd := &main.RunsListCmd{
			Target: "https://shop.example.com/catalog/9",
			Status: "failed",
			Limit:  5,
		}

		require.NoError(t, cmd.Run(deps))

		require.NotNil(t, received.TargetKey)
		assert.Equal(t, "https://shop.example.com/catalog/9", *received.TargetKey)
		require.NotNil(t, received.Status)
		assert.Equal(t, "failed", *received.Status)
		assert.Equal(t, 5, received.Limit)
	})

	t.Run("shows helpful message when no runs exist", func(t *testing.T) {
		t.Parallel()

		runs := &mock.RunService{
			FindRunsFn: func(_ context.Context, _ catfetch.RunFilter) ([]*catfetch.RunResult, error) {
				return nil, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Runs:   runs,
		}

		cmd := &main.RunsListCmd{}

		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "No runs")
	})

	t.Run("explains when run history is disabled", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
		}

		cmd := &main.RunsListCmd{}

		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "disabled")
	})

	t.Run("returns error when FindRuns fails", func(t *testing.T) {
		t.Parallel()

		runs := &mock.RunService{
			FindRunsFn: func(_ context.Context, _ catfetch.RunFilter) ([]*catfetch.RunResult, error) {
				return nil, catfetch.Errorf(catfetch.EINTERNAL, "database error")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: stderr,
			Runs:   runs,
		}

		cmd := &main.RunsListCmd{}

		err := cmd.Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "error:")
	})
}

func TestRunsShowCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("shows run details with records", func(t *testing.T) {
		t.Parallel()

		target, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/9")
		require.NoError(t, err)

		runs := &mock.RunService{
			FindRunByIDFn: func(_ context.Context, id string) (*catfetch.RunResult, error) {
				assert.Equal(t, "run-123", id)
				return &catfetch.RunResult{
					ID:     "run-123",
					Target: target,
					Config: &catfetch.ConfigCandidate{Label: "all-flag"},
					Status: catfetch.RunCompleted,
					Pages:  3,
					Records: []*catfetch.ProductRecord{
						{ID: "p1", Name: "Leche Entera 1L", Price: "18.50"},
						{ID: "p2", Name: "Pan Integral", Price: "24.00", OfferPrice: "19.90"},
					},
					StartedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
					FinishedAt: time.Date(2025, 6, 1, 10, 2, 0, 0, time.UTC),
				}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Runs:   runs,
		}

		cmd := &main.RunsShowCmd{ID: "run-123"}

		require.NoError(t, cmd.Run(deps))

		output := stdout.String()
		assert.Contains(t, output, "run-123")
		assert.Contains(t, output, "all-flag")
		assert.Contains(t, output, "Leche Entera 1L")
		assert.Contains(t, output, "Pan Integral")
		assert.Contains(t, output, "19.90 (offer)")
	})

	t.Run("shows the failure classification for failed runs", func(t *testing.T) {
		t.Parallel()

		target, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/9")
		require.NoError(t, err)

		runs := &mock.RunService{
			FindRunByIDFn: func(_ context.Context, id string) (*catfetch.RunResult, error) {
				return &catfetch.RunResult{
					ID:     "run-456",
					Target: target,
					Status: catfetch.RunFailed,
					Err:    catfetch.Errorf(catfetch.EUNAVAILABLE, "page 3 failed after 4 attempts"),
				}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Runs:   runs,
		}

		cmd := &main.RunsShowCmd{ID: "run-456"}

		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "page 3 failed after 4 attempts")
	})

	t.Run("returns error when run not found", func(t *testing.T) {
		t.Parallel()

		runs := &mock.RunService{
			FindRunByIDFn: func(_ context.Context, id string) (*catfetch.RunResult, error) {
				return nil, catfetch.Errorf(catfetch.ENOTFOUND, "run not found")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: stderr,
			Runs:   runs,
		}

		cmd := &main.RunsShowCmd{ID: "nope"}

		err := cmd.Run(deps)

		require.Error(t, err)
		assert.Equal(t, catfetch.ENOTFOUND, catfetch.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})
}
