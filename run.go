package catfetch

import (
	"context"
	"time"
)

// RunStatus is the terminal state of one extraction run.
type RunStatus string

// Run statuses.
const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunResult is the outcome of one extraction run for one target: either a
// complete deduplicated record sequence plus the configuration used, or a
// failed outcome carrying the partial sequence and an error classification.
// A failed target never yields a silent empty result.
type RunResult struct {
	ID         string           `json:"id,omitempty"`
	Target     *CatalogTarget   `json:"target"`
	Config     *ConfigCandidate `json:"config,omitempty"`
	Records    []*ProductRecord `json:"records"`
	Status     RunStatus        `json:"status"`
	Pages      int              `json:"pages"`
	Retries    int              `json:"retries"`

	// RecordCount is the persisted record total. It is authoritative in
	// run summaries, where Records is not populated.
	RecordCount int       `json:"recordCount"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`

	// Err classifies a failed run. Nil when Status is RunCompleted.
	Err error `json:"-"`
}

// Validate returns an error if the run contains invalid fields.
func (r *RunResult) Validate() error {
	if r.Target == nil {
		return Errorf(EINVALID, "run target required")
	}
	if r.Status != RunCompleted && r.Status != RunFailed {
		return Errorf(EINVALID, "run status must be completed or failed")
	}
	return nil
}

// RunService persists extraction runs and their records.
type RunService interface {
	// CreateRun stores a finished run with its records.
	CreateRun(ctx context.Context, run *RunResult) error

	// FindRunByID retrieves a run, including its records.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*RunResult, error)

	// FindRuns retrieves run summaries matching the filter,
	// most recent first. Records are not populated.
	FindRuns(ctx context.Context, filter RunFilter) ([]*RunResult, error)
}

// RunFilter is a filter for FindRuns.
type RunFilter struct {
	TargetKey *string `json:"targetKey"`
	Status    *string `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
