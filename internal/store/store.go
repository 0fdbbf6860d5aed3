// Package store persists the history of workflow and maintenance runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/lead-cli/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`

	// CreatedAfter limits results to runs created after this time.
	CreatedAfter time.Time `json:"created_after,omitempty"`
}

// Store defines the run history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	// UpdateRunResult stores the final result and marks the run complete, or
	// failed when result.Error is set.
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// finalStatus is the status recorded alongside a result.
func finalStatus(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}
