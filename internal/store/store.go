// Package store persists a local ledger of synchronization runs so past
// passes over a video can be inspected and failed ones retried.
package store

import (
	"context"

	"github.com/danang-eats/foodsync/internal/model"
)

// RunFilter narrows ListRuns results.
type RunFilter struct {
	VideoID string
	Status  model.RunStatus
	Limit   int
	Offset  int
}

// Store records synchronization runs.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, videoID string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	Close() error
}
