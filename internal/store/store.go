// Package store persists analysis run history: runs, their stages and the
// candidate zones they produced.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siting-cli/internal/model"
)

// Returned, wrapped, when the requested record does not exist.
var (
	ErrRunNotFound   = eris.New("run not found")
	ErrStageNotFound = eris.New("stage not found")
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Zones
	SaveZones(ctx context.Context, runID string, zones []model.Zone) (int64, error)
	ListZones(ctx context.Context, runID string) ([]model.Zone, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// defaultLimit caps ListRuns when the filter sets no limit.
const defaultLimit = 100
