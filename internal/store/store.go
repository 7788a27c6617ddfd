// Package store persists fill-run history: what was submitted, how far it
// got, and the hit/miss outcome. Two backends share one interface, SQLite
// for single-user CLI use and Postgres for the shared job server.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the lifecycle state of a fill run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunInput records what a run was asked to do.
type RunInput struct {
	InputDir     string `json:"input_dir,omitempty"`
	PlanFiles    int    `json:"plan_files,omitempty"`
	MapPath      string `json:"map_path,omitempty"`
	TemplatePath string `json:"template_path,omitempty"`
	OverlayPath  string `json:"overlay_path,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`
	Strict       bool   `json:"strict"`
}

// RunResult records a finished run's outcome.
type RunResult struct {
	OutputPath  string   `json:"output_path,omitempty"`
	Plans       int      `json:"plans"`
	Rows        int      `json:"rows"`
	Hits        int      `json:"hits"`
	Misses      int      `json:"misses"`
	FailedPlans []string `json:"failed_plans,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Run is one fill run.
type Run struct {
	ID        string     `json:"id"`
	Input     RunInput   `json:"input"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the run-history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, input RunInput) (*Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status RunStatus, result *RunResult) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
