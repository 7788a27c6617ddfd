package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	input := RunInput{
		InputDir:   "/data/plans",
		PlanFiles:  3,
		MapPath:    "/data/client map.xlsx",
		OutputPath: "/data/out.csv",
		Strict:     true,
	}
	run, err := s.CreateRun(ctx, input)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, RunStatusRunning))

	result := &RunResult{
		OutputPath:  "/data/out.csv",
		Plans:       3,
		Rows:        120,
		Hits:        300,
		Misses:      60,
		FailedPlans: []string{"broken.xml"},
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, RunStatusCompleted, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, input, got.Input)
	require.NotNil(t, got.Result)
	assert.Equal(t, 300, got.Result.Hits)
	assert.Equal(t, []string{"broken.xml"}, got.Result.FailedPlans)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateRunStatus(context.Background(), "missing", RunStatusRunning)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.UpdateRunResult(context.Background(), "missing", RunStatusFailed, &RunResult{Error: "x"})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(ctx, RunInput{InputDir: "/data"})
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, s.UpdateRunStatus(ctx, run.ID, RunStatusFailed))
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	failed, err := s.ListRuns(ctx, RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
}
