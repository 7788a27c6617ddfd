package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgres_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), RunInput{InputDir: "/data", Strict: true})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRunStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", RunStatusRunning))

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := s.UpdateRunStatus(context.Background(), "missing", RunStatusRunning)
	assert.True(t, eris.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, input, status, result, created_at, updated_at FROM runs`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "input", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", []byte(`{"input_dir":"/data","strict":true}`), "completed",
				[]byte(`{"plans":2,"rows":10,"hits":18,"misses":2}`), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/data", run.Input.InputDir)
	assert.True(t, run.Input.Strict)
	require.NotNil(t, run.Result)
	assert.Equal(t, 18, run.Result.Hits)

	mock.ExpectQuery(`SELECT id, input, status, result, created_at, updated_at FROM runs`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.GetRun(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, input, status, result, created_at, updated_at FROM runs WHERE status`).
		WithArgs("failed", 50, 0).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "input", "status", "result", "created_at", "updated_at"}).
			AddRow("run-2", []byte(`{"input_dir":"/data"}`), "failed",
				[]byte(`{"error":"template missing"}`), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.Equal(t, "template missing", runs[0].Result.Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}
