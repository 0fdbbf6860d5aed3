package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.RunKindWorkflow)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusPolling))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunKindWorkflow, got.Kind)
	assert.Equal(t, model.RunStatusPolling, got.Status)
	assert.Nil(t, got.Result)

	result := &model.RunResult{
		JobID:    "job-1",
		Scraped:  3,
		Accepted: 2,
		Appended: 2,
		Phases: []model.PhaseResult{
			{Name: "submit", Status: model.PhaseStatusComplete, Duration: 12},
		},
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "job-1", got.Result.JobID)
	assert.Equal(t, 2, got.Result.Appended)
	require.Len(t, got.Result.Phases, 1)
	assert.Equal(t, "submit", got.Result.Phases[0].Name)
}

func TestSQLite_UpdateRunResult_ErrorMarksFailed(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.RunKindDedupe)
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunResult(ctx, run.ID, &model.RunResult{Error: "sheet unavailable"}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "sheet unavailable", got.Result.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateRunStatus(ctx, "missing", model.RunStatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateRunResult(ctx, "missing", &model.RunResult{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	kinds := []model.RunKind{model.RunKindWorkflow, model.RunKindDedupe, model.RunKindWorkflow}
	var ids []string
	for _, k := range kinds {
		r, err := s.CreateRun(ctx, k)
		require.NoError(t, err)
		ids = append(ids, r.ID)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, s.UpdateRunResult(ctx, ids[0], &model.RunResult{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	workflows, err := s.ListRuns(ctx, RunFilter{Kind: model.RunKindWorkflow})
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, ids[0], complete[0].ID)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_ListRuns_CreatedAfter(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.CreateRun(ctx, model.RunKindWorkflow)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)
	recent, err := s.CreateRun(ctx, model.RunKindVerify)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, RunFilter{CreatedAfter: cutoff})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)
}
