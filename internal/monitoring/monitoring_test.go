package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedRun(t *testing.T, st store.Store, kind model.RunKind, result *model.RunResult) {
	t.Helper()
	ctx := context.Background()
	run, err := st.CreateRun(ctx, kind)
	require.NoError(t, err)
	if result != nil {
		require.NoError(t, st.UpdateRunResult(ctx, run.ID, result))
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now().UTC()
	runs := []model.Run{
		{Kind: model.RunKindWorkflow, Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(4 * time.Second),
			Result: &model.RunResult{Scraped: 10, Appended: 3}},
		{Kind: model.RunKindWorkflow, Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(2 * time.Second),
			Result: &model.RunResult{Scraped: 5, Appended: 1}},
		{Kind: model.RunKindWorkflow, Status: model.RunStatusFailed, Result: &model.RunResult{Error: "boom"}},
		{Kind: model.RunKindWorkflow, Status: model.RunStatusPolling},
		{Kind: model.RunKindDedupe, Status: model.RunStatusComplete, Result: &model.RunResult{RowsRemoved: 2}},
		{Kind: model.RunKindVerify, Status: model.RunStatusFailed, Result: &model.RunResult{Error: "quota"}},
	}

	snap := Summarize(runs)
	assert.Equal(t, 4, snap.WorkflowTotal)
	assert.Equal(t, 2, snap.WorkflowComplete)
	assert.Equal(t, 1, snap.WorkflowFailed)
	assert.Equal(t, 1, snap.WorkflowRunning)
	assert.InDelta(t, 1.0/3.0, snap.WorkflowFailRate, 0.001)
	assert.Equal(t, 15, snap.LeadsScraped)
	assert.Equal(t, 4, snap.LeadsAppended)
	assert.InDelta(t, 3.0, snap.AvgWorkflowSecs, 0.001)
	assert.Equal(t, 2, snap.MaintenanceTotal)
	assert.Equal(t, 1, snap.MaintenanceFailed)
	assert.Equal(t, 2, snap.RowsRemoved)
}

func TestSummarize_Empty(t *testing.T) {
	snap := Summarize(nil)
	assert.Zero(t, snap.WorkflowTotal)
	assert.Zero(t, snap.WorkflowFailRate)
	assert.Zero(t, snap.AvgWorkflowSecs)
}

func TestCollector_Collect(t *testing.T) {
	st := newTestStore(t)
	seedRun(t, st, model.RunKindWorkflow, &model.RunResult{Appended: 2})
	seedRun(t, st, model.RunKindWorkflow, &model.RunResult{Error: "apify down"})
	seedRun(t, st, model.RunKindEmails, &model.RunResult{ValidEmails: 4})

	snap, err := NewCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.WorkflowTotal)
	assert.Equal(t, 1, snap.WorkflowFailed)
	assert.Equal(t, 2, snap.LeadsAppended)
	assert.Equal(t, 1, snap.MaintenanceTotal)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(&MetricsSnapshot{
		WorkflowComplete: 9,
		WorkflowFailed:   1,
		WorkflowFailRate: 0.1,
		LookbackHours:    24,
	})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_WorkflowFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(&MetricsSnapshot{
		WorkflowComplete: 1,
		WorkflowFailed:   3,
		WorkflowFailRate: 0.75,
		LookbackHours:    24,
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertWorkflowFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "75.0%")
	assert.Equal(t, 4, alerts[0].Details["finished"])
}

func TestAlerter_Evaluate_TooFewRunsForRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.1})

	alerts := a.Evaluate(&MetricsSnapshot{
		WorkflowFailed:   2,
		WorkflowFailRate: 1.0,
	})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_MaintenanceFailure(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(&MetricsSnapshot{MaintenanceTotal: 3, MaintenanceFailed: 1, LookbackHours: 6})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertMaintenanceFailure, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "last 6h")
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertWorkflowFailureRate, Severity: "high", Message: "one"},
		{Type: AlertMaintenanceFailure, Severity: "medium", Message: "two"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertMaintenanceFailure}}))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertMaintenanceFailure}}))
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
	}))
	defer ts.Close()

	st := newTestStore(t)
	seedRun(t, st, model.RunKindVerify, &model.RunResult{Error: "sheet unavailable"})

	cfg := config.MonitoringConfig{WebhookURL: ts.URL, LookbackWindowHours: 1, FailureRateThreshold: 0.5}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	sent := checker.check(context.Background(), zap.NewNop())
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_CheckDoesNotRepeatFiringAlert(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
	}))
	defer ts.Close()

	st := newTestStore(t)
	seedRun(t, st, model.RunKindDedupe, &model.RunResult{Error: "sheet unavailable"})

	cfg := config.MonitoringConfig{WebhookURL: ts.URL, LookbackWindowHours: 1, FailureRateThreshold: 0.5}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	assert.Equal(t, 1, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, 0, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, int32(1), received.Load())
	assert.True(t, checker.firing[AlertMaintenanceFailure])
}

func TestChecker_CheckRetriesUndeliveredAlert(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	st := newTestStore(t)
	seedRun(t, st, model.RunKindVerify, &model.RunResult{Error: "sheet unavailable"})

	cfg := config.MonitoringConfig{WebhookURL: ts.URL, LookbackWindowHours: 1, FailureRateThreshold: 0.5}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	assert.Equal(t, 0, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, 1, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(newTestStore(t)), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}
