package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	// Workflow metrics (within lookback window).
	WorkflowTotal    int     `json:"workflow_total"`
	WorkflowComplete int     `json:"workflow_complete"`
	WorkflowFailed   int     `json:"workflow_failed"`
	WorkflowRunning  int     `json:"workflow_running"`
	WorkflowFailRate float64 `json:"workflow_fail_rate"`
	LeadsScraped     int     `json:"leads_scraped"`
	LeadsAppended    int     `json:"leads_appended"`

	// Maintenance metrics (dedupe, verify, emails).
	MaintenanceTotal  int `json:"maintenance_total"`
	MaintenanceFailed int `json:"maintenance_failed"`
	RowsRemoved       int `json:"rows_removed"`
	LinksCleared      int `json:"links_cleared"`

	AvgWorkflowSecs float64 `json:"avg_workflow_secs"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := Summarize(runs)
	snap.LookbackHours = lookbackHours
	snap.CollectedAt = now
	return snap, nil
}

// Summarize computes the snapshot counters for runs.
func Summarize(runs []model.Run) *MetricsSnapshot {
	snap := &MetricsSnapshot{}

	var totalDur time.Duration
	for _, r := range runs {
		if r.Kind != model.RunKindWorkflow {
			snap.MaintenanceTotal++
			if r.Status == model.RunStatusFailed {
				snap.MaintenanceFailed++
			}
			if r.Result != nil {
				snap.RowsRemoved += r.Result.RowsRemoved
				snap.LinksCleared += r.Result.LinksCleared
			}
			continue
		}

		snap.WorkflowTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.WorkflowComplete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
		case model.RunStatusFailed:
			snap.WorkflowFailed++
		default:
			snap.WorkflowRunning++
		}
		if r.Result != nil {
			snap.LeadsScraped += r.Result.Scraped
			snap.LeadsAppended += r.Result.Appended
		}
	}

	if finished := snap.WorkflowComplete + snap.WorkflowFailed; finished > 0 {
		snap.WorkflowFailRate = float64(snap.WorkflowFailed) / float64(finished)
	}
	if snap.WorkflowComplete > 0 {
		snap.AvgWorkflowSecs = totalDur.Seconds() / float64(snap.WorkflowComplete)
	}
	return snap
}
