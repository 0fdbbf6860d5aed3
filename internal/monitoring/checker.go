// Package monitoring watches the run history and posts alerts to a webhook
// when runs start failing.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
)

// Checker runs periodic alert checks in the background. An alert is sent
// once when its condition starts and again only after the condition has
// cleared for at least one check.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	firing map[AlertType]bool
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		firing:    make(map[AlertType]bool),
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return 0
	}
	log.Info("monitoring: run window",
		zap.Int("workflow_total", snap.WorkflowTotal),
		zap.Int("workflow_failed", snap.WorkflowFailed),
		zap.Int("leads_scraped", snap.LeadsScraped),
		zap.Int("leads_appended", snap.LeadsAppended),
		zap.Int("maintenance_total", snap.MaintenanceTotal),
		zap.Int("maintenance_failed", snap.MaintenanceFailed),
		zap.Int("rows_removed", snap.RowsRemoved),
		zap.Int("links_cleared", snap.LinksCleared),
	)

	alerts := c.alerter.Evaluate(snap)
	current := make(map[AlertType]bool, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		current[a.Type] = true
		if !c.firing[a.Type] {
			fresh = append(fresh, a)
		}
	}
	// Conditions that cleared may alert again next time they trigger.
	for t := range c.firing {
		if !current[t] {
			delete(c.firing, t)
		}
	}
	if len(fresh) == 0 {
		log.Debug("monitoring: no new alerts", zap.Int("still_firing", len(c.firing)))
		return 0
	}

	sent := 0
	for _, a := range fresh {
		if c.alerter.SendAlerts(ctx, []Alert{a}) == 1 {
			c.firing[a.Type] = true
			sent++
		}
	}
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}
