package apify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
)

const (
	defaultPollInitial = 30 * time.Second
	defaultPollCap     = 2 * time.Minute
	defaultPollTimeout = 30 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
	retry   resilience.RetryConfig
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
		retry:   resilience.DefaultRetryConfig(),
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the overall wait (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithStatusAttempts allows each status request up to n attempts when it
// fails transiently.
func WithStatusAttempts(n int) PollOption {
	return func(c *pollConfig) {
		c.retry = resilience.Attempts(n)
	}
}

// RunGetter reads the current state of an actor run.
type RunGetter interface {
	GetRun(ctx context.Context, id string) (*model.JobHandle, error)
}

// PollRun polls GetRun until the run reaches a terminal status and returns
// the id of the dataset a successful run produced. The interval doubles
// after every non-terminal observation, up to the cap.
func PollRun(ctx context.Context, client RunGetter, id string, opts ...PollOption) (string, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.retry.OnRetry = resilience.RetryLogger("apify", "get_run")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := min(cfg.initial, cfg.cap)
	for {
		run, err := resilience.DoVal(ctx, cfg.retry, func(ctx context.Context) (*model.JobHandle, error) {
			return client.GetRun(ctx, id)
		})
		if err != nil {
			return "", eris.Wrapf(err, "apify: poll run %s", id)
		}

		switch run.Status {
		case model.JobStatusSucceeded:
			if run.DatasetID == "" {
				return "", eris.Wrapf(ErrMissingDataset, "apify: run %s", id)
			}
			return run.DatasetID, nil
		case model.JobStatusFailed, model.JobStatusAborted, model.JobStatusTimedOut:
			return "", eris.Wrapf(ErrJobFailed, "apify: run %s ended with status %s", id, run.Status)
		}

		zap.L().Info("apify: run in progress",
			zap.String("run_id", id),
			zap.String("status", string(run.Status)),
			zap.Duration("next_poll", interval),
		)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", id)
		case <-timer.C:
		}

		interval = min(interval*2, cfg.cap)
	}
}
