// Package pipeline orchestrates the lead workflow and the sheet maintenance
// operations, recording every invocation in the run store.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/contact"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sanitize"
	"github.com/sells-group/lead-cli/internal/sheet"
	"github.com/sells-group/lead-cli/internal/store"
	"github.com/sells-group/lead-cli/pkg/apify"
)

// EmailValidator decides whether an address is deliverable enough to list.
type EmailValidator interface {
	Validate(ctx context.Context, email string, checkDomain bool) bool
}

// Workflow wires the collaborators of every operation. Operations assume a
// single writer per sheet; callers that may run them concurrently must hold
// the lock returned by TryAcquire.
type Workflow struct {
	cfg      *config.Config
	apify    apify.Client
	sheet    sheet.Store
	enricher *contact.Enricher
	links    sanitize.LinkChecker
	emails   EmailValidator
	store    store.Store

	mu sync.Mutex
}

// New creates a Workflow. st may be nil, in which case no run history is kept.
func New(
	cfg *config.Config,
	apifyClient apify.Client,
	sheetStore sheet.Store,
	enricher *contact.Enricher,
	links sanitize.LinkChecker,
	emails EmailValidator,
	st store.Store,
) *Workflow {
	return &Workflow{
		cfg:      cfg,
		apify:    apifyClient,
		sheet:    sheetStore,
		enricher: enricher,
		links:    links,
		emails:   emails,
		store:    st,
	}
}

// TryAcquire takes the single-writer lock without blocking. ok is false when
// another operation already holds it.
func (w *Workflow) TryAcquire() (release func(), ok bool) {
	if !w.mu.TryLock() {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(w.mu.Unlock) }, true
}

// runTracker records one operation in the run store. Store failures are
// logged and never abort the operation.
type runTracker struct {
	store  store.Store
	run    *model.Run
	result *model.RunResult
	log    *zap.Logger
}

func (w *Workflow) startRun(ctx context.Context, kind model.RunKind) *runTracker {
	t := &runTracker{
		store:  w.store,
		result: &model.RunResult{},
		log:    zap.L().With(zap.String("kind", string(kind))),
	}
	if w.store == nil {
		return t
	}
	run, err := w.store.CreateRun(ctx, kind)
	if err != nil {
		t.log.Warn("pipeline: failed to create run", zap.Error(err))
		return t
	}
	t.run = run
	t.log = t.log.With(zap.String("run_id", run.ID))
	return t
}

func (t *runTracker) setStatus(ctx context.Context, status model.RunStatus) {
	if t.run == nil {
		return
	}
	if err := t.store.UpdateRunStatus(ctx, t.run.ID, status); err != nil {
		t.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// phase runs fn, timing it and appending its PhaseResult to the run result.
func (t *runTracker) phase(name string, fn func() (map[string]any, error)) error {
	start := time.Now()
	meta, err := fn()
	duration := time.Since(start).Milliseconds()

	pr := model.PhaseResult{
		Name:     name,
		Status:   model.PhaseStatusComplete,
		Duration: duration,
		Metadata: meta,
	}
	if err != nil {
		pr.Status = model.PhaseStatusFailed
		pr.Error = err.Error()
		t.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		t.log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
		)
	}
	t.result.Phases = append(t.result.Phases, pr)
	return err
}

// finish stores the result. A non-nil err marks the run failed.
func (t *runTracker) finish(err error) {
	if err != nil {
		t.result.Error = err.Error()
	}
	if t.run == nil {
		return
	}
	// The caller's context may already be cancelled; the record still has to land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if saveErr := t.store.UpdateRunResult(ctx, t.run.ID, t.result); saveErr != nil {
		t.log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}
}
