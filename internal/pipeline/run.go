package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/identity"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sheet"
	"github.com/sells-group/lead-cli/pkg/apify"
)

// RunFullWorkflow submits a places search, waits for it, filters the results
// against the sheet, enriches the new leads and appends them. The returned
// result is non-nil even on failure.
func (w *Workflow) RunFullWorkflow(ctx context.Context) (*model.RunResult, error) {
	t := w.startRun(ctx, model.RunKindWorkflow)
	err := w.runWorkflow(ctx, t)
	t.finish(err)

	if err != nil {
		return t.result, err
	}
	t.log.Info("pipeline: workflow complete",
		zap.Int("scraped", t.result.Scraped),
		zap.Int("accepted", t.result.Accepted),
		zap.Int("enriched", t.result.Enriched),
		zap.Int("appended", t.result.Appended),
	)
	return t.result, nil
}

func (w *Workflow) runWorkflow(ctx context.Context, t *runTracker) error {
	res := t.result
	search := w.cfg.Search

	t.setStatus(ctx, model.RunStatusSubmitting)
	var job *model.JobHandle
	err := t.phase("submit", func() (map[string]any, error) {
		input := apify.NewRunInput(search.Term, search.Location, search.MaxResults)
		if search.Language != "" {
			input.Language = search.Language
		}
		var err error
		job, err = w.apify.StartRun(ctx, input)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: start run")
		}
		res.JobID = job.ID
		return map[string]any{
			"search":   search.Term,
			"location": search.Location,
			"job_id":   job.ID,
		}, nil
	})
	if err != nil {
		return err
	}

	t.setStatus(ctx, model.RunStatusPolling)
	err = t.phase("poll", func() (map[string]any, error) {
		datasetID, err := apify.PollRun(ctx, w.apify, job.ID,
			apify.WithPollInterval(w.cfg.Apify.PollInterval()),
			apify.WithPollCap(w.cfg.Apify.PollMaxInterval()),
			apify.WithPollTimeout(w.cfg.Apify.PollMaxWait()),
			apify.WithStatusAttempts(w.cfg.Apify.StatusAttempts),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: poll run %s", job.ID)
		}
		res.DatasetID = datasetID
		return map[string]any{"dataset_id": datasetID}, nil
	})
	if err != nil {
		return err
	}

	t.setStatus(ctx, model.RunStatusResolving)
	var records []model.ScrapeRecord
	err = t.phase("fetch_dataset", func() (map[string]any, error) {
		var err error
		records, err = w.apify.GetDatasetItems(ctx, res.DatasetID)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fetch dataset %s", res.DatasetID)
		}
		res.Scraped = len(records)
		return map[string]any{"records": len(records)}, nil
	})
	if err != nil {
		return err
	}

	var existing *sheet.Table
	err = t.phase("read_sheet", func() (map[string]any, error) {
		var err error
		existing, err = w.sheet.ReadAll(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: read sheet")
		}
		return map[string]any{"rows": len(existing.Rows)}, nil
	})
	if err != nil {
		return err
	}

	var leads []model.Lead
	_ = t.phase("resolve", func() (map[string]any, error) {
		var stats identity.Stats
		leads, stats = identity.Resolve(records, existing.Leads())
		res.Accepted = len(leads)
		meta := make(map[string]any, len(stats))
		for d, n := range stats {
			meta[string(d)] = n
		}
		return meta, nil
	})

	if len(leads) == 0 {
		t.log.Info("pipeline: no new leads")
		return nil
	}

	t.setStatus(ctx, model.RunStatusEnriching)
	_ = t.phase("enrich", func() (map[string]any, error) {
		results := w.enricher.Enrich(ctx, leads)
		for i, r := range results {
			leads[i] = r.Lead
			switch {
			case r.Skipped:
			case !r.Fetched:
				res.FetchFailed++
			case !r.Bundle.IsEmpty():
				res.Enriched++
			}
		}
		return map[string]any{
			"enriched":     res.Enriched,
			"fetch_failed": res.FetchFailed,
		}, nil
	})
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pipeline: enrich")
	}

	t.setStatus(ctx, model.RunStatusWriting)
	return t.phase("append", func() (map[string]any, error) {
		n, err := sheet.AppendLeads(ctx, w.sheet, existing, leads)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: append leads")
		}
		res.Appended = n
		return map[string]any{"appended": n}, nil
	})
}
