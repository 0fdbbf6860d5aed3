package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sanitize"
)

// Deduplicate removes rows that repeat an earlier row's name.
func (w *Workflow) Deduplicate(ctx context.Context) (*sanitize.DedupeReport, error) {
	t := w.startRun(ctx, model.RunKindDedupe)
	t.setStatus(ctx, model.RunStatusWriting)

	var report *sanitize.DedupeReport
	err := t.phase("dedupe", func() (map[string]any, error) {
		var err error
		report, err = sanitize.Deduplicate(ctx, w.sheet)
		if err != nil {
			return nil, err
		}
		t.result.RowsRemoved = report.Removed
		return map[string]any{
			"rows_before": report.RowsBefore,
			"rows_after":  report.RowsAfter,
			"written":     report.Written,
		}, nil
	})
	t.finish(err)
	return report, err
}

// VerifyLinks clears Instagram and Facebook cells that do not verify.
func (w *Workflow) VerifyLinks(ctx context.Context) (*sanitize.ScrubReport, error) {
	t := w.startRun(ctx, model.RunKindVerify)
	t.setStatus(ctx, model.RunStatusEnriching)

	var report *sanitize.ScrubReport
	err := t.phase("verify_links", func() (map[string]any, error) {
		var err error
		report, err = sanitize.ScrubLinks(ctx, w.sheet, w.links,
			sanitize.WithConcurrency(w.cfg.Verify.MaxConcurrent),
		)
		if err != nil {
			return nil, err
		}
		t.result.LinksCleared = report.Cleared
		return map[string]any{
			"checked":     report.Checked,
			"cleared":     report.Cleared,
			"unavailable": report.Unavailable,
			"written":     report.Written,
		}, nil
	})
	t.finish(err)
	return report, err
}

// EmailReport lists the distinct addresses of the Email column split by
// validity. Both lists are sorted.
type EmailReport struct {
	Total         int      `json:"total" yaml:"total"`
	Unique        int      `json:"unique" yaml:"unique"`
	DomainChecked bool     `json:"domain_checked" yaml:"domain_checked"`
	Valid         []string `json:"valid" yaml:"valid"`
	Invalid       []string `json:"invalid" yaml:"invalid"`
}

// ListValidatedEmails reads the Email column and validates each distinct
// address, confirming the domain's MX records when checkDomain is set.
func (w *Workflow) ListValidatedEmails(ctx context.Context, checkDomain bool) (*EmailReport, error) {
	t := w.startRun(ctx, model.RunKindEmails)

	var report *EmailReport
	err := t.phase("validate_emails", func() (map[string]any, error) {
		tbl, err := w.sheet.ReadAll(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: read sheet")
		}

		all := sanitize.Emails(tbl)
		unique := uniqueEmails(all)
		t.log.Info("pipeline: validating emails",
			zap.Int("unique", len(unique)),
			zap.Int("total", len(all)),
		)

		valid := make([]bool, len(unique))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(w.cfg.Email.MaxConcurrent, 1))
		for i, email := range unique {
			g.Go(func() error {
				valid[i] = w.emails.Validate(gctx, email, checkDomain)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: validate emails")
		}

		report = &EmailReport{
			Total:         len(all),
			Unique:        len(unique),
			DomainChecked: checkDomain,
			Valid:         []string{},
			Invalid:       []string{},
		}
		for i, email := range unique {
			if valid[i] {
				report.Valid = append(report.Valid, email)
			} else {
				report.Invalid = append(report.Invalid, email)
			}
		}
		sort.Strings(report.Valid)
		sort.Strings(report.Invalid)

		t.result.ValidEmails = len(report.Valid)
		return map[string]any{
			"valid":   len(report.Valid),
			"invalid": len(report.Invalid),
		}, nil
	})
	t.finish(err)
	return report, err
}

// uniqueEmails drops repeated addresses, comparing case-insensitively and
// keeping the first spelling seen.
func uniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	var out []string
	for _, e := range emails {
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
