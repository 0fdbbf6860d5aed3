package sanitize

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-cli/internal/linkcheck"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sheet"
)

// LinkChecker verifies a single social profile link.
type LinkChecker interface {
	Check(ctx context.Context, platform linkcheck.Platform, url string) model.CheckResult
}

// ScrubReport summarizes a ScrubLinks pass.
type ScrubReport struct {
	NoColumns   bool `json:"no_columns"`
	Checked     int  `json:"checked"`
	Cleared     int  `json:"cleared"`
	Unavailable int  `json:"unavailable"`
	Written     bool `json:"written"`
}

// ScrubOption configures ScrubLinks.
type ScrubOption func(*scrubConfig)

type scrubConfig struct {
	maxConcurrent int
}

// WithConcurrency sets how many links are checked at once.
func WithConcurrency(n int) ScrubOption {
	return func(c *scrubConfig) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

type linkCell struct {
	row, col int
	platform linkcheck.Platform
	url      string
}

// ScrubLinks clears Instagram and Facebook cells whose links do not verify.
// Rows are never removed. A link that could not be checked is cleared too.
func ScrubLinks(ctx context.Context, s sheet.Store, checker LinkChecker, opts ...ScrubOption) (*ScrubReport, error) {
	cfg := scrubConfig{maxConcurrent: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	tbl, err := s.ReadAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sanitize: read sheet")
	}

	columns := map[linkcheck.Platform]int{
		linkcheck.Instagram: tbl.Column(model.ColumnInstagram),
		linkcheck.Facebook:  tbl.Column(model.ColumnFacebook),
	}
	if columns[linkcheck.Instagram] < 0 && columns[linkcheck.Facebook] < 0 {
		zap.L().Warn("sanitize: sheet has no Instagram or Facebook column")
		return &ScrubReport{NoColumns: true}, nil
	}

	var cells []linkCell
	for r := range tbl.Rows {
		for _, p := range []linkcheck.Platform{linkcheck.Instagram, linkcheck.Facebook} {
			c := columns[p]
			if c < 0 {
				continue
			}
			if v := strings.TrimSpace(tbl.Cell(r, c)); v != "" {
				cells = append(cells, linkCell{row: r, col: c, platform: p, url: v})
			}
		}
	}

	results := make([]model.CheckResult, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.maxConcurrent)
	for i, cell := range cells {
		g.Go(func() error {
			results[i] = checker.Check(gctx, cell.platform, cell.url)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "sanitize: scrub links")
	}

	report := &ScrubReport{Checked: len(cells)}
	width := len(tbl.Header)
	for i, cell := range cells {
		res := results[i]
		if res.Status == model.CheckUnavailable {
			report.Unavailable++
		}
		if res.OK() {
			continue
		}
		tbl.Rows[cell.row] = sheet.PadRow(tbl.Rows[cell.row], width)
		tbl.Rows[cell.row][cell.col] = ""
		report.Cleared++

		zap.L().Debug("sanitize: cleared link",
			zap.String("platform", string(cell.platform)),
			zap.String("url", cell.url),
			zap.String("status", string(res.Status)),
			zap.String("reason", res.Reason),
		)
	}

	if report.Cleared == 0 {
		zap.L().Info("sanitize: all links verified", zap.Int("checked", report.Checked))
		return report, nil
	}

	for r := range tbl.Rows {
		tbl.Rows[r] = sheet.PadRow(tbl.Rows[r], width)
	}
	if err := s.Replace(ctx, tbl.Values()); err != nil {
		return nil, eris.Wrap(err, "sanitize: write scrubbed sheet")
	}
	report.Written = true

	zap.L().Info("sanitize: scrubbed links",
		zap.Int("checked", report.Checked),
		zap.Int("cleared", report.Cleared),
		zap.Int("unavailable", report.Unavailable),
	)
	return report, nil
}
