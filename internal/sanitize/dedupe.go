// Package sanitize performs whole-table maintenance on the lead sheet.
package sanitize

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/sheet"
)

// DedupeReport summarizes a Deduplicate pass.
type DedupeReport struct {
	RowsBefore int  `json:"rows_before"`
	RowsAfter  int  `json:"rows_after"`
	Removed    int  `json:"removed"`
	Written    bool `json:"written"`
}

// dedupeKey is the first cell, trimmed and lower-cased.
func dedupeKey(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(row[0]))
}

// DedupeRows keeps the first row for each first-column key. Rows whose
// first column is empty are always kept.
func DedupeRows(rows [][]string) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		key := dedupeKey(row)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, row)
	}
	return out
}

// Deduplicate removes rows whose first column repeats an earlier row's,
// keeping the header. The sheet is rewritten only when something was removed.
func Deduplicate(ctx context.Context, s sheet.Store) (*DedupeReport, error) {
	tbl, err := s.ReadAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sanitize: read sheet")
	}

	report := &DedupeReport{RowsBefore: len(tbl.Rows), RowsAfter: len(tbl.Rows)}
	if len(tbl.Rows) == 0 {
		zap.L().Info("sanitize: nothing to deduplicate")
		return report, nil
	}

	kept := DedupeRows(tbl.Rows)
	report.RowsAfter = len(kept)
	report.Removed = len(tbl.Rows) - len(kept)
	if report.Removed == 0 {
		zap.L().Info("sanitize: no duplicates", zap.Int("rows", len(tbl.Rows)))
		return report, nil
	}

	out := &sheet.Table{Header: tbl.Header, Rows: kept}
	if err := s.Replace(ctx, out.Values()); err != nil {
		return nil, eris.Wrap(err, "sanitize: write deduplicated sheet")
	}
	report.Written = true

	zap.L().Info("sanitize: removed duplicates",
		zap.Int("removed", report.Removed),
		zap.Int("remaining", report.RowsAfter),
	)
	return report, nil
}
