package sanitize

import (
	"strings"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/sheet"
)

// Emails returns every non-empty value of the Email column in row order.
func Emails(tbl *sheet.Table) []string {
	col := tbl.Column(model.ColumnEmail)
	if col < 0 {
		return nil
	}
	var out []string
	for r := range tbl.Rows {
		if v := strings.TrimSpace(tbl.Cell(r, col)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
