// Package sheet reads and writes the persisted lead table.
package sheet

import (
	"strings"

	"github.com/sells-group/lead-cli/internal/model"
)

// Table is a whole-sheet snapshot: a header row followed by data rows.
// Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// FromValues splits raw sheet values into header and rows.
func FromValues(values [][]string) *Table {
	if len(values) == 0 {
		return &Table{}
	}
	return &Table{Header: values[0], Rows: values[1:]}
}

// Values returns the header followed by the rows.
func (t *Table) Values() [][]string {
	if len(t.Header) == 0 && len(t.Rows) == 0 {
		return nil
	}
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

// Empty reports whether the table has neither header nor rows.
func (t *Table) Empty() bool {
	return len(t.Header) == 0 && len(t.Rows) == 0
}

// Column returns the index of the header cell equal to name, ignoring case
// and surrounding whitespace, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Cell returns the value at row/col, or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// nameAliases are header names accepted for the business name column.
var nameAliases = []string{model.ColumnName, "Business"}

func (t *Table) nameColumn() int {
	for _, alias := range nameAliases {
		if i := t.Column(alias); i >= 0 {
			return i
		}
	}
	return -1
}

// Leads maps every row onto a Lead by header name.
func (t *Table) Leads() []model.Lead {
	cols := map[string]int{model.ColumnName: t.nameColumn()}
	for _, c := range model.DefaultHeader[1:] {
		cols[c] = t.Column(c)
	}

	leads := make([]model.Lead, 0, len(t.Rows))
	for r := range t.Rows {
		leads = append(leads, model.Lead{
			Name:      t.Cell(r, cols[model.ColumnName]),
			Phone:     t.Cell(r, cols[model.ColumnPhone]),
			Address:   t.Cell(r, cols[model.ColumnAddress]),
			Website:   t.Cell(r, cols[model.ColumnWebsite]),
			Email:     t.Cell(r, cols[model.ColumnEmail]),
			Instagram: t.Cell(r, cols[model.ColumnInstagram]),
			Facebook:  t.Cell(r, cols[model.ColumnFacebook]),
			LinkedIn:  t.Cell(r, cols[model.ColumnLinkedIn]),
		})
	}
	return leads
}

// LeadRow lays out lead in header order. Unknown headers get "".
func LeadRow(header []string, lead model.Lead) []string {
	row := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		for _, c := range model.DefaultHeader {
			if strings.EqualFold(name, c) {
				row[i] = lead.Value(c)
				break
			}
		}
		if strings.EqualFold(name, "Business") {
			row[i] = lead.Name
		}
	}
	return row
}

// PadRow returns row extended with empty cells to width.
func PadRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
