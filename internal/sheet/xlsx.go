package sheet

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXStore keeps the lead table in one worksheet of a local Excel file.
// Writes rewrite that worksheet in place and leave the others untouched.
type XLSXStore struct {
	path      string
	sheetName string
}

// NewXLSXStore creates a store for the named worksheet in path.
func NewXLSXStore(path, sheetName string) *XLSXStore {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &XLSXStore{path: path, sheetName: sheetName}
}

// ReadAll implements Store. A missing file or worksheet is an empty table.
func (s *XLSXStore) ReadAll(_ context.Context) (*Table, error) {
	values, err := s.read()
	if err != nil {
		return nil, err
	}
	return FromValues(values), nil
}

func (s *XLSXStore) read() ([][]string, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}
	sheet, ok := f.Sheet[s.sheetName]
	if !ok {
		return nil, nil
	}

	values := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			values = append(values, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		values = append(values, cells)
	}
	return trimTrailingEmpty(values), nil
}

// trimTrailingEmpty drops blank rows at the end of a worksheet.
func trimTrailingEmpty(values [][]string) [][]string {
	for len(values) > 0 {
		last := values[len(values)-1]
		blank := true
		for _, c := range last {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			break
		}
		values = values[:len(values)-1]
	}
	return values
}

// Append implements Store.
func (s *XLSXStore) Append(_ context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	values, err := s.read()
	if err != nil {
		return err
	}
	return s.write(append(values, rows...))
}

// Replace implements Store.
func (s *XLSXStore) Replace(_ context.Context, values [][]string) error {
	return s.write(values)
}

func (s *XLSXStore) write(values [][]string) error {
	f, err := s.workbook()
	if err != nil {
		return err
	}
	sheet, ok := f.Sheet[s.sheetName]
	if !ok {
		sheet, err = f.AddSheet(s.sheetName)
		if err != nil {
			return eris.Wrapf(err, "sheet: add worksheet %q", s.sheetName)
		}
	}
	sheet.Rows = nil
	sheet.MaxRow = 0
	sheet.MaxCol = 0
	for _, rowData := range values {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
		if len(rowData) > sheet.MaxCol {
			sheet.MaxCol = len(rowData)
		}
	}
	if err := f.Save(s.path); err != nil {
		return eris.Wrap(err, "sheet: save xlsx")
	}
	return nil
}

// workbook opens the existing file so other worksheets survive a write.
func (s *XLSXStore) workbook() (*xlsx.File, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return xlsx.NewFile(), nil
	}
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}
	return f, nil
}
