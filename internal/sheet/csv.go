package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// CSVStore keeps the lead table in a local CSV file. Every write rewrites
// the whole file through a temporary file and rename.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store for path. The file is created on first write.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// ReadAll implements Store. A missing file is an empty table.
func (s *CSVStore) ReadAll(_ context.Context) (*Table, error) {
	values, err := s.read()
	if err != nil {
		return nil, err
	}
	return FromValues(values), nil
}

func (s *CSVStore) read() ([][]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	values, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: parse csv %s", s.path)
	}
	return values, nil
}

// Append implements Store.
func (s *CSVStore) Append(_ context.Context, rows [][]string) error {
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
func (s *CSVStore) Replace(_ context.Context, values [][]string) error {
	return s.write(values)
}

func (s *CSVStore) write(values [][]string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".leads-*.csv")
	if err != nil {
		return eris.Wrap(err, "sheet: create temp csv")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(values); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "sheet: write csv")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "sheet: close temp csv")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return eris.Wrap(err, "sheet: replace csv")
	}
	return nil
}
