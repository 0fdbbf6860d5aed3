package sheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/config"
)

func TestCSVStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	s := NewCSVStore(path)
	ctx := context.Background()

	tbl, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.True(t, tbl.Empty())

	require.NoError(t, s.Append(ctx, [][]string{{"Name", "Phone"}, {"Acme, Ltd", "441234"}}))
	require.NoError(t, s.Append(ctx, [][]string{{"New Co", "449999999999"}}))

	tbl, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Phone"}, tbl.Header)
	assert.Equal(t, [][]string{{"Acme, Ltd", "441234"}, {"New Co", "449999999999"}}, tbl.Rows)

	require.NoError(t, s.Replace(ctx, [][]string{{"Name"}, {"Only"}}))
	tbl, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Only"}}, tbl.Rows)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestCSVStore_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Phone,Email\nAcme\nNew Co,4499\n"), 0o644))

	tbl, err := NewCSVStore(path).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Acme"}, {"New Co", "4499"}}, tbl.Rows)
	assert.Equal(t, "", tbl.Cell(0, 2))
}

func TestCSVStore_AppendNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, NewCSVStore(path).Append(context.Background(), nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, config.SheetConfig{Backend: "csv", Path: filepath.Join(dir, "a.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	s, err = Open(ctx, config.SheetConfig{Backend: "xlsx", Path: filepath.Join(dir, "a.xlsx"), SheetName: "leads"})
	require.NoError(t, err)
	assert.IsType(t, &XLSXStore{}, s)

	_, err = Open(ctx, config.SheetConfig{Backend: "airtable"})
	require.Error(t, err)
}
