package sheet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/model"
)

func TestFromValues(t *testing.T) {
	assert.True(t, FromValues(nil).Empty())

	tbl := FromValues([][]string{{"Name", "Phone"}, {"Acme", "441234"}})
	assert.Equal(t, []string{"Name", "Phone"}, tbl.Header)
	assert.Equal(t, [][]string{{"Acme", "441234"}}, tbl.Rows)
	assert.Equal(t, [][]string{{"Name", "Phone"}, {"Acme", "441234"}}, tbl.Values())

	assert.Nil(t, (&Table{}).Values())
}

func TestTable_ColumnAndCell(t *testing.T) {
	tbl := &Table{
		Header: []string{"Name", " instagram ", "FACEBOOK"},
		Rows:   [][]string{{"Acme", "https://instagram.com/acme"}, {}},
	}

	assert.Equal(t, 0, tbl.Column("name"))
	assert.Equal(t, 1, tbl.Column("Instagram"))
	assert.Equal(t, 2, tbl.Column("Facebook"))
	assert.Equal(t, -1, tbl.Column("LinkedIn"))

	assert.Equal(t, "https://instagram.com/acme", tbl.Cell(0, 1))
	assert.Equal(t, "", tbl.Cell(0, 2), "short row")
	assert.Equal(t, "", tbl.Cell(1, 0), "empty row")
	assert.Equal(t, "", tbl.Cell(5, 0), "row out of range")
	assert.Equal(t, "", tbl.Cell(0, -1), "missing column")
}

func TestTable_Leads(t *testing.T) {
	tbl := &Table{
		Header: []string{"Business", "Phone", "Email"},
		Rows: [][]string{
			{"Acme Plumbing", "441234", "info@acme.co.uk"},
			{"Short Row"},
		},
	}

	leads := tbl.Leads()
	require.Len(t, leads, 2)
	assert.Equal(t, model.Lead{Name: "Acme Plumbing", Phone: "441234", Email: "info@acme.co.uk"}, leads[0])
	assert.Equal(t, model.Lead{Name: "Short Row"}, leads[1])
}

func TestLeadRow(t *testing.T) {
	lead := model.Lead{Name: "New Co", Phone: "449999999999", Website: "newco.com", Email: "info@newco.com"}

	assert.Equal(t,
		[]string{"New Co", "449999999999", "", "newco.com", "info@newco.com", "", "", ""},
		LeadRow(model.DefaultHeader, lead))

	row := LeadRow([]string{"email", "Notes", "Business"}, lead)
	assert.Equal(t, []string{"info@newco.com", "", "New Co"}, row)
}

func TestPadRow(t *testing.T) {
	assert.Equal(t, []string{"a", "", ""}, PadRow([]string{"a"}, 3))
	assert.Equal(t, []string{"a", "b"}, PadRow([]string{"a", "b"}, 1))
}

// memStore is an in-memory Store that counts writes.
type memStore struct {
	values   [][]string
	appends  int
	replaces int
	failOn   string
}

func (m *memStore) ReadAll(context.Context) (*Table, error) {
	if m.failOn == "read" {
		return nil, errors.New("read failed")
	}
	cp := make([][]string, len(m.values))
	for i, r := range m.values {
		cp[i] = append([]string(nil), r...)
	}
	return FromValues(cp), nil
}

func (m *memStore) Append(_ context.Context, rows [][]string) error {
	if m.failOn == "append" {
		return errors.New("append failed")
	}
	m.appends++
	m.values = append(m.values, rows...)
	return nil
}

func (m *memStore) Replace(_ context.Context, values [][]string) error {
	m.replaces++
	m.values = values
	return nil
}

func TestAppendLeads_WritesHeaderOnEmptySheet(t *testing.T) {
	s := &memStore{}
	tbl, err := s.ReadAll(context.Background())
	require.NoError(t, err)

	n, err := AppendLeads(context.Background(), s, tbl, []model.Lead{{Name: "New Co", Phone: "449999999999"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, s.values, 2)
	assert.Equal(t, model.DefaultHeader, s.values[0])
	assert.Equal(t, "New Co", s.values[1][0])
	assert.Equal(t, 1, s.appends)
}

func TestAppendLeads_UsesExistingHeaderOrder(t *testing.T) {
	s := &memStore{values: [][]string{{"Phone", "Name"}, {"441234", "Acme"}}}
	tbl, _ := s.ReadAll(context.Background())

	_, err := AppendLeads(context.Background(), s, tbl, []model.Lead{{Name: "New Co", Phone: "449999999999"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"449999999999", "New Co"}, s.values[2])
}

func TestAppendLeads_NoLeadsNoWrite(t *testing.T) {
	s := &memStore{}
	n, err := AppendLeads(context.Background(), s, &Table{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.appends)
}

func TestAppendLeads_Error(t *testing.T) {
	s := &memStore{failOn: "append"}
	_, err := AppendLeads(context.Background(), s, &Table{}, []model.Lead{{Name: "x"}})
	require.Error(t, err)
}
