package contractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestExportCSV_OrderAndHeader(t *testing.T) {
	st := newTestStore(t)
	mustCreate(t, st, model.Contractor{Name: "Zeta Roofing", Category: model.CategoryRoofer})
	mustCreate(t, st, model.Contractor{Name: "Acme Plumbing", Category: model.CategoryPlumber, Phone: "3045550100"})
	mustCreate(t, st, model.Contractor{Name: "Beta Plumbing", Category: model.CategoryPlumber, Phone: "3045550101"})

	var buf bytes.Buffer
	n, err := ExportCSV(context.Background(), st, ExportFilter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, exportHeader, rows[0])
	// Ordered by category then name.
	assert.Equal(t, "Acme Plumbing", rows[1][0])
	assert.Equal(t, "Beta Plumbing", rows[2][0])
	assert.Equal(t, "Zeta Roofing", rows[3][0])
}

func TestExportCSV_Filters(t *testing.T) {
	st := newTestStore(t)
	mustCreate(t, st, model.Contractor{Name: "WV Plumber", State: "WV", City: "Martinsburg", Phone: "3045550100"})
	mustCreate(t, st, model.Contractor{Name: "MD Plumber", State: "MD", City: "Hagerstown", Phone: "3015550200", LocationSearched: "Hagerstown, MD"})
	mustCreate(t, st, model.Contractor{Name: "WV Roofer", State: "WV", Category: model.CategoryRoofer, Phone: "3045550300"})

	var buf bytes.Buffer
	n, err := ExportCSV(context.Background(), st, ExportFilter{State: "wv", Category: model.CategoryPlumber}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "WV Plumber")
	assert.NotContains(t, buf.String(), "MD Plumber")

	buf.Reset()
	n, err = ExportCSV(context.Background(), st, ExportFilter{Location: "hagerstown"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "MD Plumber")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "contractors.csv", ExportFilename(ExportFilter{}))
	assert.Equal(t, "contractors_WV.csv", ExportFilename(ExportFilter{State: "wv"}))
	assert.Equal(t, "contractors_MD_Charles_Town_plumber.csv",
		ExportFilename(ExportFilter{State: "MD", City: "Charles Town", Category: "plumber"}))
}
