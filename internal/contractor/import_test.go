package contractor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestImporter_HeaderAliases(t *testing.T) {
	gw, st := newTestGateway(t)
	im := NewImporter(gw)

	csvData := strings.Join([]string{
		"Business Name,Owner,Phone Number,E-Mail,URL,Zip Code",
		"Smith Plumbing,John Smith,(304) 555-0100,info@smith.com,https://smith.com,25401",
	}, "\n")

	report, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 1, report.Created)

	all, err := st.AllContractors(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	c := all[0]
	assert.Equal(t, "Smith Plumbing", c.Name)
	assert.Equal(t, "John Smith", c.OwnerName)
	assert.Equal(t, "(304) 555-0100", c.Phone)
	assert.Equal(t, "info@smith.com", c.Email)
	assert.Equal(t, "https://smith.com", c.Website)
	assert.Equal(t, "25401", c.ZipCode)
	assert.Equal(t, "csv_import", c.Source)
	assert.Equal(t, "uncategorized", c.Category)
}

func TestImporter_SkipsRowsWithoutName(t *testing.T) {
	gw, _ := newTestGateway(t)
	im := NewImporter(gw)

	csvData := strings.Join([]string{
		"name,phone",
		",3045550100",
		"Smith Plumbing,3045550101",
	}, "\n")

	report, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
}

func TestImporter_MergesAgainstExistingRecords(t *testing.T) {
	gw, st := newTestGateway(t)
	im := NewImporter(gw)

	mustCreate(t, st, model.Contractor{Name: "Smith Plumbing", Phone: "3045550100"})

	csvData := strings.Join([]string{
		"name,phone,email",
		"Smith Plumbing,(304) 555-0100,info@smith.com",
	}, "\n")

	report, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Merged)

	all, err := st.AllContractors(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "info@smith.com", all[0].Email)
}

func TestImporter_DeduplicatesWithinFile(t *testing.T) {
	gw, st := newTestGateway(t)
	im := NewImporter(gw)

	csvData := strings.Join([]string{
		"name,phone",
		"Smith Plumbing,3045550100",
		"Smith Plumbing LLC,(304) 555-0100",
	}, "\n")

	report, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)

	all, err := st.AllContractors(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImporter_UnknownColumnsIgnored(t *testing.T) {
	gw, _ := newTestGateway(t)
	im := NewImporter(gw)

	csvData := strings.Join([]string{
		"name,revenue,notes",
		"Smith Plumbing,1000000,great outfit",
	}, "\n")

	report, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
}
