package contractor

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// ExportFilter narrows a CSV export. Empty fields match everything.
type ExportFilter struct {
	Category string
	Location string // substring of location_searched, case-insensitive
	State    string
	City     string
}

var exportHeader = []string{
	"Name", "Owner/Contact", "Category", "Address", "City", "State", "Zip Code",
	"Phone", "Email", "Website", "Source", "Location Searched",
}

// ExportFilename derives the download filename from the active filters,
// e.g. contractors_WV_Martinsburg_plumber.csv.
func ExportFilename(f ExportFilter) string {
	parts := []string{"contractors"}
	if f.State != "" {
		parts = append(parts, strings.ToUpper(f.State))
	}
	if f.City != "" {
		parts = append(parts, strings.ReplaceAll(f.City, " ", "_"))
	}
	if f.Category != "" {
		parts = append(parts, f.Category)
	}
	return strings.Join(parts, "_") + ".csv"
}

// ExportCSV writes all contractors matching the filter to w, ordered by
// category then name. Returns the number of data rows written.
func ExportCSV(ctx context.Context, st store.Store, f ExportFilter, w io.Writer) (int, error) {
	records, err := st.AllContractorsForExport(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "contractor: export query")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, eris.Wrap(err, "contractor: write header")
	}

	rows := 0
	for i := range records {
		c := &records[i]
		if !exportMatch(c, f) {
			continue
		}
		row := []string{
			c.Name, c.OwnerName, c.Category, c.Address, c.City, c.State,
			c.ZipCode, c.Phone, c.Email, c.Website, c.Source, c.LocationSearched,
		}
		if err := cw.Write(row); err != nil {
			return rows, eris.Wrap(err, "contractor: write row")
		}
		rows++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, eris.Wrap(err, "contractor: flush csv")
	}
	return rows, nil
}

func exportMatch(c *model.Contractor, f ExportFilter) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(c.LocationSearched), strings.ToLower(f.Location)) {
		return false
	}
	if f.State != "" && !strings.EqualFold(c.State, f.State) {
		return false
	}
	if f.City != "" && !strings.EqualFold(c.City, f.City) {
		return false
	}
	return true
}
