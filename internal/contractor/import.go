package contractor

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// headerAliases maps the CSV header spellings seen in the wild to
// contractor fields.
var headerAliases = map[string]string{
	"name":           "name",
	"business name":  "name",
	"business":       "name",
	"company":        "name",
	"company name":   "name",
	"owner":          "owner_name",
	"owner name":     "owner_name",
	"contact":        "owner_name",
	"contact name":   "owner_name",
	"category":       "category",
	"type":           "category",
	"address":        "address",
	"street":         "address",
	"street address": "address",
	"city":           "city",
	"state":          "state",
	"zip":            "zip_code",
	"zip code":       "zip_code",
	"zipcode":        "zip_code",
	"postal code":    "zip_code",
	"phone":          "phone",
	"phone number":   "phone",
	"telephone":      "phone",
	"email":          "email",
	"e-mail":         "email",
	"email address":  "email",
	"website":        "website",
	"url":            "website",
	"web":            "website",
	"linkedin":       "linkedin_url",
	"linkedin url":   "linkedin_url",
}

// ImportReport summarizes a CSV import.
type ImportReport struct {
	Rows    int `json:"rows"`
	Created int `json:"created"`
	Merged  int `json:"merged"`
	Skipped int `json:"skipped"`
}

// Importer reads contractor rows from CSV and feeds them through the
// ingestion gateway, so imported rows deduplicate against the store
// exactly like scraped ones.
type Importer struct {
	gateway *Gateway
	log     *zap.Logger
}

// NewImporter creates an Importer.
func NewImporter(gw *Gateway) *Importer {
	return &Importer{
		gateway: gw,
		log:     zap.L().With(zap.String("component", "importer")),
	}
}

// Import reads CSV from r and ingests every row that has a name. The
// header row is matched case-insensitively against known spellings;
// unrecognized columns are ignored.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "contractor: read csv header")
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = headerAliases[strings.ToLower(strings.TrimSpace(h))]
	}

	report := &ImportReport{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "contractor: read csv row")
		}
		report.Rows++

		c := rowToContractor(fields, row)
		if c.Name == "" {
			report.Skipped++
			continue
		}

		result, err := im.gateway.Ingest(ctx, c)
		if err != nil {
			return nil, err
		}
		switch result.Action {
		case ActionCreated:
			report.Created++
		case ActionMerged:
			report.Merged++
		default:
			report.Skipped++
		}
	}

	im.log.Info("csv import complete",
		zap.Int("rows", report.Rows),
		zap.Int("created", report.Created),
		zap.Int("merged", report.Merged),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func rowToContractor(fields []string, row []string) *model.Contractor {
	c := &model.Contractor{
		Source:           "csv_import",
		LocationSearched: "csv_import",
	}
	for i, field := range fields {
		if field == "" || i >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}
		switch field {
		case "name":
			c.Name = val
		case "owner_name":
			c.OwnerName = val
		case "category":
			c.Category = val
		case "address":
			c.Address = val
		case "city":
			c.City = val
		case "state":
			c.State = val
		case "zip_code":
			c.ZipCode = val
		case "phone":
			c.Phone = val
		case "email":
			c.Email = val
		case "website":
			c.Website = val
		case "linkedin_url":
			c.LinkedInURL = val
		}
	}
	if c.Category == "" {
		c.Category = "uncategorized"
	}
	return c
}
