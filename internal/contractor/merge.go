package contractor

import "github.com/sells-group/leadgen-cli/internal/model"

// mergeFields are the contractor attributes a duplicate may contribute
// to the record it matched. Name, category, and provenance columns stay
// with the original.
var mergeFields = []struct {
	column string
	get    func(*model.Contractor) string
}{
	{"owner_name", func(c *model.Contractor) string { return c.OwnerName }},
	{"address", func(c *model.Contractor) string { return c.Address }},
	{"city", func(c *model.Contractor) string { return c.City }},
	{"state", func(c *model.Contractor) string { return c.State }},
	{"zip_code", func(c *model.Contractor) string { return c.ZipCode }},
	{"phone", func(c *model.Contractor) string { return c.Phone }},
	{"email", func(c *model.Contractor) string { return c.Email }},
	{"website", func(c *model.Contractor) string { return c.Website }},
}

// MergeMissing returns the column updates that fill gaps in existing
// with values from incoming. Fields existing already has are never
// overwritten.
func MergeMissing(existing, incoming *model.Contractor) map[string]string {
	updates := map[string]string{}
	for _, f := range mergeFields {
		if f.get(existing) == "" {
			if v := f.get(incoming); v != "" {
				updates[f.column] = v
			}
		}
	}
	return updates
}
