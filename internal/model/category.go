package model

// Contractor categories supported by collection jobs.
const (
	CategoryPlumber           = "plumber"
	CategoryElectrician       = "electrician"
	CategoryRoofer            = "roofer"
	CategoryHVAC              = "hvac"
	CategoryPainter           = "painter"
	CategoryCarpenter         = "carpenter"
	CategoryGeneralContractor = "general_contractor"
	CategoryLandscaper        = "landscaper"
	CategoryMason             = "mason"
	CategoryMechanic          = "mechanic"
	CategoryAutoRepair        = "auto_repair"
	CategoryAutoBody          = "auto_body"
	CategoryTireShop          = "tire_shop"
)

// Categories lists all supported categories in display order.
var Categories = []string{
	CategoryPlumber,
	CategoryElectrician,
	CategoryRoofer,
	CategoryHVAC,
	CategoryPainter,
	CategoryCarpenter,
	CategoryGeneralContractor,
	CategoryLandscaper,
	CategoryMason,
	CategoryMechanic,
	CategoryAutoRepair,
	CategoryAutoBody,
	CategoryTireShop,
}

// CategorySearchTerms expands a category into the web search terms used
// during the discovery phase.
var CategorySearchTerms = map[string][]string{
	CategoryPlumber:           {"plumber", "plumbing"},
	CategoryElectrician:       {"electrician", "electrical contractor"},
	CategoryRoofer:            {"roofer", "roofing contractor"},
	CategoryHVAC:              {"hvac", "heating and cooling", "air conditioning"},
	CategoryPainter:           {"painter", "painting contractor"},
	CategoryCarpenter:         {"carpenter", "carpentry"},
	CategoryGeneralContractor: {"general contractor", "home builder"},
	CategoryLandscaper:        {"landscaper", "landscaping", "lawn care"},
	CategoryMason:             {"mason", "masonry", "concrete contractor"},
	CategoryMechanic:          {"mechanic", "auto mechanic"},
	CategoryAutoRepair:        {"auto repair", "car repair"},
	CategoryAutoBody:          {"auto body", "body shop", "collision repair"},
	CategoryTireShop:          {"tire shop", "tire dealer"},
}

// SearchTermsFor returns the search terms for a category, falling back
// to the raw category string when unknown.
func SearchTermsFor(category string) []string {
	if terms, ok := CategorySearchTerms[category]; ok {
		return terms
	}
	return []string{category}
}

// Location is a predefined search target.
type Location struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// SearchString formats the location as "City, ST" for search queries.
func (l Location) SearchString() string {
	return l.City + ", " + l.State
}

// DefaultLocations lists the built-in search targets.
var DefaultLocations = []Location{
	{ID: 1, Name: "Berkeley County, WV", City: "Martinsburg", State: "WV"},
	{ID: 2, Name: "Jefferson County, WV", City: "Charles Town", State: "WV"},
	{ID: 3, Name: "Frederick County, VA", City: "Winchester", State: "VA"},
	{ID: 4, Name: "Washington County, MD", City: "Hagerstown", State: "MD"},
}
