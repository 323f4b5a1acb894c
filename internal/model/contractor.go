// Package model defines the core data types shared across the application.
package model

import "time"

// Contractor is the canonical record for a single real-world business.
// At most one live record exists per business; the contractor package
// enforces this through phone-based identity resolution.
type Contractor struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	OwnerName string `json:"owner_name,omitempty" db:"owner_name"`
	Category  string `json:"category" db:"category"`

	// Location
	Address string `json:"address,omitempty" db:"address"`
	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	ZipCode string `json:"zip_code,omitempty" db:"zip_code"`

	// Contact
	Phone       string `json:"phone,omitempty" db:"phone"`
	Email       string `json:"email,omitempty" db:"email"`
	Website     string `json:"website,omitempty" db:"website"`
	LinkedInURL string `json:"linkedin_url,omitempty" db:"linkedin_url"`

	// Provenance
	Source           string `json:"source" db:"source"`
	LocationSearched string `json:"location_searched" db:"location_searched"`

	// Enrichment metadata
	Enriched             bool     `json:"enriched" db:"enriched"`
	EnrichmentConfidence float64  `json:"enrichment_confidence" db:"enrichment_confidence"`
	EnrichmentSourceURLs []string `json:"enrichment_source_urls,omitempty" db:"enrichment_source_urls"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty" db:"enriched_at"`
}

// MaxEnrichmentSources caps the audit trail of enrichment source URLs
// kept on a record.
const MaxEnrichmentSources = 5
