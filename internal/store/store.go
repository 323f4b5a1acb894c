// Package store provides durable persistence for contractor records and
// job rows, with SQLite and Postgres backends behind a common interface.
package store

import (
	"context"
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ContractorFilter specifies criteria for listing contractors.
type ContractorFilter struct {
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"` // substring of location_searched
	Search   string `json:"search,omitempty"`   // free text over name, address, phone
	Page     int    `json:"page,omitempty"`
	PerPage  int    `json:"per_page,omitempty"`
}

// EnrichmentFilter selects contractors that need enrichment.
type EnrichmentFilter struct {
	OnlyMissing bool   `json:"only_missing"`
	Category    string `json:"category,omitempty"`
	State       string `json:"state,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// EnrichmentUpdate is an authoritative enrichment write. Non-empty fields
// overwrite the stored values; the enriched flag, timestamp, and
// confidence are always set.
type EnrichmentUpdate struct {
	OwnerName   string
	Email       string
	LinkedInURL string
	Confidence  float64
	SourceURLs  []string
}

// ReconcileMerge is one surviving record's fill-missing update, applied
// while its duplicates are removed.
type ReconcileMerge struct {
	ID      int64
	Updates map[string]string
}

// JobUpdate carries a partial update to a collection job row. Nil fields
// are left untouched.
type JobUpdate struct {
	Status          *model.JobStatus
	TotalFound      *int
	Progress        *int
	CurrentCategory *string
	ErrorMessage    *string
}

// EnrichmentJobUpdate carries a partial update to an enrichment job row.
type EnrichmentJobUpdate struct {
	Status          *model.JobStatus
	Processed       *int
	Enriched        *int
	Failed          *int
	CurrentBusiness *string
	ErrorMessage    *string
}

// Stats summarizes the contractor store.
type Stats struct {
	TotalContractors    int            `json:"total_contractors"`
	WithOwner           int            `json:"with_owner"`
	WithPhone           int            `json:"with_phone"`
	WithEmail           int            `json:"with_email"`
	TotalJobs           int            `json:"total_jobs"`
	ActiveJobs          int            `json:"active_jobs"`
	CategoriesBreakdown map[string]int `json:"categories_breakdown"`
}

// EnrichmentStats summarizes enrichment coverage.
type EnrichmentStats struct {
	TotalEnriched        int     `json:"total_enriched"`
	WithLinkedIn         int     `json:"with_linkedin"`
	NeedsEnrichment      int     `json:"needs_enrichment"`
	AvgConfidence        float64 `json:"avg_confidence"`
	ActiveEnrichmentJobs int     `json:"active_enrichment_jobs"`
}

// CityState pairs a city with its state.
type CityState struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// LocationIndex lists the distinct states and cities present in the store.
type LocationIndex struct {
	States []string    `json:"states"`
	Cities []CityState `json:"cities"`
}

// Store defines persistence for contractors and jobs.
type Store interface {
	// Contractors
	CreateContractor(ctx context.Context, c *model.Contractor) error
	GetContractor(ctx context.Context, id int64) (*model.Contractor, error)
	UpdateContractorFields(ctx context.Context, id int64, updates map[string]string) error
	ListContractors(ctx context.Context, filter ContractorFilter) ([]model.Contractor, int, error)
	AllContractors(ctx context.Context) ([]model.Contractor, error)
	AllContractorsForExport(ctx context.Context) ([]model.Contractor, error)
	FindByNormalizedEmail(ctx context.Context, email string) (*model.Contractor, error)
	FindByWebsiteDomain(ctx context.Context, domain string) ([]model.Contractor, error)
	DeleteContractors(ctx context.Context, ids []int64) (int, error)
	// ApplyReconciliation commits all merge updates and duplicate
	// deletions in one transaction and returns the number of rows
	// deleted.
	ApplyReconciliation(ctx context.Context, merges []ReconcileMerge, remove []int64) (int, error)
	DeleteContractorsByState(ctx context.Context, removeStates, keepStates []string) (int, error)
	ContractorsForEnrichment(ctx context.Context, filter EnrichmentFilter) ([]model.Contractor, error)
	ApplyEnrichment(ctx context.Context, id int64, update EnrichmentUpdate) error

	// Collection jobs
	CreateJob(ctx context.Context, location string, categories []string) (*model.Job, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	ListJobs(ctx context.Context, limit int) ([]model.Job, error)
	UpdateJob(ctx context.Context, id int64, update JobUpdate) error
	DeleteJob(ctx context.Context, id int64) (bool, error)

	// Enrichment jobs
	CreateEnrichmentJob(ctx context.Context, totalRecords int, source string) (*model.EnrichmentJob, error)
	GetEnrichmentJob(ctx context.Context, id int64) (*model.EnrichmentJob, error)
	ListEnrichmentJobs(ctx context.Context, limit int) ([]model.EnrichmentJob, error)
	UpdateEnrichmentJob(ctx context.Context, id int64, update EnrichmentJobUpdate) error

	// Aggregates
	Stats(ctx context.Context) (*Stats, error)
	EnrichmentStats(ctx context.Context) (*EnrichmentStats, error)
	AvailableLocations(ctx context.Context) (*LocationIndex, error)

	// Lifecycle
	RecoverOrphans(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Coordinator owns the process-wide write-serialization lock. Every
// mutating path (ingest, reconcile, enrichment write, job updates) runs
// inside Write, so two concurrent ingestions for the same phone are
// strictly ordered and the second always observes the first's insert.
type Coordinator struct {
	mu sync.Mutex
}

// NewCoordinator creates a write coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Write runs fn while holding the process-wide write lock.
func (c *Coordinator) Write(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}
