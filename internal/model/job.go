package model

import "time"

// JobStatus is the lifecycle state shared by collection and enrichment jobs.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status is final. A job never leaves a
// terminal state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// OrphanedJobMessage is recorded on jobs found non-terminal at startup.
// In-memory worker handles do not survive a restart, so such jobs can
// never make further progress.
const OrphanedJobMessage = "server restarted - job was interrupted"

// Job is one location+categories collection run.
type Job struct {
	ID              int64      `json:"id" db:"id"`
	Location        string     `json:"location" db:"location"`
	Categories      []string   `json:"categories" db:"categories"`
	Status          JobStatus  `json:"status" db:"status"`
	TotalFound      int        `json:"total_found" db:"total_found"`
	Progress        int        `json:"progress" db:"progress"`
	TotalCategories int        `json:"total_categories" db:"total_categories"`
	CurrentCategory string     `json:"current_category,omitempty" db:"current_category"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// EnrichmentJob is one batch enrichment run over selected contractors.
type EnrichmentJob struct {
	ID              int64      `json:"id" db:"id"`
	Status          JobStatus  `json:"status" db:"status"`
	TotalRecords    int        `json:"total_records" db:"total_records"`
	Processed       int        `json:"processed" db:"processed"`
	Enriched        int        `json:"enriched" db:"enriched"`
	Failed          int        `json:"failed" db:"failed"`
	CurrentBusiness string     `json:"current_business,omitempty" db:"current_business"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
	Source          string     `json:"source" db:"source"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Enrichment job sources.
const (
	EnrichmentSourceDatabase  = "database"
	EnrichmentSourceCSVImport = "csv_import"
)
