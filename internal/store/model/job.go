package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

// Scrape job statuses. COMPLETED and FAILED are terminal.
const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ScrapeJob is the job-log record gating re-scrapes of a search query.
type ScrapeJob struct {
	ID             uuid.UUID `gorm:"primaryKey;type:TEXT"`
	SearchQuery    string    `gorm:"uniqueIndex:scrape_jobs_search_query;not null"`
	Status         JobStatus `gorm:"type:VARCHAR(20);not null;default:'PENDING'"`
	ProcessedCount *int
	ErrorMessage   *string
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Listings       []Listing `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE;"`
}

type ScrapeJobList []ScrapeJob

func (j ScrapeJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
