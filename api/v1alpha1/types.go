// Package v1alpha1 holds the JSON shapes of the harvester HTTP API.
package v1alpha1

import "time"

type ScrapeLogStatus string

const (
	ScrapeLogStatusPending    ScrapeLogStatus = "PENDING"
	ScrapeLogStatusInProgress ScrapeLogStatus = "IN_PROGRESS"
	ScrapeLogStatusCompleted  ScrapeLogStatus = "COMPLETED"
	ScrapeLogStatusFailed     ScrapeLogStatus = "FAILED"
)

// ScrapeRequest starts, or replays, the scrape of one query.
type ScrapeRequest struct {
	Query string `json:"query" validate:"query"`
	// Cap of zero selects the server default.
	Cap int `json:"cap,omitempty" validate:"omitempty,min=1,max=500"`
}

type PlacesParams struct {
	Page           int      `validate:"omitempty,min=1"`
	Limit          int      `validate:"omitempty,min=1,max=100"`
	Category       string   `validate:"omitempty,max=256"`
	MinRating      *float64 `validate:"omitempty,min=0,max=5"`
	SearchCriteria string   `validate:"omitempty,max=256"`
}

type ScrapeLogsParams struct {
	Status string `validate:"omitempty,scrape_log_status"`
}

type Place struct {
	Id             string    `json:"id"`
	JobId          string    `json:"jobId"`
	SearchCriteria string    `json:"searchCriteria"`
	Name           string    `json:"name"`
	Address        *string   `json:"address,omitempty"`
	Category       string    `json:"category"`
	Rating         *float64  `json:"rating,omitempty"`
	Reviews        *int      `json:"reviews,omitempty"`
	Thumbnail      *string   `json:"thumbnail,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Website        *string   `json:"website,omitempty"`
	Link           string    `json:"link"`
	CreatedAt      time.Time `json:"createdAt"`
}

type PlaceList []Place

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type PlacePage struct {
	Places     PlaceList  `json:"places"`
	Pagination Pagination `json:"pagination"`
}

type ScrapeLog struct {
	Id             string          `json:"id"`
	SearchQuery    string          `json:"searchQuery"`
	Status         ScrapeLogStatus `json:"status"`
	ProcessedCount *int            `json:"processedCount,omitempty"`
	ErrorMessage   *string         `json:"errorMessage,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type ScrapeLogList []ScrapeLog

type Error struct {
	Error string `json:"error"`
}

type Status struct {
	Status string `json:"status"`
}
