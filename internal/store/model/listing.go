package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Listing is a persisted business record. Optional fields are pointers so that
// "absent" and "zero" survive a round trip through the store.
type Listing struct {
	ID             uuid.UUID `gorm:"primaryKey;type:TEXT"`
	JobID          uuid.UUID `gorm:"type:TEXT;index;not null"`
	SearchCriteria string    `gorm:"not null"`
	Name           string    `gorm:"not null"`
	Address        *string
	Category       string
	Rating         *float64
	Reviews        *int
	Thumbnail      *string
	Phone          *string
	Website        *string
	Link           string `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ListingList []Listing

func (l Listing) String() string {
	val, _ := json.Marshal(l)
	return string(val)
}

// ListingSummary is the lightweight card data read from the results feed.
// Empty strings mean the card did not carry the field.
type ListingSummary struct {
	Link        string
	Name        string
	RatingText  string
	ReviewsText string
	Category    string
	Thumbnail   string
}

// ListingDetail holds the fields read from a listing's detail view.
type ListingDetail struct {
	Address string
	Phone   string
	Website string
}
