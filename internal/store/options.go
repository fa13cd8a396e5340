package store

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

func (b BaseQuerier) apply(tx *gorm.DB) *gorm.DB {
	for _, fn := range b.QueryFn {
		tx = fn(tx)
	}
	return tx
}

type ListingQueryFilter BaseQuerier

func NewListingQueryFilter() *ListingQueryFilter {
	return &ListingQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *ListingQueryFilter) ByJobID(jobID uuid.UUID) *ListingQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("job_id = ?", jobID)
	})
	return f
}

// ByText matches name, category or search criteria, ignoring case.
func (f *ListingQueryFilter) ByText(text string) *ListingQueryFilter {
	pattern := likePattern(text)
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("("+likeClause("name")+" OR "+likeClause("category")+" OR "+likeClause("search_criteria")+")", pattern, pattern, pattern)
	})
	return f
}

// BySearchCriteria matches name or search criteria, ignoring case.
func (f *ListingQueryFilter) BySearchCriteria(text string) *ListingQueryFilter {
	pattern := likePattern(text)
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("("+likeClause("name")+" OR "+likeClause("search_criteria")+")", pattern, pattern)
	})
	return f
}

func (f *ListingQueryFilter) ByCategory(category string) *ListingQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("category = ?", category)
	})
	return f
}

func (f *ListingQueryFilter) ByMinRating(rating float64) *ListingQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("rating >= ?", rating)
	})
	return f
}

type ListingQueryOptions BaseQuerier

func NewListingQueryOptions() *ListingQueryOptions {
	return &ListingQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// WithPage limits results to the 1-based page of the given size.
func (o *ListingQueryOptions) WithPage(page, limit int) *ListingQueryOptions {
	if page < 1 {
		page = 1
	}
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset((page - 1) * limit).Limit(limit)
	})
	return o
}

func (o *ListingQueryOptions) WithSortOrder(sort SortOrder) *ListingQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return sortBy(tx, sort)
	})
	return o
}

type ScrapeJobQueryFilter BaseQuerier

func NewScrapeJobQueryFilter() *ScrapeJobQueryFilter {
	return &ScrapeJobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// ByQuery matches the exact query text.
func (f *ScrapeJobQueryFilter) ByQuery(query string) *ScrapeJobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("search_query = ?", query)
	})
	return f
}

func (f *ScrapeJobQueryFilter) ByStatus(status model.JobStatus) *ScrapeJobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return f
}

func (f *ScrapeJobQueryFilter) ByID(id uuid.UUID) *ScrapeJobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id = ?", id)
	})
	return f
}

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByID
	SortByUpdatedTime
	SortByCreatedTime
)

func sortBy(tx *gorm.DB, sort SortOrder) *gorm.DB {
	switch sort {
	case SortByID:
		return tx.Order("id")
	case SortByUpdatedTime:
		return tx.Order("updated_at")
	case SortByCreatedTime:
		return tx.Order("created_at")
	default:
		return tx
	}
}

func likePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(text))
	return "%" + escaped + "%"
}

// likeClause lower-cases column on the SQL side. Sqlite connections register a
// Unicode lower, see registerSQLiteFunctions.
func likeClause(column string) string {
	return "LOWER(COALESCE(" + column + ", '')) LIKE ? ESCAPE '\\'"
}
