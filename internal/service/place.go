package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type PlaceFilter struct {
	Page           int
	Limit          int
	Category       string
	MinRating      *float64
	SearchCriteria string
}

type PlacePage struct {
	Places     model.ListingList
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

type PlaceService struct {
	store store.Store
}

func NewPlaceService(s store.Store) *PlaceService {
	return &PlaceService{store: s}
}

// ListPlaces returns one page of stored listings, oldest first.
func (p *PlaceService) ListPlaces(ctx context.Context, filter PlaceFilter) (*PlacePage, error) {
	if filter.Page < 1 {
		filter.Page = defaultPage
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	storeFilter := store.NewListingQueryFilter()
	if filter.Category != "" {
		storeFilter = storeFilter.ByCategory(filter.Category)
	}
	if filter.MinRating != nil {
		storeFilter = storeFilter.ByMinRating(*filter.MinRating)
	}
	if filter.SearchCriteria != "" {
		storeFilter = storeFilter.BySearchCriteria(filter.SearchCriteria)
	}
	opts := store.NewListingQueryOptions().
		WithSortOrder(store.SortByCreatedTime).
		WithPage(filter.Page, filter.Limit)

	places, total, err := p.store.Listing().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, err
	}

	return &PlacePage{
		Places:     places,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

type ScrapeLogService struct {
	store store.Store
}

func NewScrapeLogService(s store.Store) *ScrapeLogService {
	return &ScrapeLogService{store: s}
}

// ListScrapeLogs returns every recorded job, optionally restricted to one status.
func (l *ScrapeLogService) ListScrapeLogs(ctx context.Context, status *model.JobStatus) (model.ScrapeJobList, error) {
	filter := store.NewScrapeJobQueryFilter()
	if status != nil {
		filter = filter.ByStatus(*status)
	}
	return l.store.ScrapeJob().List(ctx, filter)
}

func (l *ScrapeLogService) GetScrapeLog(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error) {
	job, err := l.store.ScrapeJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrScrapeJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}
