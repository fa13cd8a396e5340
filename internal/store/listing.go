package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/store/model"
	"gorm.io/gorm"
)

type Listing interface {
	Create(ctx context.Context, listing model.Listing) (*model.Listing, error)
	CountByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
	Search(ctx context.Context, text string) (model.ListingList, error)
	List(ctx context.Context, filter *ListingQueryFilter, opts *ListingQueryOptions) (model.ListingList, int64, error)
}

type ListingStore struct {
	db *gorm.DB
}

// Make sure we conform to Listing interface
var _ Listing = (*ListingStore)(nil)

func NewListingStore(db *gorm.DB) Listing {
	return &ListingStore{db: db}
}

func (s *ListingStore) Create(ctx context.Context, listing model.Listing) (*model.Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if err := s.getDB(ctx).WithContext(ctx).Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("creating listing %q: %w", listing.Link, translateError(err))
	}
	return &listing, nil
}

func (s *ListingStore) CountByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	tx := BaseQuerier(*NewListingQueryFilter().ByJobID(jobID)).apply(s.getDB(ctx).WithContext(ctx).Model(&model.Listing{}))
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting listings of job %s: %w", jobID, err)
	}
	return count, nil
}

// Search returns every listing whose name, category or search criteria
// contains text, ignoring case, oldest first.
func (s *ListingStore) Search(ctx context.Context, text string) (model.ListingList, error) {
	var listings model.ListingList
	tx := BaseQuerier(*NewListingQueryFilter().ByText(text)).apply(s.getDB(ctx).WithContext(ctx))
	if err := sortBy(tx, SortByCreatedTime).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("searching listings: %w", err)
	}
	return listings, nil
}

// List returns one page of listings matching filter together with the total
// number of matches.
func (s *ListingStore) List(ctx context.Context, filter *ListingQueryFilter, opts *ListingQueryOptions) (model.ListingList, int64, error) {
	if filter == nil {
		filter = NewListingQueryFilter()
	}
	if opts == nil {
		opts = NewListingQueryOptions()
	}

	var total int64
	countTx := BaseQuerier(*filter).apply(s.getDB(ctx).WithContext(ctx).Model(&model.Listing{}))
	if err := countTx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting listings: %w", err)
	}

	var listings model.ListingList
	tx := BaseQuerier(*filter).apply(s.getDB(ctx).WithContext(ctx))
	tx = BaseQuerier(*opts).apply(tx)
	if err := tx.Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("listing listings: %w", err)
	}
	return listings, total, nil
}

func (s *ListingStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
