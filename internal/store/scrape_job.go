package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/store/model"
	"gorm.io/gorm"
)

type ScrapeJob interface {
	Create(ctx context.Context, query string) (*model.ScrapeJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error)
	Update(ctx context.Context, id uuid.UUID, update ScrapeJobUpdate) (*model.ScrapeJob, error)
	List(ctx context.Context, filter *ScrapeJobQueryFilter) (model.ScrapeJobList, error)
}

// ScrapeJobUpdate carries the fields to change. Nil fields are left untouched.
type ScrapeJobUpdate struct {
	Status         *model.JobStatus
	ProcessedCount *int
	CompletedAt    *time.Time
	ErrorMessage   *string
}

type ScrapeJobStore struct {
	db *gorm.DB
}

// Make sure we conform to ScrapeJob interface
var _ ScrapeJob = (*ScrapeJobStore)(nil)

func NewScrapeJobStore(db *gorm.DB) ScrapeJob {
	return &ScrapeJobStore{db: db}
}

// Create inserts a PENDING job for query. It returns ErrDuplicateKey when a
// job for the same query text already exists.
func (s *ScrapeJobStore) Create(ctx context.Context, query string) (*model.ScrapeJob, error) {
	job := model.ScrapeJob{
		ID:          uuid.New(),
		SearchQuery: query,
		Status:      model.JobStatusPending,
	}
	if err := s.getDB(ctx).WithContext(ctx).Create(&job).Error; err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

func (s *ScrapeJobStore) Get(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error) {
	var job model.ScrapeJob
	if err := s.getDB(ctx).WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

func (s *ScrapeJobStore) Update(ctx context.Context, id uuid.UUID, update ScrapeJobUpdate) (*model.ScrapeJob, error) {
	job := model.ScrapeJob{ID: id}
	selectFields := []string{}
	if update.Status != nil {
		job.Status = *update.Status
		selectFields = append(selectFields, "status")
	}
	if update.ProcessedCount != nil {
		job.ProcessedCount = update.ProcessedCount
		selectFields = append(selectFields, "processed_count")
	}
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
		selectFields = append(selectFields, "completed_at")
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = update.ErrorMessage
		selectFields = append(selectFields, "error_message")
	}
	if len(selectFields) == 0 {
		return nil, ErrEmptyUpdate
	}
	selectFields = append(selectFields, "updated_at")
	job.UpdatedAt = time.Now()

	result := s.getDB(ctx).WithContext(ctx).Model(&job).Select(selectFields).Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating scrape job %s: %w", id, translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	return s.Get(ctx, id)
}

// List returns the jobs matching filter, oldest first.
func (s *ScrapeJobStore) List(ctx context.Context, filter *ScrapeJobQueryFilter) (model.ScrapeJobList, error) {
	if filter == nil {
		filter = NewScrapeJobQueryFilter()
	}
	var jobs model.ScrapeJobList
	tx := BaseQuerier(*filter).apply(s.getDB(ctx).WithContext(ctx))
	if err := sortBy(tx, SortByCreatedTime).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing scrape jobs: %w", err)
	}
	return jobs, nil
}

func (s *ScrapeJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
