package store

import (
	"context"

	"github.com/mapharvest/harvester/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Listing() Listing
	ScrapeJob() ScrapeJob
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db        *gorm.DB
	listing   Listing
	scrapeJob ScrapeJob
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		listing:   NewListingStore(db),
		scrapeJob: NewScrapeJobStore(db),
		db:        db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Listing() Listing {
	return s.listing
}

func (s *DataStore) ScrapeJob() ScrapeJob {
	return s.scrapeJob
}

// InitialMigration creates the schema from the models. Postgres deployments
// run the versioned migrations instead, see pkg/migrations.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.ScrapeJob{}, &model.Listing{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
