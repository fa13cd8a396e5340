package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/lock"
	"github.com/mapharvest/harvester/internal/scraper"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	"github.com/mapharvest/harvester/pkg/metrics"
	"github.com/mapharvest/harvester/pkg/requestid"
	"go.uber.org/zap"
)

const (
	DefaultCap = 200
	MaxCap     = 500
)

type Harvester interface {
	Harvest(ctx context.Context, query string, limit int) ([]model.ListingSummary, error)
}

type Extractor interface {
	ExtractAll(ctx context.Context, jobID uuid.UUID, query string, summaries []model.ListingSummary) (scraper.ExtractStats, error)
}

// ScrapeService runs at most one scrape per distinct query and always answers
// from the listing store.
type ScrapeService struct {
	store      store.Store
	harvester  Harvester
	extractor  Extractor
	locker     lock.Locker
	defaultCap int
	lifetime   context.Context
	log        *zap.SugaredLogger
}

func NewScrapeService(s store.Store, harvester Harvester, extractor Extractor, locker lock.Locker, defaultCap int) *ScrapeService {
	if defaultCap < 1 || defaultCap > MaxCap {
		defaultCap = DefaultCap
	}
	return &ScrapeService{
		store:      s,
		harvester:  harvester,
		extractor:  extractor,
		locker:     locker,
		defaultCap: defaultCap,
		lifetime:   context.Background(),
		log:        zap.S().Named("scrape_service"),
	}
}

// WithLifetime bounds running scrapes by ctx instead of by their callers.
func (s *ScrapeService) WithLifetime(ctx context.Context) *ScrapeService {
	s.lifetime = ctx
	return s
}

// Run scrapes query unless a job for the exact text was already recorded,
// then returns the stored listings matching it. A limit of zero selects the
// default limit.
func (s *ScrapeService) Run(ctx context.Context, query string, limit int) (model.ListingList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewErrEmptyQuery()
	}
	if limit == 0 {
		limit = s.defaultCap
	}
	if limit < 1 || limit > MaxCap {
		return nil, NewErrInvalidCap(limit, MaxCap)
	}

	release, err := s.locker.Lock(ctx, lock.Key(query))
	if err != nil {
		return nil, NewErrScrapeFailed(query, err)
	}
	defer release()

	// A scrape outlives the request that started it; only the service
	// lifetime stops it once the lock is held.
	ctx, cancel := s.detach(ctx)
	defer cancel()

	jobs, err := s.store.ScrapeJob().List(ctx, store.NewScrapeJobQueryFilter().ByQuery(query))
	if err != nil {
		return nil, NewErrScrapeFailed(query, err)
	}

	if len(jobs) == 0 {
		if err := s.scrape(ctx, query, limit); err != nil {
			return nil, err
		}
	} else {
		s.logger(ctx).Infow("query already scraped, serving stored listings", "query", query, "job_id", jobs[0].ID, "status", jobs[0].Status)
	}

	listings, err := s.store.Listing().Search(ctx, query)
	if err != nil {
		return nil, NewErrScrapeFailed(query, err)
	}
	return listings, nil
}

func (s *ScrapeService) scrape(ctx context.Context, query string, limit int) error {
	job, err := s.store.ScrapeJob().Create(ctx, query)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			s.logger(ctx).Infow("job created concurrently, skipping scrape", "query", query)
			return nil
		}
		return NewErrScrapeFailed(query, err)
	}
	metrics.IncreaseScrapeJobsTotalMetric(string(model.JobStatusPending))
	s.logger(ctx).Infow("scrape job created", "query", query, "job_id", job.ID, "cap", limit)

	if err := s.setStatus(ctx, job.ID, model.JobStatusInProgress); err != nil {
		return s.fail(ctx, job, err)
	}

	summaries, harvestErr := s.harvester.Harvest(ctx, query, limit)
	// summaries gathered before a harvest failure are still worth keeping
	stats, extractErr := s.extractor.ExtractAll(ctx, job.ID, query, summaries)
	if err := errors.Join(harvestErr, extractErr); err != nil {
		return s.fail(ctx, job, err)
	}

	processed, err := s.complete(ctx, job.ID)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	s.logger(ctx).Infow("scrape job completed", "query", query, "job_id", job.ID,
		"harvested", len(summaries), "stored", stats.Stored, "failed", stats.Failed, "processed", processed)
	return nil
}

func (s *ScrapeService) setStatus(ctx context.Context, id uuid.UUID, status model.JobStatus) error {
	_, err := s.store.ScrapeJob().Update(ctx, id, store.ScrapeJobUpdate{Status: &status})
	if err == nil {
		metrics.IncreaseScrapeJobsTotalMetric(string(status))
	}
	return err
}

// complete counts the job's listings and records the terminal state atomically.
func (s *ScrapeService) complete(ctx context.Context, id uuid.UUID) (int, error) {
	status := model.JobStatusCompleted
	processed := 0
	err := store.WithTransaction(ctx, s.store, func(ctx context.Context) error {
		count, err := s.store.Listing().CountByJob(ctx, id)
		if err != nil {
			return err
		}

		processed = int(count)
		now := time.Now()
		_, err = s.store.ScrapeJob().Update(ctx, id, store.ScrapeJobUpdate{
			Status:         &status,
			ProcessedCount: &processed,
			CompletedAt:    &now,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.IncreaseScrapeJobsTotalMetric(string(status))
	return processed, nil
}

// fail records the job as FAILED rather than leaving it PENDING, even when ctx
// is already cancelled, and returns the error surfaced to the caller.
func (s *ScrapeService) fail(ctx context.Context, job *model.ScrapeJob, cause error) error {
	ctx = context.WithoutCancel(ctx)

	status := model.JobStatusFailed
	message := cause.Error()
	update := store.ScrapeJobUpdate{Status: &status, ErrorMessage: &message}
	if count, err := s.store.Listing().CountByJob(ctx, job.ID); err == nil {
		processed := int(count)
		update.ProcessedCount = &processed
	}

	if _, err := s.store.ScrapeJob().Update(ctx, job.ID, update); err != nil {
		s.logger(ctx).Errorw("failed to record job failure", "job_id", job.ID, "error", err)
	} else {
		metrics.IncreaseScrapeJobsTotalMetric(string(status))
	}

	s.logger(ctx).Errorw("scrape job failed", "query", job.SearchQuery, "job_id", job.ID, "error", cause)
	return NewErrScrapeFailed(job.SearchQuery, cause)
}

// detach keeps the values of ctx, such as the request id, and drops its cancellation.
func (s *ScrapeService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.lifetime, cancel)
	return detached, func() {
		stop()
		cancel()
	}
}

func (s *ScrapeService) logger(ctx context.Context) *zap.SugaredLogger {
	if id := requestid.FromContext(ctx); id != "" {
		return s.log.With("request_id", id)
	}
	return s.log
}
