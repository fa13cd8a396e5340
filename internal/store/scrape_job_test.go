package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("scrape job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM listings;")
		gormdb.Exec("DELETE FROM scrape_jobs;")
	})

	Context("Create", func() {
		It("creates a pending job", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "cafe in testville")
			Expect(err).To(BeNil())
			Expect(job.ID).ToNot(Equal(uuid.Nil))
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.ProcessedCount).To(BeNil())
			Expect(job.CompletedAt).To(BeNil())
		})

		It("refuses a second job for the same query text", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "cafe in testville")
			Expect(err).To(BeNil())

			_, err = s.ScrapeJob().Create(context.TODO(), "cafe in testville")
			Expect(err).To(MatchError(store.ErrDuplicateKey))

			var count int
			Expect(gormdb.Raw("SELECT COUNT(*) FROM scrape_jobs").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})

	Context("Update", func() {
		It("updates only the given fields", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "restaurantes san borja")
			Expect(err).To(BeNil())

			status := model.JobStatusCompleted
			count := 0
			completedAt := time.Now().UTC().Truncate(time.Second)
			updated, err := s.ScrapeJob().Update(context.TODO(), job.ID, store.ScrapeJobUpdate{
				Status:         &status,
				ProcessedCount: &count,
				CompletedAt:    &completedAt,
			})
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusCompleted))
			Expect(updated.ProcessedCount).ToNot(BeNil())
			Expect(*updated.ProcessedCount).To(Equal(0))
			Expect(updated.CompletedAt).ToNot(BeNil())
			Expect(updated.CompletedAt.Equal(completedAt)).To(BeTrue())
			Expect(updated.ErrorMessage).To(BeNil())
			Expect(updated.SearchQuery).To(Equal("restaurantes san borja"))
		})

		It("returns not found for an unknown job", func() {
			status := model.JobStatusFailed
			_, err := s.ScrapeJob().Update(context.TODO(), uuid.New(), store.ScrapeJobUpdate{Status: &status})
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("rejects an empty update", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "empty")
			Expect(err).To(BeNil())
			_, err = s.ScrapeJob().Update(context.TODO(), job.ID, store.ScrapeJobUpdate{})
			Expect(err).To(MatchError(store.ErrEmptyUpdate))
		})
	})

	Context("List", func() {
		It("filters by query text and status", func() {
			first, err := s.ScrapeJob().Create(context.TODO(), "a")
			Expect(err).To(BeNil())
			_, err = s.ScrapeJob().Create(context.TODO(), "b")
			Expect(err).To(BeNil())

			failed := model.JobStatusFailed
			_, err = s.ScrapeJob().Update(context.TODO(), first.ID, store.ScrapeJobUpdate{Status: &failed})
			Expect(err).To(BeNil())

			jobs, err := s.ScrapeJob().List(context.TODO(), store.NewScrapeJobQueryFilter().ByQuery("a"))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(first.ID))

			jobs, err = s.ScrapeJob().List(context.TODO(), store.NewScrapeJobQueryFilter().ByStatus(model.JobStatusPending))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].SearchQuery).To(Equal("b"))

			jobs, err = s.ScrapeJob().List(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})

		It("does not match a query by prefix or case", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "Cafe in Testville")
			Expect(err).To(BeNil())

			jobs, err := s.ScrapeJob().List(context.TODO(), store.NewScrapeJobQueryFilter().ByQuery("cafe in testville"))
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})
	})
})
