package store_test

import (
	"context"
	"errors"

	"github.com/mapharvest/harvester/internal/config"
	st "github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("commits a job and its listing together", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			job, err := store.ScrapeJob().Create(ctx, "tx commit")
			Expect(err).To(BeNil())
			_, err = store.Listing().Create(ctx, model.Listing{JobID: job.ID, SearchCriteria: "tx commit", Name: "n", Link: "l"})
			Expect(err).To(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from listings;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls back a job successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = store.ScrapeJob().Create(ctx, "tx rollback")
			Expect(err).To(BeNil())

			_, rerr := st.Rollback(ctx)
			Expect(rerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from scrape_jobs WHERE search_query = 'tx rollback';").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("reuses the transaction already in the context", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			nested, err := store.NewTransactionContext(ctx)
			Expect(err).To(BeNil())
			Expect(st.FromContext(nested)).To(BeIdenticalTo(st.FromContext(ctx)))

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())
		})

		It("commits when the callback succeeds", func() {
			err := st.WithTransaction(context.TODO(), store, func(ctx context.Context) error {
				_, err := store.ScrapeJob().Create(ctx, "with tx")
				return err
			})
			Expect(err).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from scrape_jobs WHERE search_query = 'with tx';").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls back when the callback fails", func() {
			err := st.WithTransaction(context.TODO(), store, func(ctx context.Context) error {
				if _, err := store.ScrapeJob().Create(ctx, "with tx"); err != nil {
					return err
				}
				return errors.New("boom")
			})
			Expect(err).To(MatchError("boom"))

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from scrape_jobs WHERE search_query = 'with tx';").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("joins the caller's transaction", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			err = st.WithTransaction(ctx, store, func(inner context.Context) error {
				Expect(st.FromContext(inner)).To(BeIdenticalTo(st.FromContext(ctx)))
				_, err := store.ScrapeJob().Create(inner, "joined")
				return err
			})
			Expect(err).To(BeNil())

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from scrape_jobs WHERE search_query = 'joined';").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("refuses to commit twice", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())
			_, err = st.Commit(ctx)
			Expect(err).To(BeNil())
			_, err = st.Commit(ctx)
			Expect(err).To(MatchError(st.ErrNoTransaction))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE FROM listings;")
			gormDB.Exec("DELETE FROM scrape_jobs;")
		})
	})
})
