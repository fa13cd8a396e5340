package migrations_test

import (
	"context"

	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DROP TABLE IF EXISTS listings;")
		gormdb.Exec("DROP TABLE IF EXISTS scrape_jobs;")
		gormdb.Exec("DROP TABLE IF EXISTS goose_db_version;")
	})

	It("fails when the migration folder does not exist", func() {
		err := migrations.MigrateStore(gormdb, "some folder")
		Expect(err).NotTo(BeNil())
	})

	It("creates the tables from the embedded scripts", func() {
		Expect(migrations.MigrateStore(gormdb, "")).To(Succeed())

		for _, table := range []string{"scrape_jobs", "listings"} {
			Expect(gormdb.Migrator().HasTable(table)).To(BeTrue(), table)
		}
	})

	It("leaves a schema the store can use", func() {
		Expect(migrations.MigrateStore(gormdb, "")).To(Succeed())

		job, err := s.ScrapeJob().Create(context.TODO(), "cafe")
		Expect(err).To(BeNil())
		_, err = s.ScrapeJob().Create(context.TODO(), "cafe")
		Expect(err).To(MatchError(store.ErrDuplicateKey))

		count, err := s.Listing().CountByJob(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(count).To(BeZero())
	})

	It("is idempotent", func() {
		Expect(migrations.MigrateStore(gormdb, "")).To(Succeed())
		Expect(migrations.MigrateStore(gormdb, "")).To(Succeed())
	})
})
