package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"

	api "github.com/mapharvest/harvester/api/v1alpha1"
	apiserver "github.com/mapharvest/harvester/internal/api_server"
	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/browser/browsertest"
	"github.com/mapharvest/harvester/internal/config"
	handlers "github.com/mapharvest/harvester/internal/handlers/v1alpha1"
	"github.com/mapharvest/harvester/internal/lock"
	"github.com/mapharvest/harvester/internal/scraper"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
	"sigs.k8s.io/yaml"
)

func fastConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.Scraper.StagnationLimit = 2
	for _, w := range []*config.DelayWindow{
		&cfg.Scraper.InitialSettle, &cfg.Scraper.ScrollSettle, &cfg.Scraper.ListingPause,
		&cfg.Scraper.BatchPause, &cfg.Scraper.DetailSettle, &cfg.Scraper.ProtocolCooldown,
	} {
		*w = config.DelayWindow{}
	}
	return cfg
}

var _ = Describe("cli", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		cfg    *config.Config
		out    *bytes.Buffer
	)

	globals := func() GlobalOptions {
		return GlobalOptions{
			out:    out,
			config: func() (*config.Config, error) { return cfg, nil },
		}
	}

	BeforeAll(func() {
		cfg = fastConfig()
		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM listings;")
		gormdb.Exec("DELETE FROM scrape_jobs;")
	})

	Context("validate", func() {
		It("rejects unknown output formats", func() {
			o := DefaultGetOptions()
			o.Output = "xml"
			Expect(o.Validate([]string{PlacesKind})).NotTo(BeNil())
		})

		It("rejects unknown kinds", func() {
			o := DefaultGetOptions()
			Expect(o.Validate([]string{"sources"})).To(MatchError(ContainSubstring("unsupported resource kind")))
		})

		It("accepts a lower case status", func() {
			o := DefaultGetOptions()
			o.Status = "failed"
			Expect(o.Validate([]string{ScrapeLogsKind})).To(Succeed())
			Expect(o.Status).To(Equal("FAILED"))
		})

		It("rejects an unknown status", func() {
			o := DefaultGetOptions()
			o.Status = "LOST"
			Expect(o.Validate([]string{ScrapeLogsKind})).NotTo(BeNil())
		})

		It("rejects a cap above the maximum", func() {
			o := DefaultScrapeOptions()
			o.Cap = 501
			Expect(o.Validate([]string{"cafe"})).NotTo(BeNil())
		})
	})

	Context("get", func() {
		It("prints a page of places as json", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "cafe")
			Expect(err).To(BeNil())
			for i := 0; i < 3; i++ {
				_, err := s.Listing().Create(context.TODO(), model.Listing{
					JobID:          job.ID,
					SearchCriteria: "cafe",
					Name:           fmt.Sprintf("Cafe %d", i),
					Category:       "Cafe",
					Link:           fmt.Sprintf("https://maps.example/place/%d", i),
				})
				Expect(err).To(BeNil())
			}

			o := DefaultGetOptions()
			o.GlobalOptions = globals()
			o.Output = jsonFormat
			o.Limit = 2
			Expect(o.Run(context.TODO(), []string{PlacesKind})).To(Succeed())

			var page api.PlacePage
			Expect(json.Unmarshal(out.Bytes(), &page)).To(Succeed())
			Expect(page.Places).To(HaveLen(2))
			Expect(page.Pagination.Total).To(BeNumerically("==", 3))
			Expect(page.Pagination.TotalPages).To(Equal(2))
		})

		It("prints scrape logs as yaml", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "bakery")
			Expect(err).To(BeNil())

			o := DefaultGetOptions()
			o.GlobalOptions = globals()
			o.Output = yamlFormat
			Expect(o.Run(context.TODO(), []string{ScrapeLogsKind})).To(Succeed())

			var logs api.ScrapeLogList
			Expect(yaml.Unmarshal(out.Bytes(), &logs)).To(Succeed())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].SearchQuery).To(Equal("bakery"))
			Expect(logs[0].Status).To(Equal(api.ScrapeLogStatusPending))
		})

		It("prints a table by default", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "bakery")
			Expect(err).To(BeNil())

			o := DefaultGetOptions()
			o.GlobalOptions = globals()
			Expect(o.Run(context.TODO(), []string{ScrapeLogsKind})).To(Succeed())
			Expect(out.String()).To(ContainSubstring("QUERY"))
			Expect(out.String()).To(ContainSubstring("bakery"))
		})
	})

	Context("remote", func() {
		It("reads scrape logs through a running server", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "museos")
			Expect(err).To(BeNil())

			h := handlers.NewServiceHandler(
				apiserver.NewScrapeService(cfg, s, browsertest.NewProvider(), lock.NewLocalLocker()),
				service.NewPlaceService(s),
				service.NewScrapeLogService(s),
			)
			server := httptest.NewServer(apiserver.NewRouter(cfg, h))
			defer server.Close()

			o := DefaultGetOptions()
			o.GlobalOptions = globals()
			o.ServerUrl = server.URL
			o.Output = jsonFormat
			o.config = func() (*config.Config, error) { return nil, errors.New("store must not be opened") }
			Expect(o.Run(context.TODO(), []string{ScrapeLogsKind})).To(Succeed())

			var logs api.ScrapeLogList
			Expect(json.Unmarshal(out.Bytes(), &logs)).To(Succeed())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].SearchQuery).To(Equal("museos"))
		})
	})

	Context("scrape", func() {
		It("harvests a new query and prints the places", func() {
			sel := scraper.DefaultSelectors()
			provider := browsertest.NewProvider()
			var snapshot []*browsertest.Element
			for i := 1; i <= 3; i++ {
				link := fmt.Sprintf("https://maps.example/place/%d", i)
				snapshot = append(snapshot, browsertest.NewElement().
					WithAttr(sel.CardLink, "href", link).
					WithText(sel.CardName, fmt.Sprintf("Bar %d", i)))
				provider.Documents[link] = browsertest.NewDocument()
			}
			provider.Feed = [][]*browsertest.Element{snapshot}

			o := DefaultScrapeOptions()
			o.GlobalOptions = globals()
			o.Output = jsonFormat
			o.provider = func(*config.Config) browser.Provider { return provider }
			Expect(o.Run(context.TODO(), []string{"bares"})).To(Succeed())

			var places api.PlaceList
			Expect(json.Unmarshal(out.Bytes(), &places)).To(Succeed())
			Expect(places).To(HaveLen(3))
		})

		It("answers a known query without a browser", func() {
			_, err := s.ScrapeJob().Create(context.TODO(), "bares")
			Expect(err).To(BeNil())

			provider := browsertest.NewProvider()
			o := DefaultScrapeOptions()
			o.GlobalOptions = globals()
			o.provider = func(*config.Config) browser.Provider { return provider }
			Expect(o.Run(context.TODO(), []string{"bares"})).To(Succeed())
			Expect(provider.Sessions()).To(BeEmpty())
			Expect(out.String()).To(ContainSubstring("NAME"))
		})
	})
})
