package v1alpha1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/config"
	handlers "github.com/mapharvest/harvester/internal/handlers/v1alpha1"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type fakeRunner struct {
	query    string
	limit    int
	listings model.ListingList
	err      error
}

func (f *fakeRunner) Run(_ context.Context, query string, limit int) (model.ListingList, error) {
	f.query = query
	f.limit = limit
	return f.listings, f.err
}

var _ = Describe("service handler", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		runner *fakeRunner
		router *chi.Mux
	)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

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

	BeforeEach(func() {
		runner = &fakeRunner{}
		router = chi.NewRouter()
		handlers.NewServiceHandler(runner, service.NewPlaceService(s), service.NewScrapeLogService(s)).Routes(router)
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM listings;")
		gormdb.Exec("DELETE FROM scrape_jobs;")
	})

	Context("health", func() {
		It("reports ok", func() {
			rec := do(http.MethodGet, "/health", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		})
	})

	Context("scrape", func() {
		It("returns the listings with 201", func() {
			rating := 4.5
			runner.listings = model.ListingList{{
				ID: uuid.New(), JobID: uuid.New(), SearchCriteria: "cafe", Name: "Beans", Link: "https://maps.example/beans", Rating: &rating,
			}}

			rec := do(http.MethodGet, "/api/v1/scrape?query=cafe&cap=10", "")
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(runner.query).To(Equal("cafe"))
			Expect(runner.limit).To(Equal(10))

			var places v1alpha1.PlaceList
			Expect(json.Unmarshal(rec.Body.Bytes(), &places)).To(Succeed())
			Expect(places).To(HaveLen(1))
			Expect(places[0].Name).To(Equal("Beans"))
			Expect(*places[0].Rating).To(Equal(4.5))
			Expect(places[0].Address).To(BeNil())
		})

		It("leaves the cap to the service when absent", func() {
			rec := do(http.MethodGet, "/api/v1/scrape?query=cafe", "")
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(runner.limit).To(BeZero())
			Expect(rec.Body.String()).To(MatchJSON(`[]`))
		})

		It("accepts a json body", func() {
			rec := do(http.MethodPost, "/api/v1/scrape", `{"query":"restaurantes san borja","cap":5}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(runner.query).To(Equal("restaurantes san borja"))
			Expect(runner.limit).To(Equal(5))
		})

		DescribeTable("rejects bad input",
			func(target string) {
				rec := do(http.MethodGet, target, "")
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(runner.query).To(BeEmpty())
			},
			Entry("missing query", "/api/v1/scrape"),
			Entry("blank query", "/api/v1/scrape?query=%20%20"),
			Entry("cap too large", "/api/v1/scrape?query=cafe&cap=501"),
			Entry("zero cap", "/api/v1/scrape?query=cafe&cap=0"),
			Entry("cap not a number", "/api/v1/scrape?query=cafe&cap=ten"),
		)

		It("returns 500 with the error on failure", func() {
			runner.err = service.NewErrScrapeFailed("cafe", errors.New("browser crashed"))

			rec := do(http.MethodGet, "/api/v1/scrape?query=cafe", "")
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))

			var body v1alpha1.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error).To(ContainSubstring("browser crashed"))
		})
	})

	Context("places", func() {
		BeforeEach(func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "cafes lima")
			Expect(err).To(BeNil())
			for i := 1; i <= 3; i++ {
				_, err := s.Listing().Create(context.TODO(), model.Listing{
					JobID: job.ID, SearchCriteria: "cafes lima", Name: fmt.Sprintf("Cafe %d", i),
					Category: "Cafe", Link: fmt.Sprintf("https://maps.example/%d", i),
				})
				Expect(err).To(BeNil())
			}
		})

		It("returns a page with pagination", func() {
			rec := do(http.MethodGet, "/api/v1/places?page=2&limit=2", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var page v1alpha1.PlacePage
			Expect(json.Unmarshal(rec.Body.Bytes(), &page)).To(Succeed())
			Expect(page.Places).To(HaveLen(1))
			Expect(page.Pagination).To(Equal(v1alpha1.Pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2}))
		})

		It("rejects a malformed rating", func() {
			rec := do(http.MethodGet, "/api/v1/places?minRating=high", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an oversized page", func() {
			rec := do(http.MethodGet, "/api/v1/places?limit=1000", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("scrape logs", func() {
		It("lists and filters jobs", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "cafe")
			Expect(err).To(BeNil())
			_, err = s.ScrapeJob().Create(context.TODO(), "bakery")
			Expect(err).To(BeNil())
			status := model.JobStatusFailed
			message := "reading feed: timeout"
			_, err = s.ScrapeJob().Update(context.TODO(), job.ID, store.ScrapeJobUpdate{Status: &status, ErrorMessage: &message})
			Expect(err).To(BeNil())

			rec := do(http.MethodGet, "/api/v1/scrape-logs", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			var logs v1alpha1.ScrapeLogList
			Expect(json.Unmarshal(rec.Body.Bytes(), &logs)).To(Succeed())
			Expect(logs).To(HaveLen(2))

			rec = do(http.MethodGet, "/api/v1/scrape-logs?status=FAILED", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(rec.Body.Bytes(), &logs)).To(Succeed())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].Status).To(Equal(v1alpha1.ScrapeLogStatusFailed))
			Expect(*logs[0].ErrorMessage).To(Equal(message))
		})

		It("rejects an unknown status", func() {
			rec := do(http.MethodGet, "/api/v1/scrape-logs?status=DONE", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("gets one job or 404", func() {
			job, err := s.ScrapeJob().Create(context.TODO(), "cafe")
			Expect(err).To(BeNil())

			rec := do(http.MethodGet, "/api/v1/scrape-logs/"+job.ID.String(), "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			var got v1alpha1.ScrapeLog
			Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
			Expect(got.SearchQuery).To(Equal("cafe"))
			Expect(got.Status).To(Equal(v1alpha1.ScrapeLogStatusPending))

			rec = do(http.MethodGet, "/api/v1/scrape-logs/"+uuid.NewString(), "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			rec = do(http.MethodGet, "/api/v1/scrape-logs/not-a-uuid", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
