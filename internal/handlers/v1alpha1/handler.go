package v1alpha1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store/model"
)

type ScrapeRunner interface {
	Run(ctx context.Context, query string, limit int) (model.ListingList, error)
}

type ServiceHandler struct {
	scrapeSrv ScrapeRunner
	placeSrv  *service.PlaceService
	logSrv    *service.ScrapeLogService
}

func NewServiceHandler(scrapeService ScrapeRunner, placeService *service.PlaceService, logService *service.ScrapeLogService) *ServiceHandler {
	return &ServiceHandler{
		scrapeSrv: scrapeService,
		placeSrv:  placeService,
		logSrv:    logService,
	}
}

// Routes mounts the health probe and the v1 API on r.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/scrape", h.Scrape)
		r.Post("/scrape", h.CreateScrape)
		r.Get("/places", h.ListPlaces)
		r.Get("/scrape-logs", h.ListScrapeLogs)
		r.Get("/scrape-logs/{id}", h.GetScrapeLog)
	})
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, v1alpha1.Status{Status: "ok"})
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, v1alpha1.Error{Error: message})
}
