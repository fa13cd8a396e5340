package v1alpha1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/handlers/v1alpha1/mappers"
	"github.com/mapharvest/harvester/internal/handlers/validator"
	"github.com/mapharvest/harvester/internal/service"
	"go.uber.org/zap"
)

// (GET /api/v1/scrape)
func (h *ServiceHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	form := v1alpha1.ScrapeRequest{Query: r.URL.Query().Get("query")}
	if raw := r.URL.Query().Get("cap"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			renderError(w, r, http.StatusBadRequest, "cap must be an integer between 1 and 500")
			return
		}
		form.Cap = limit
	}
	h.scrape(w, r, form)
}

// (POST /api/v1/scrape)
func (h *ServiceHandler) CreateScrape(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.ScrapeRequest
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	h.scrape(w, r, form)
}

func (h *ServiceHandler) scrape(w http.ResponseWriter, r *http.Request, form v1alpha1.ScrapeRequest) {
	v := validator.NewValidator(validator.NewScrapeValidationRules()...)
	if err := v.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	listings, err := h.scrapeSrv.Run(r.Context(), form.Query, form.Cap)
	if err != nil {
		var invalid *service.ErrInvalidRequest
		if errors.As(err, &invalid) {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		zap.S().Named("scrape_handler").Errorw("scrape failed", "query", form.Query, "error", err)
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.PlaceListToApi(listings))
}
