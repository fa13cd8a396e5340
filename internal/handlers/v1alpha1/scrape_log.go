package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/handlers/v1alpha1/mappers"
	"github.com/mapharvest/harvester/internal/handlers/validator"
	"github.com/mapharvest/harvester/internal/service"
)

// (GET /api/v1/scrape-logs)
func (h *ServiceHandler) ListScrapeLogs(w http.ResponseWriter, r *http.Request) {
	params := v1alpha1.ScrapeLogsParams{Status: r.URL.Query().Get("status")}

	v := validator.NewValidator(validator.NewScrapeLogValidationRules()...)
	if err := v.Struct(params); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.logSrv.ListScrapeLogs(r.Context(), mappers.JobStatusFromApi(params.Status))
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, mappers.ScrapeLogListToApi(jobs))
}

// (GET /api/v1/scrape-logs/{id})
func (h *ServiceHandler) GetScrapeLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid scrape log id")
		return
	}

	job, err := h.logSrv.GetScrapeLog(r.Context(), id)
	if err != nil {
		var notFound *service.ErrResourceNotFound
		if errors.As(err, &notFound) {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, mappers.ScrapeLogToApi(*job))
}
