package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/handlers/v1alpha1/mappers"
	"github.com/mapharvest/harvester/internal/handlers/validator"
)

// (GET /api/v1/places)
func (h *ServiceHandler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := v1alpha1.PlacesParams{
		Category:       q.Get("category"),
		SearchCriteria: q.Get("searchCriteria"),
	}

	var err error
	if params.Page, err = intParam(q.Get("page")); err != nil {
		renderError(w, r, http.StatusBadRequest, "page must be an integer")
		return
	}
	if params.Limit, err = intParam(q.Get("limit")); err != nil {
		renderError(w, r, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if raw := q.Get("minRating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "minRating must be a number")
			return
		}
		params.MinRating = &rating
	}

	if err := validator.NewValidator().Struct(params); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.placeSrv.ListPlaces(r.Context(), mappers.PlaceFilterFromApi(params))
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, mappers.PlacePageToApi(page))
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
