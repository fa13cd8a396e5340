package mappers

import (
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store/model"
)

func PlaceFilterFromApi(params v1alpha1.PlacesParams) service.PlaceFilter {
	return service.PlaceFilter{
		Page:           params.Page,
		Limit:          params.Limit,
		Category:       params.Category,
		MinRating:      params.MinRating,
		SearchCriteria: params.SearchCriteria,
	}
}

// JobStatusFromApi returns nil for an empty status, meaning no filter.
func JobStatusFromApi(status string) *model.JobStatus {
	if status == "" {
		return nil
	}
	s := model.JobStatus(status)
	return &s
}
