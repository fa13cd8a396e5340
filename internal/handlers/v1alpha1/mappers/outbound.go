package mappers

import (
	"github.com/mapharvest/harvester/api/v1alpha1"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store/model"
)

func PlaceToApi(l model.Listing) v1alpha1.Place {
	return v1alpha1.Place{
		Id:             l.ID.String(),
		JobId:          l.JobID.String(),
		SearchCriteria: l.SearchCriteria,
		Name:           l.Name,
		Address:        l.Address,
		Category:       l.Category,
		Rating:         l.Rating,
		Reviews:        l.Reviews,
		Thumbnail:      l.Thumbnail,
		Phone:          l.Phone,
		Website:        l.Website,
		Link:           l.Link,
		CreatedAt:      l.CreatedAt,
	}
}

func PlaceListToApi(listings model.ListingList) v1alpha1.PlaceList {
	places := make(v1alpha1.PlaceList, 0, len(listings))
	for _, l := range listings {
		places = append(places, PlaceToApi(l))
	}
	return places
}

func PlacePageToApi(page *service.PlacePage) v1alpha1.PlacePage {
	return v1alpha1.PlacePage{
		Places: PlaceListToApi(page.Places),
		Pagination: v1alpha1.Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
}

func ScrapeLogToApi(job model.ScrapeJob) v1alpha1.ScrapeLog {
	return v1alpha1.ScrapeLog{
		Id:             job.ID.String(),
		SearchQuery:    job.SearchQuery,
		Status:         v1alpha1.StringToScrapeLogStatus(string(job.Status)),
		ProcessedCount: job.ProcessedCount,
		ErrorMessage:   job.ErrorMessage,
		CompletedAt:    job.CompletedAt,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func ScrapeLogListToApi(jobs model.ScrapeJobList) v1alpha1.ScrapeLogList {
	logs := make(v1alpha1.ScrapeLogList, 0, len(jobs))
	for _, job := range jobs {
		logs = append(logs, ScrapeLogToApi(job))
	}
	return logs
}
