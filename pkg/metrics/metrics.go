package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	harvester = "harvester"

	// Job metrics
	scrapeJobsTotal = "scrape_jobs_total"

	// Listing metrics
	listingsTotal = "listings_total"

	// Browser metrics
	harvestsTotal          = "harvests_total"
	protocolCooldownsTotal = "protocol_cooldowns_total"

	// Labels
	jobStatusLabel  = "status"
	resultLabel     = "result"
	stopReasonLabel = "stop_reason"
)

const (
	ListingStored = "stored"
	ListingFailed = "failed"

	StopCap        = "cap"
	StopStagnation = "stagnation"
	StopError      = "error"
)

/**
* Metrics definition
**/
var scrapeJobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: harvester,
		Name:      scrapeJobsTotal,
		Help:      "number of scrape jobs reaching a status",
	},
	[]string{jobStatusLabel},
)

var listingsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: harvester,
		Name:      listingsTotal,
		Help:      "number of listing detail extractions by result",
	},
	[]string{resultLabel},
)

var harvestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: harvester,
		Name:      harvestsTotal,
		Help:      "number of feed harvests by the reason scrolling stopped",
	},
	[]string{stopReasonLabel},
)

var protocolCooldownsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: harvester,
		Name:      protocolCooldownsTotal,
		Help:      "number of extra pauses taken after browser protocol errors",
	},
)

func IncreaseScrapeJobsTotalMetric(status string) {
	scrapeJobsTotalMetric.With(prometheus.Labels{jobStatusLabel: status}).Inc()
}

func IncreaseListingsTotalMetric(result string) {
	listingsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseHarvestsTotalMetric(reason string) {
	harvestsTotalMetric.With(prometheus.Labels{stopReasonLabel: reason}).Inc()
}

func IncreaseProtocolCooldownsMetric() {
	protocolCooldownsTotalMetric.Inc()
}

// NewPrometheusMetricsHandler serves the default registry.
func NewPrometheusMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(scrapeJobsTotalMetric)
	prometheus.MustRegister(listingsTotalMetric)
	prometheus.MustRegister(harvestsTotalMetric)
	prometheus.MustRegister(protocolCooldownsTotalMetric)
}
