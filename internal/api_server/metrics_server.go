package apiserver

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mapharvest/harvester/pkg/metrics"
)

// MetricServer exposes the Prometheus registry, including the scrape job,
// harvest and database counters, on a listener separate from the API so
// scrapes holding API connections never delay collection.
type MetricServer struct {
	httpServer *http.Server
	listener   net.Listener
}

func NewMetricServer(bindAddress string, listener net.Listener) *MetricServer {
	router := chi.NewRouter()
	router.Handle("/metrics", metrics.NewPrometheusMetricsHandler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.NoContent(w, r)
	})

	return &MetricServer{
		listener: listener,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Run serves until ctx is done.
func (m *MetricServer) Run(ctx context.Context) error {
	return serve(ctx, "metrics_server", m.httpServer, m.listener)
}
