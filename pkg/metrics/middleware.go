package metrics

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Scrape requests hold the connection for minutes.
	bucketsConfig = []float64{300, 1000, 5000, 60000, 600000}
)

const (
	// EnvLatencyBuckets holds comma separated bucket bounds in milliseconds, e.g. "100,200,300".
	EnvLatencyBuckets     = "HARVESTER_LATENCY_BUCKETS"
	RequestsCollectorName = "harvester_http_requests_total"
	LatencyCollectorName  = "harvester_http_request_duration_milliseconds"
	InFlightCollectorName = "harvester_http_requests_in_flight"
)

// Middleware counts requests and observes their latency by status code, method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

func setBucket() {
	var buckets []float64
	conf, ok := os.LookupEnv(EnvLatencyBuckets)
	if ok {
		for _, v := range strings.Split(conf, ",") {
			f64v, err := strconv.ParseFloat(v, 64)
			if err != nil {
				panic(err)
			}
			buckets = append(buckets, f64v)
		}
		bucketsConfig = buckets
	}
}

// NewMiddleware labels every collector with the given service name.
func NewMiddleware(name string) *Middleware {
	setBucket()

	var m Middleware
	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        RequestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and HTTP path.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"code", "method", "path"})

	m.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        LatencyCollectorName,
		Help:        "Time spent on the request partitioned by status code, method and HTTP path.",
		ConstLabels: prometheus.Labels{"service": name},
		Buckets:     bucketsConfig,
	}, []string{"code", "method", "path"})

	m.inFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        InFlightCollectorName,
		Help:        "Requests currently being served, partitioned by method.",
		ConstLabels: prometheus.Labels{"service": name},
	}, []string{"method"})

	return &m
}

// Handler returns a handler for the middleware pattern.
func (m Middleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		inFlight := m.inFlight.WithLabelValues(r.Method)
		inFlight.Inc()
		defer inFlight.Dec()

		next.ServeHTTP(ww, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rp := rctx.RoutePattern()
			since := float64(time.Since(start).Milliseconds())
			m.requests.WithLabelValues(strconv.Itoa(ww.Status()), r.Method, rp).Inc()
			m.latency.WithLabelValues(strconv.Itoa(ww.Status()), r.Method, rp).Observe(since)
		}
	}
	return http.HandlerFunc(fn)
}

// Collectors returns collector for your own collector registry.
func (m Middleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency, m.inFlight}
}

// MustRegisterDefault registers the collectors once per process; repeated calls are no-ops.
func (m *Middleware) MustRegisterDefault() {
	if m.requests == nil || m.latency == nil || m.inFlight == nil {
		panic("collectors must be set")
	}
	for i, c := range m.Collectors() {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
			// reuse the registered collector so tests can build several servers
			switch i {
			case 0:
				m.requests = already.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				m.latency = already.ExistingCollector.(*prometheus.HistogramVec)
			case 2:
				m.inFlight = already.ExistingCollector.(*prometheus.GaugeVec)
			}
		}
	}
}
