package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mapharvest/harvester/internal/browser"
	"github.com/mapharvest/harvester/internal/config"
	handlers "github.com/mapharvest/harvester/internal/handlers/v1alpha1"
	"github.com/mapharvest/harvester/internal/lock"
	"github.com/mapharvest/harvester/internal/scraper"
	"github.com/mapharvest/harvester/internal/service"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/mapharvest/harvester/pkg/metrics"
	"github.com/mapharvest/harvester/pkg/middleware"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	// Scrapes run for minutes, so only the header read is bounded.
	readHeaderTimeout = 10 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
	provider browser.Provider
}

// New returns a new instance of the harvester API server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
	provider browser.Provider,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
		provider: provider,
	}
}

// NewLocker picks the distributed lock when a redis url is configured.
func NewLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Service.RedisURL == "" {
		return lock.NewLocalLocker(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.Service.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.Service.LockTTL), func() { _ = client.Close() }, nil
}

// NewScrapeService wires the scrape pipeline on top of provider.
func NewScrapeService(cfg *config.Config, s store.Store, provider browser.Provider, locker lock.Locker) *service.ScrapeService {
	pacer := scraper.NewPacer()
	harvester := scraper.NewFeedHarvester(provider, pacer, scraper.NewHarvesterConfig(cfg))
	extractor := scraper.NewDetailExtractor(provider, s.Listing(), pacer, scraper.NewExtractorConfig(cfg))
	return service.NewScrapeService(s, harvester, extractor, locker, cfg.Scraper.DefaultCap)
}

// NewRouter mounts the API behind the shared middleware chain.
func NewRouter(cfg *config.Config, h *handlers.ServiceHandler) chi.Router {
	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h.Routes(router)
	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	locker, closeLocker, err := NewLocker(ctx, s.cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	h := handlers.NewServiceHandler(
		NewScrapeService(s.cfg, s.store, s.provider, locker).WithLifetime(ctx),
		service.NewPlaceService(s.store),
		service.NewScrapeLogService(s.store),
	)

	srv := &http.Server{
		Addr:              s.cfg.Service.Address,
		Handler:           NewRouter(s.cfg, h),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return serve(ctx, "api_server", srv, s.listener)
}

// serve runs srv on listener and shuts it down gracefully once ctx is done.
func serve(ctx context.Context, name string, srv *http.Server, listener net.Listener) error {
	log := zap.S().Named(name)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		log.Info("server terminated")
	}()

	log.Infof("Listening on %s...", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if ctx.Err() != nil {
		<-stopped
	}
	return nil
}
