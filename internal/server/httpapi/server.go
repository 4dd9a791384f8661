package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equiptrack/internal/logging"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewRouter mounts all routes. Paths are fixed: existing clients depend on
// them.
func NewRouter(h *Handler, logger logging.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(Recoverer(logger))
	router.Use(RequestLogger(logger))
	router.Use(Metrics())

	router.Get("/health", h.Health)

	router.Get("/records", h.ListRecords)
	router.Post("/records", h.CreateRecord)
	router.Get("/records/{id}", h.GetRecord)
	router.Put("/records/{id}", h.UpdateRecord)
	router.Delete("/records/{id}", h.DeleteRecord)

	router.Get("/statistics", h.Statistics)
	router.Get("/export", h.Export)

	router.Post("/images/reconcile", h.ReconcileImages)
	router.Get("/images/status", h.ImageStatus)

	router.Handle("/metrics", promhttp.Handler())
	router.Handle("/uploads/*", h.uploads)

	return router
}

// NewServer wraps the router in an http.Server bound to addr.
func NewServer(addr string, h *Handler, logger logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(h, logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger.With("module", "http_server"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
