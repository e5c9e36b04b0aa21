package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/openmunicipal/portal/internal/api/handler"
	mw "github.com/openmunicipal/portal/internal/api/middleware"
	"github.com/openmunicipal/portal/internal/core"
	"github.com/openmunicipal/portal/internal/maintenance"
)

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	services    *core.Services
	pool        *pgxpool.Pool
	manager     *maintenance.Manager
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, services *core.Services, manager *maintenance.Manager) *Server {
	auditLogger := mw.NewAuditLogger(pool, logger)

	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		services:    services,
		pool:        pool,
		manager:     manager,
		auditLogger: auditLogger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	serviceRequest := handler.NewServiceRequest(s.services.ServiceRequest)
	news := handler.NewNews(s.services.News)
	event := handler.NewEvent(s.services.Event)
	cityService := handler.NewCityService(s.services.Directory)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public citizen endpoints, no auth.
		r.Route("/public", func(r chi.Router) {
			r.Post("/requests", serviceRequest.Submit)
			r.Get("/requests/{reference}", serviceRequest.Track)
			r.Get("/news", news.ListPublished)
			r.Get("/news/{slug}", news.GetBySlug)
			r.Get("/events", event.ListUpcoming)
			r.Get("/events/{id}", event.Get)
			r.Post("/events/{id}/registrations", event.Register)
			r.Get("/services", cityService.List)
			r.Get("/services/{id}", cityService.Get)
		})

		// Back-office endpoints, API key required.
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.services.APIKey))
			r.Use(s.auditLogger.Middleware)

			// Dashboard
			dashboard := handler.NewDashboard(s.services.Dashboard)
			r.Get("/dashboard/stats", dashboard.Stats)

			// HTTP audit logs
			audit := handler.NewAudit(s.pool)
			r.Get("/audit-logs", audit.List)

			// Service requests
			r.Get("/requests", serviceRequest.List)
			r.Get("/requests/{id}", serviceRequest.Get)
			r.Put("/requests/{id}/status", serviceRequest.UpdateStatus)
			r.Get("/requests/{id}/notes", serviceRequest.ListNotes)
			r.Post("/requests/{id}/notes", serviceRequest.AddNote)

			// News
			r.Get("/news", news.List)
			r.Post("/news", news.Create)
			r.Put("/news/{id}", news.Update)
			r.Put("/news/{id}/published", news.SetPublished)

			// Events
			r.Post("/events", event.Create)
			r.Put("/events/{id}", event.Update)
			r.Get("/events/{id}/registrations", event.ListRegistrations)

			// City services directory
			r.Post("/services", cityService.Create)
			r.Put("/services/{id}", cityService.Update)
			r.Delete("/services/{id}", cityService.Delete)

			// API keys
			apiKey := handler.NewAPIKey(s.services.APIKey)
			r.Get("/api-keys", apiKey.List)
			r.Post("/api-keys", apiKey.Create)
			r.Delete("/api-keys/{id}", apiKey.Revoke)

			// Maintenance ops
			ops := handler.NewMaintenance(s.manager)
			r.Route("/ops", func(r chi.Router) {
				r.Post("/cache/clear", ops.ClearCache)
				r.Get("/cache/stats", ops.CacheStats)
				r.Post("/database/optimize", ops.OptimizeDatabase)
				r.Post("/database/vacuum", ops.VacuumDatabase)
				r.Post("/database/reindex", ops.ReindexDatabase)
				r.Get("/database/stats", ops.DatabaseStats)
				r.Post("/backups", ops.CreateBackup)
				r.Get("/backups", ops.ListBackups)
				r.Get("/backups/stats", ops.BackupStats)
				r.Post("/integrity/check", ops.CheckIntegrity)
				r.Get("/audit", ops.AuditTrail)
				r.Get("/audit/stream", ops.StreamAudit)
			})
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close flushes the async audit logger.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
