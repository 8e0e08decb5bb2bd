package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/satwatch/internal/api/handlers"
	"github.com/pratik-mahalle/satwatch/internal/api/middleware"
	"github.com/pratik-mahalle/satwatch/internal/config"
	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/metrics"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Dashboard *handlers.DashboardHandler
	Stream    *handlers.StreamHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers, refreshLimiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log, "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)

	// Probes and metrics
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

		r.Get("/dashboard", h.Dashboard.Dashboard)
		r.Get("/satellites", h.Dashboard.Satellites)
		r.Get("/anomalies", h.Dashboard.Anomalies)
		r.Get("/alerts", h.Dashboard.Alerts)
		r.Get("/kpis", h.Dashboard.KPIs)
		r.Get("/status", h.Dashboard.Status)

		r.With(refreshLimiter.Middleware).Post("/refresh", h.Dashboard.Refresh)

		r.Get("/stream", h.Stream.Stream)
	})

	return r
}
