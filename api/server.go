/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Metrics:    Prometheus request counter and latency histogram
  5. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/fee-types/*   Tariff configuration
  /api/apartments/*  Apartments, readings, notices per apartment
  /api/notices/*     Notice generation and lifecycle
  /api/settings      Billing cycle settings
  /metrics           Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Auth is owned by an upstream gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Prometheus collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Fee type / tariff configuration
		r.Route("/fee-types", func(r chi.Router) {
			r.Get("/", h.ListFeeTypes)
			r.Post("/", h.CreateFeeType)
			r.Get("/{id}", h.GetFeeType)
			r.Post("/{id}/configs", h.AddRateConfig)
			r.Post("/{id}/configs/{configID}/activate", h.ActivateRateConfig)
		})

		// Apartments, readings, per-apartment notices
		r.Route("/apartments", func(r chi.Router) {
			r.Get("/", h.ListApartments)
			r.Post("/", h.CreateApartment)
			r.Get("/{id}", h.GetApartment)
			r.Get("/{id}/readings", h.ListReadings)
			r.Post("/{id}/readings", h.CreateReading)
			r.Get("/{id}/notices", h.ListNotices)
		})

		// Notice generation and lifecycle
		r.Route("/notices", func(r chi.Router) {
			r.Post("/", h.GenerateNotice)
			r.Get("/{id}", h.GetNotice)
			r.Post("/{id}/recompute", h.RecomputeNotice)
			r.Post("/{id}/issue", h.IssueNotice)
			r.Post("/{id}/cancel", h.CancelNotice)
			r.Post("/{id}/pay", h.PayNotice)
		})

		// Billing cycle settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
