package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the demo dashboard runs on a separate dev origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Inbox
		r.Post("/emails/deploy", h.DeployEmails)
		r.Get("/emails", h.ListEmails)
		r.Get("/emails/{id}", h.GetEmail)
		r.Post("/emails/{id}/block", h.BlockEmail)
		r.Post("/emails/{id}/report", h.ReportEmail)
		r.Post("/emails/{id}/approve", h.ApproveEmail)

		// Engagement event log
		r.Get("/events", h.ListEvents)
		r.Delete("/events", h.ClearEvents)

		// Aggregates and security console
		r.Get("/metrics", h.Metrics)
		r.Get("/metrics/models/{model}", h.ModelMetrics)
		r.Get("/security-log", h.SecurityLog)

		// Standalone risk scoring
		r.Post("/score", h.ScoreEmail)
	})

	return r
}
