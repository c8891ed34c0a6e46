package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentoven/agentdesk/internal/api/handlers"
	"github.com/agentoven/agentdesk/internal/api/middleware"
	"github.com/agentoven/agentdesk/internal/config"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()
	auth := middleware.NewAPIKeyAuth(cfg.APIKeys)

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware)

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		// Provider catalogue & chat
		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/test-suite", h.RunTestSuite)
			r.Get("/{id}", h.GetProvider)
		})
		r.Post("/chat", h.Chat)
		r.Get("/usage", h.GetUsage)

		// Credentials
		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", h.ListCredentials)
			r.Route("/{provider}", func(r chi.Router) {
				r.Put("/", h.SetCredential)
				r.Delete("/", h.RemoveCredential)
				r.Post("/test", h.TestProvider)
			})
		})

		// Tools
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", h.ListTools)
			r.Get("/stats", h.ToolStats)
			r.Post("/execute", h.ExecuteTool)
			r.Post("/execute-batch", h.ExecuteBatch)
			r.Post("/parse", h.ParseMentions)
			r.Put("/{name}", h.SetToolEnabled)
		})
		r.Post("/assist", h.Assist)

		// Background tasks & agents
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.QueueTask)
			r.Delete("/", h.ClearCompletedTasks)
			r.Get("/events", h.StreamTasks)
			r.Get("/{id}", h.GetTask)
		})
		r.Get("/agents", h.ListAgents)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "agentdesk",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "agentdesk",
		})
	}
}
