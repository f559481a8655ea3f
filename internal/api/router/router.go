// Package router assembles the HTTP surface: public webhook and health
// endpoints plus the JWT-protected admin API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brisalabs/salon-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/brisalabs/salon-ai-platform/internal/http/middleware"
	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	AdminHandler     *handlers.AdminHandler
	MetricsHandler   http.Handler
	AdminAuthSecret  string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.MessagingHandler.HealthCheck)
		public.Route("/webhooks", func(r chi.Router) {
			r.Post("/whatsapp", cfg.MessagingHandler.Webhook)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/contexts", cfg.AdminHandler.ListContexts)
			admin.Post("/contexts/close-inactive", cfg.AdminHandler.CloseInactiveContexts)
			admin.Get("/scheduled", cfg.AdminHandler.ListScheduled)
			admin.Get("/availability", cfg.AdminHandler.Availability)
			admin.Post("/appointments", cfg.AdminHandler.BookAppointment)
		})
	}

	return r
}
