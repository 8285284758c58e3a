package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carebridge/clinic-scheduling-ai/internal/conversation"
	"github.com/carebridge/clinic-scheduling-ai/internal/http/handlers"
	httpmiddleware "github.com/carebridge/clinic-scheduling-ai/internal/http/middleware"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	AvailabilityHandler *handlers.AvailabilityHandler
	BookingHandler      *handlers.BookingHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ConversationHandler != nil {
			api.Post("/chat", cfg.ConversationHandler.Chat)
			api.Get("/chat/{conversationID}/history", cfg.ConversationHandler.History)
		}
		if cfg.AvailabilityHandler != nil {
			api.Get("/availability", cfg.AvailabilityHandler.Slots)
		}
		if cfg.BookingHandler != nil {
			api.Post("/bookings", cfg.BookingHandler.Create)
		}
	})

	return r
}
