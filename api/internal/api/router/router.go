package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookmarket/addrvault/api/internal/api/handlers"
	auth_middleware "github.com/bookmarket/addrvault/api/internal/api/middleware"
	delivery "github.com/bookmarket/addrvault/api/internal/delivery/http"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	// TrustProxyHeaders enables chi's RealIP. Leave it off unless a proxy
	// strips client-supplied forwarding headers, or rate limits can be dodged.
	TrustProxyHeaders bool
	AddressHandler *handlers.AddressHandler
	HealthHandler  *delivery.HealthHandler
	AuthMiddleware *auth_middleware.AuthMiddleware
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Limit all incoming JSON requests to 1 Megabyte max
	r.Use(auth_middleware.MaxBytes(1_048_576))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthMiddleware.RateLimit)

		// Authentication runs before any body parsing.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			r.Route("/addresses", func(r chi.Router) {
				r.Post("/encrypt", cfg.AddressHandler.Encrypt)
				r.Post("/decrypt", cfg.AddressHandler.Decrypt)
			})
		})
	})

	r.Get("/health", cfg.HealthHandler.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
