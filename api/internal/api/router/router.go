package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stockroom/api/internal/api/handlers"
	gateway "stockroom/api/internal/api/middleware"
	"stockroom/api/internal/core/domain"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	Sealer         domain.Sealer
	GroupHandler   *handlers.GroupHandler
	ProductHandler *handlers.ProductHandler
	StatsHandler   *handlers.StatsHandler
	EventsHandler  *handlers.EventsHandler
	HealthHandler  *handlers.HealthHandler
	Logger         *slog.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all
// endpoints. ctx bounds the lifetime of background middleware state.
func NewRouter(ctx context.Context, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1_048_576
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		cfg.RateLimitRPS, cfg.RateLimitBurst = 10, 30
	}

	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(gateway.StructuredLogger(cfg.Logger))
	// Sealed routes recover inside SealedBodies so their 500 is sealed too
	r.Use(middleware.Recoverer)

	// 🛡️ Limit all incoming request bodies (OOM Protection)
	r.Use(gateway.MaxBytes(cfg.MaxBodyBytes))

	// Strict CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	limiter := gateway.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	// =========================================================================
	// 2. Sealed API Routing Tree
	// =========================================================================

	r.Route("/api", func(r chi.Router) {
		// Live events upgrade the connection, so they bypass the buffered sealer
		// and seal each frame themselves.
		r.With(limiter.Handler).Get("/events", cfg.EventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(gateway.SealedBodies(cfg.Sealer, cfg.Logger))
			r.Use(limiter.Handler)
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", cfg.GroupHandler.List)
				r.Post("/", cfg.GroupHandler.Create)
				r.Get("/{id}", cfg.GroupHandler.Get)
				r.Put("/{id}", cfg.GroupHandler.Update)
				r.Delete("/{id}", cfg.GroupHandler.Delete)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.ProductHandler.List)
				r.Post("/", cfg.ProductHandler.Create)
				r.Get("/search", cfg.ProductHandler.Search)
				r.Get("/{id}", cfg.ProductHandler.Get)
				r.Put("/{id}", cfg.ProductHandler.Update)
				r.Delete("/{id}", cfg.ProductHandler.Delete)
				r.Post("/{id}/add", cfg.ProductHandler.AddStock)
				r.Post("/{id}/sell", cfg.ProductHandler.SellStock)
			})

			r.Route("/stats", func(r chi.Router) {
				r.Get("/total-value", cfg.StatsHandler.TotalValue)
				r.Get("/groups/{id}/total-value", cfg.StatsHandler.GroupTotalValue)
			})

			// Unknown /api routes still answer through the sealed channel
			r.NotFound(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message": "Not found"}`))
			})
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", cfg.HealthHandler.Check)

	return r
}
