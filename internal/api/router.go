package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scriptura-app/scriptura/internal/database"
	mw "github.com/scriptura-app/scriptura/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Token ledger
	GetBalance     http.HandlerFunc
	ConsumeTokens  http.HandlerFunc
	PurchaseTokens http.HandlerFunc

	// Feature entitlement
	CheckFeatureAccess http.HandlerFunc

	// Voice usage
	StartConversation    http.HandlerFunc
	CompleteConversation http.HandlerFunc
	GetVoiceUsage        http.HandlerFunc

	// Identity resolution: runs before rate limiting so anonymous sessions
	// are keyed correctly
	IdentityMiddleware  func(http.Handler) http.Handler
	RateLimitMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
}

func NewRouter(pool *pgxpool.Pool, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks the database
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
		}
		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1 — every route resolves an identity, then passes admission
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.IdentityMiddleware)
		r.Use(h.RateLimitMiddleware)

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Post("/consume", h.ConsumeTokens)
			r.Post("/purchase", h.PurchaseTokens)
		})

		r.Get("/features/{featureKey}", h.CheckFeatureAccess)

		r.Route("/voice", func(r chi.Router) {
			r.Post("/conversations", h.StartConversation)
			r.Post("/conversations/complete", h.CompleteConversation)
			r.Get("/usage", h.GetVoiceUsage)
		})
	})

	return r
}
