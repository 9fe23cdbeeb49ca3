package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/hermetia/internal/api/alerts"
	"github.com/good-yellow-bee/hermetia/internal/api/auth"
	"github.com/good-yellow-bee/hermetia/internal/api/dashboard"
	"github.com/good-yellow-bee/hermetia/internal/api/middleware"
	"github.com/good-yellow-bee/hermetia/internal/api/readings"
	"github.com/good-yellow-bee/hermetia/internal/api/thresholds"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	var jwtService *auth.JWTService
	if len(s.config.JWTSecret) > 0 {
		jwtService = auth.NewJWTService(s.config.JWTSecret, 0)
	}

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)
	s.limiters = append(s.limiters, ipLimiter, userLimiter)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	dashboardHandler := dashboard.NewHandler(s.deps.Series, s.deps.Store.Components(), s.config.Location)
	alertHandler := alerts.NewHandler(s.deps.Feeds)
	thresholdHandler := thresholds.NewHandler(s.deps.Store.Thresholds())
	readingHandler := readings.NewHandler(s.deps.Recorder)

	r.Route("/api/v1", func(r chi.Router) {
		if jwtService != nil {
			r.Use(middleware.JWTAuth(jwtService))
		}
		r.Use(middleware.RateLimitBySubject(userLimiter))
		r.Use(withTimeout(s.config.QueryTimeout))

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/historical", dashboardHandler.Historical)
			r.Get("/export", dashboardHandler.Export)
			r.Get("/sensors", dashboardHandler.Sensors)
		})

		r.Route("/components", func(r chi.Router) {
			r.Get("/", dashboardHandler.ListComponents)
			r.Put("/{id}", dashboardHandler.UpdateComponent)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/active", alertHandler.Active)
			r.Get("/history", alertHandler.History)
			r.Get("/breaches", alertHandler.Breaches)
		})

		r.Get("/thresholds", thresholdHandler.Get)
		r.Put("/thresholds", thresholdHandler.Update)

		// Device ingestion, limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ipLimiter))
			r.Post("/readings", readingHandler.CreateReading)
			r.Post("/activations", readingHandler.CreateActivation)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}

// withTimeout bounds the storage work a request may trigger.
func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
