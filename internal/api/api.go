// Package api provides the dashboard HTTP REST API server.
package api

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/api/alerts"
	"github.com/good-yellow-bee/hermetia/internal/api/dashboard"
	"github.com/good-yellow-bee/hermetia/internal/api/health"
	"github.com/good-yellow-bee/hermetia/internal/api/middleware"
	"github.com/good-yellow-bee/hermetia/internal/ingest"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address string
	// JWTSecret enables bearer-token auth on /api/v1 when set.
	JWTSecret       []byte
	HTTPTLSEnabled  bool   // Enable HTTPS for API server
	HTTPTLSCertFile string // HTTPS certificate file
	HTTPTLSKeyFile  string // HTTPS private key file
	RateLimitPerIP  int    // ingest requests per minute per client IP
	// RateLimitPerUser is API requests per minute per token subject.
	RateLimitPerUser int
	QueryTimeout     time.Duration  // Timeout for storage-backed API calls
	Location         *time.Location // Time zone for exported timestamps
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 120 // two readings per second per device
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 300
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Deps are the services the API exposes.
type Deps struct {
	Store    storage.Storage
	Series   dashboard.SeriesSource
	Feeds    alerts.Feeds
	Recorder ingest.Recorder
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	deps          Deps
	server        *http.Server
	healthHandler *health.Handler
	limiters      []*middleware.RateLimiter
}

// New creates a new API server.
func New(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Series == nil || deps.Feeds == nil || deps.Recorder == nil {
		return nil, fmt.Errorf("series, feeds and recorder are required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		deps:          deps,
		healthHandler: health.NewHandler(),
	}

	if db, ok := deps.Store.(interface{ DB() *sql.DB }); ok {
		s.healthHandler.RegisterChecker(health.NewSQLiteChecker(db.DB()))
	} else {
		s.healthHandler.RegisterChecker(health.NewPingChecker("store", deps.Store))
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.HTTPTLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.HTTPTLSCertFile, s.config.HTTPTLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	defer s.stopLimiters()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) stopLimiters() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a required dependency to the readiness probe.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}

// RegisterOptionalHealthChecker adds a dependency that only degrades readiness.
func (s *Server) RegisterOptionalHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterOptional(c)
	}
}
