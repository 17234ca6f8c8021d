// Package server provides the HTTP server and routing for Atlas.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/database"
	"github.com/atlasresearch/atlas/internal/jobs"
	jobshandlers "github.com/atlasresearch/atlas/internal/jobs/handlers"
	companieshandlers "github.com/atlasresearch/atlas/internal/modules/companies/handlers"
	connectionshandlers "github.com/atlasresearch/atlas/internal/modules/connections/handlers"
	importexporthandlers "github.com/atlasresearch/atlas/internal/modules/importexport/handlers"
	investmentshandlers "github.com/atlasresearch/atlas/internal/modules/investments/handlers"
	investorshandlers "github.com/atlasresearch/atlas/internal/modules/investors/handlers"
	searchhandlers "github.com/atlasresearch/atlas/internal/modules/search/handlers"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

// Config holds server configuration
type Config struct {
	Log        zerolog.Logger
	Port       int
	DevMode    bool
	DataDir    string
	ResearchDB *database.DB
	CacheDB    *database.DB

	// Inbound request throttling, keyed by client IP. Disabled when
	// Limiter is nil or RateLimitMax is zero.
	Limiter         *ratelimit.Limiter
	RateLimitMax    int
	RateLimitWindow time.Duration

	Investors    *investorshandlers.Handler
	Companies    *companieshandlers.Handler
	Investments  *investmentshandlers.Handler
	Search       *searchhandlers.Handler
	Connections  *connectionshandlers.Handler
	ImportExport *importexporthandlers.Handler
	Jobs         *jobshandlers.Handler
	JobManager   *jobs.Manager
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	cfg         Config
	startupTime time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg,
		startupTime: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(devMode bool) {
	// Recover from panics
	s.router.Use(middleware.Recoverer)

	// Request ID and real IP
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// Structured request logging
	s.router.Use(s.loggingMiddleware)

	// Inbound throttling, keyed by client IP; must run after RealIP
	if s.cfg.Limiter != nil && s.cfg.RateLimitMax > 0 {
		s.router.Use(s.throttleMiddleware)
	}

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// System monitoring
		r.Get("/system/status", s.handleSystemStatus)

		// Module routes
		s.cfg.Investors.RegisterRoutes(r)
		s.cfg.Companies.RegisterRoutes(r)
		s.cfg.Investments.RegisterRoutes(r)
		s.cfg.Search.RegisterRoutes(r)
		s.cfg.Connections.RegisterRoutes(r)
		s.cfg.ImportExport.RegisterRoutes(r)
		s.cfg.Jobs.RegisterRoutes(r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// throttleMiddleware rejects requests from clients that exhausted their
// sliding-window budget with 429 and a Retry-After hint.
func (s *Server) throttleMiddleware(next http.Handler) http.Handler {
	limitCfg := ratelimit.Config{
		MaxRequests: s.cfg.RateLimitMax,
		Window:      s.cfg.RateLimitWindow,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		key := "api:" + ip

		if !s.cfg.Limiter.CheckLimit(key, limitCfg) {
			retryAfter := int(s.cfg.Limiter.TimeUntilReset(key, limitCfg).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
