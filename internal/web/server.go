// Package web provides the HTTP server: the popup page and the JSON API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JonMunkholm/talkshelf/internal/config"
	"github.com/JonMunkholm/talkshelf/internal/core"
	mw "github.com/JonMunkholm/talkshelf/internal/web/middleware"
)

// Server is the talkshelf HTTP server.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with all routes registered.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.RateLimit(s.cfg.Rate.RequestsPerMinute, time.Minute))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// Popup page
	s.router.Get("/", s.handlePopup)
	s.router.Post("/select", s.handleSelectForm)
	s.router.Post("/clear", s.handleClearForm)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		// Talks
		r.Get("/talks", s.handleListTalks)
		r.Post("/talks", s.handleAddTalk)
		r.Delete("/talks", s.handleDeleteAllTalks)
		r.Get("/talks/{index}", s.handleGetTalk)
		r.Put("/talks/{index}", s.handleUpdateTalk)
		r.Delete("/talks/{index}", s.handleDeleteTalk)

		// Import and remote fetch share a tighter limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(mw.RateLimit(s.cfg.Rate.ImportLimit, time.Minute))
			}
			r.Post("/import/{format}", s.handleImport)
			r.Post("/preview/{format}", s.handlePreview)
			r.Post("/sessionize/fetch", s.handleFetchSessionize)
		})
		r.Get("/imports", s.handleImportHistory)
		r.Get("/formats", s.handleListFormats)

		// Exports
		r.Get("/export/{kind}", s.handleExport)

		// Settings
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Get("/custom-fields", s.handleGetCustomFields)
		r.Put("/custom-fields", s.handleSetCustomFields)

		// Popup selection
		r.Get("/selection", s.handleGetSelection)
		r.Put("/selection", s.handleSetSelection)
		r.Delete("/selection", s.handleClearSelection)
		r.Get("/details/{title}", s.handleTalkDetails)
		r.Get("/popup", s.handlePopupState)
	})
}

// Handler returns the root handler with server-side tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "talkshelf",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}),
	)
}

// Start listens on the configured address until Shutdown is called.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness plus the import limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.ImportLimiterStatus(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// The popup page uses inline styles and one inline script.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
