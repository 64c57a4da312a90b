// Package api exposes the pre-built reports and ad-hoc queries over HTTP.
// The server is a thin collaborator around the ga4 package: every request
// is one stateless pipeline from query parameters to a JSON table.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/ga4"
	"github.com/ignite/ga4-reporter/internal/seo"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
	router  *chi.Mux
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	client *ga4.Client,
	sources ga4.SourceMap,
	defaults QueryDefaults,
	kg *seo.KnowledgeGraphClient,
	robots *seo.Fetcher,
) *Server {
	handlers := NewHandlers(client, sources, defaults, kg, robots)
	router := SetupRoutes(handlers)

	return &Server{
		config:  cfg,
		handler: router,
		router:  router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Report fan-outs can take a while when the remote paginates;
		// per-request deadlines are tightened with context timeouts in
		// the handlers.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
