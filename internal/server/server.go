// Package server hosts the HTTP surface of the counter service: the badge
// endpoint, the raw record endpoint, liveness, and the static demo page.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/moecount/internal/counter"
	"github.com/louisbranch/moecount/internal/platform/timeouts"
	"github.com/louisbranch/moecount/internal/theme"
)

// Config defines the inputs for the HTTP server.
type Config struct {
	HTTPAddr     string
	DefaultTheme string
}

// Server hosts the counter HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	counters   *counter.Service
}

// New builds a configured server around the counter service and the glyph
// catalog.
func New(config Config, counters *counter.Service, catalog *theme.Catalog) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if counters == nil {
		return nil, errors.New("counter service is required")
	}
	if catalog == nil {
		return nil, errors.New("theme catalog is required")
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(config, counters, catalog),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		httpAddr:   httpAddr,
		httpServer: httpServer,
		counters:   counters,
	}, nil
}

// NewHandler assembles the route handlers. It is the test-oriented
// entrypoint that works without a listening socket.
func NewHandler(config Config, counters *counter.Service, catalog *theme.Catalog) http.Handler {
	h := &handler{
		counters:     counters,
		catalog:      catalog,
		defaultTheme: config.DefaultTheme,
	}

	// Wildcards must span a whole path segment, so the @ marker is part of
	// the captured value and checked by the handlers.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{name}", h.badge)
	mux.HandleFunc("GET /record/{name}", h.record)
	mux.HandleFunc("GET /heart-beat", h.heartBeat)
	mux.HandleFunc("GET /favicon.ico", h.favicon)
	mux.HandleFunc("GET /{$}", h.index)
	return mux
}

// ListenAndServe runs the HTTP server until the context ends, then shuts
// down gracefully and force-flushes buffered counts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("counter listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Flush)
		defer cancel()
		if err := s.counters.Close(flushCtx); err != nil {
			log.Printf("final counter flush: %v", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
