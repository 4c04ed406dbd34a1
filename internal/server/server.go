// Package server implements the chemlayout HTTP API.
//
// The API exposes the layout pipeline over JSON:
//
//	POST /v1/layout            molecule JSON in, molecule JSON with coordinates and report out
//	POST /v1/render/{format}   molecule in, rendered svg, png, dot or graphviz artifact out
//	GET  /v1/templates         the cage template catalog
//	GET  /healthz              liveness probe
//
// Layout and render options are passed as query parameters (bond_length,
// force, max_collision_passes, max_refine_iterations, input_format, scale,
// carbons, indices). Errors are answered as
//
//	{"error": {"code": "INVALID_GRAPH", "message": "..."}}
//
// with the status from errors.HTTPStatus.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chemlayout/pkg/pipeline"
)

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = ":8080"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Server serves the HTTP API on top of a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	router   http.Handler
}

// New creates a server. defaults seeds every request's options before the
// query parameters are applied.
func New(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, defaults: defaults, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
