// Package api provides the backend HTTP server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/hellostack/internal/api/handlers"
	"github.com/narvanalabs/hellostack/internal/api/middleware"
	"github.com/narvanalabs/hellostack/internal/health"
	"github.com/narvanalabs/hellostack/internal/store"
	"github.com/narvanalabs/hellostack/pkg/config"
)

// ErrNotReady is returned by Start when the startup health gate fails.
var ErrNotReady = errors.New("backend dependencies are not healthy")

// Server represents the backend HTTP server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	conn       store.Conn
	gate       *health.Checker
	config     *config.Config
	logger     *slog.Logger
}

// NewServer creates a backend server. conn is the database handle built at
// startup; when it is non-nil Start refuses to listen until it is healthy.
// Request handling never uses it.
func NewServer(cfg *config.Config, conn store.Conn, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		conn:   conn,
		gate:   health.NewChecker(),
		config: cfg,
		logger: logger,
	}

	if conn != nil {
		timeout := cfg.Database.ConnectTimeout
		if timeout <= 0 {
			timeout = store.DefaultOptions().ConnectTimeout
		}
		s.gate.SetTimeout(timeout)
		s.gate.Register("database", health.PingCheck(conn))
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.APIAddr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.JSONBody)

	root := handlers.NewRootHandler(s.config.Greeting, s.logger)
	r.Get("/", root.Get)

	// Unmatched methods get the same 404 as unmatched paths.
	r.NotFound(http.NotFound)
	r.MethodNotAllowed(http.NotFound)

	s.router = r
}

// Start runs the startup gate, binds the listener and serves until the
// server is shut down. It returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.conn != nil {
		report := s.gate.Check(ctx)
		if !report.Healthy() {
			s.logger.Error("startup health gate failed", "components", report.Components)
			return ErrNotReady
		}
		s.logger.Info("startup health gate passed",
			"components", s.gate.Names(),
			"database", s.conn.DatabaseName(),
		)
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("backend server is running",
		"addr", fmt.Sprintf("http://localhost:%d", s.config.APIPort),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down backend server")
	return s.httpServer.Shutdown(ctx)
}

// Name identifies the server to the shutdown coordinator.
func (s *Server) Name() string {
	return "backend-http"
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
