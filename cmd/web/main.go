// Package main provides the entry point for the web front end.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/narvanalabs/hellostack/internal/health"
	"github.com/narvanalabs/hellostack/internal/shutdown"
	"github.com/narvanalabs/hellostack/pkg/config"
	"github.com/narvanalabs/hellostack/pkg/logger"
	"github.com/narvanalabs/hellostack/web/api"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.FromOptions(cfg.LogLevel, cfg.LogFormat).WithComponent("web")

	client := api.NewClient(cfg.BackendRootURL())

	checker := health.NewChecker()
	checker.Register("api", client.Ping)

	web := newWebServer(client, checker, log)

	srv := &http.Server{
		Addr:              cfg.WebAddr(),
		Handler:           web.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewHTTPServerComponent("web-http", srv))

	failed := make(chan struct{})
	go func() {
		log.Info("web server is running", "addr", srv.Addr, "backend", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			close(failed)
			cancel()
		}
	}()

	coordinator.WaitForSignal(ctx)
	coordinator.Wait()

	select {
	case <-failed:
		os.Exit(1)
	default:
	}
	os.Exit(coordinator.ExitCode())
}
