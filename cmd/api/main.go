// Package main provides the entry point for the backend server.
package main

import (
	"context"
	"os"

	"github.com/narvanalabs/hellostack/internal/api"
	"github.com/narvanalabs/hellostack/internal/connector"
	"github.com/narvanalabs/hellostack/internal/shutdown"
	"github.com/narvanalabs/hellostack/internal/store"
	"github.com/narvanalabs/hellostack/pkg/config"
	"github.com/narvanalabs/hellostack/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.FromOptions(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)

	c := connector.New(connector.ConfigFrom(cfg.Database), log.Logger)
	conn, err := connect(ctx, c, cfg.Database.Required, log, coordinator)
	if err != nil {
		log.WithError(err).Error("database is required and unavailable",
			"breaker", c.Breaker().State().String(),
		)
		os.Exit(1)
	}

	// Registered after the database so it stops first.
	server := api.NewServer(cfg, conn, log.WithComponent("api").Logger)
	coordinator.Register(server)

	failed := make(chan struct{})
	go func() {
		if err := server.Start(ctx); err != nil {
			log.WithError(err).Error("server error")
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

// connect runs the database connector. When required it blocks and returns
// the handle for the startup gate. Otherwise it connects in the background
// and returns nil; the server does not depend on the database to serve.
// Either way the database is registered for shutdown before the server, so
// it is closed after the server stops.
func connect(ctx context.Context, c *connector.Connector, required bool, log *logger.Logger, coordinator *shutdown.Coordinator) (store.Conn, error) {
	if required {
		conn, err := c.Connect(ctx)
		if err != nil {
			return nil, err
		}
		coordinator.Register(shutdown.NewCloserComponent("database", conn))
		return conn, nil
	}

	handle := &connector.Handle{}
	coordinator.Register(shutdown.NewCloserComponent("database", handle))

	go func() {
		conn, err := c.Connect(ctx)
		if err != nil {
			log.WithError(err).Error("database connection failed",
				"breaker", c.Breaker().State().String(),
			)
			return
		}
		if !handle.Set(conn) {
			log.Info("database connected after shutdown began, closed")
		}
	}()
	return nil, nil
}
