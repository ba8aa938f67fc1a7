// Package main provides a standalone database connector. It connects, logs
// the connection and holds it until interrupted.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/narvanalabs/hellostack/internal/connector"
	"github.com/narvanalabs/hellostack/internal/shutdown"
	"github.com/narvanalabs/hellostack/pkg/config"
	"github.com/narvanalabs/hellostack/pkg/logger"
)

func main() {
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

	// Interrupting while still connecting cancels the attempts.
	go coordinator.WaitForSignal(ctx)
	go func() {
		coordinator.Wait()
		cancel()
	}()

	c := connector.New(connector.ConfigFrom(cfg.Database), log.Logger)
	os.Exit(run(ctx, c, coordinator, log))
}

// run connects and holds the connection until ctx is done, which happens
// once the coordinator has shut down. It returns the process exit code.
func run(ctx context.Context, c *connector.Connector, coordinator *shutdown.Coordinator, log *logger.Logger) int {
	handle := &connector.Handle{}
	coordinator.Register(shutdown.NewCloserComponent("database", handle))

	conn, err := c.Connect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted before the database connected")
			coordinator.Wait()
			return coordinator.ExitCode()
		}
		log.WithError(err).Error("failed to connect to database")
		return 1
	}
	handle.Set(conn)

	<-ctx.Done()
	coordinator.Wait()
	return coordinator.ExitCode()
}
