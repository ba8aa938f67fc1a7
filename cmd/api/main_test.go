package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/narvanalabs/hellostack/internal/connector"
	"github.com/narvanalabs/hellostack/internal/retry"
	"github.com/narvanalabs/hellostack/internal/shutdown"
	"github.com/narvanalabs/hellostack/internal/store"
	"github.com/narvanalabs/hellostack/pkg/logger"
)

type testConn struct {
	closed atomic.Bool
}

func (c *testConn) Name() string                   { return store.DriverMongo }
func (c *testConn) DatabaseName() string           { return "yourdb" }
func (c *testConn) Ping(ctx context.Context) error { return nil }
func (c *testConn) Close() error {
	c.closed.Store(true)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, slog.LevelDebug, true)
}

func newConnector(maxAttempts int, open store.Opener) *connector.Connector {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = maxAttempts
	policy.InitialBackoff = 5 * time.Millisecond
	policy.MaxBackoff = 10 * time.Millisecond
	policy.Jitter = 0

	return connector.New(connector.Config{
		DSN:              "mongodb://localhost:27017/yourdb",
		Policy:           policy,
		BreakerThreshold: 1000,
	}, testLogger().Logger, connector.WithOpener(open))
}

func newCoordinator() *shutdown.Coordinator {
	return shutdown.NewCoordinator(
		shutdown.WithTimeout(time.Second),
		shutdown.WithLogger(testLogger().Logger),
	)
}

func waitClosed(t *testing.T, conn *testConn) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !conn.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("connection was not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnectRequiredReturnsHandle(t *testing.T) {
	conn := &testConn{}
	open := func(ctx context.Context, dsn string, opts store.Options, logger *slog.Logger) (store.Conn, error) {
		return conn, nil
	}
	coordinator := newCoordinator()

	got, err := connect(context.Background(), newConnector(3, open), true, testLogger(), coordinator)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got != conn {
		t.Fatal("required connect should return the connection for the startup gate")
	}

	coordinator.Shutdown()
	if !conn.closed.Load() {
		t.Error("connection was not closed on shutdown")
	}
}

func TestConnectRequiredFailure(t *testing.T) {
	open := func(ctx context.Context, dsn string, opts store.Options, logger *slog.Logger) (store.Conn, error) {
		return nil, errors.New("connection refused")
	}

	got, err := connect(context.Background(), newConnector(2, open), true, testLogger(), newCoordinator())
	if !errors.Is(err, retry.ErrMaxAttemptsExceeded) {
		t.Fatalf("connect = %v, want ErrMaxAttemptsExceeded", err)
	}
	if got != nil {
		t.Error("failed connect should not return a connection")
	}
}

func TestConnectBackgroundClosedOnShutdown(t *testing.T) {
	conn := &testConn{}
	opened := make(chan struct{})
	open := func(ctx context.Context, dsn string, opts store.Options, logger *slog.Logger) (store.Conn, error) {
		close(opened)
		return conn, nil
	}
	coordinator := newCoordinator()

	got, err := connect(context.Background(), newConnector(3, open), false, testLogger(), coordinator)
	if err != nil || got != nil {
		t.Fatalf("background connect = (%v, %v), want (nil, nil)", got, err)
	}

	<-opened
	coordinator.Shutdown()
	waitClosed(t, conn)
}

func TestConnectBackgroundAfterShutdown(t *testing.T) {
	conn := &testConn{}
	release := make(chan struct{})
	open := func(ctx context.Context, dsn string, opts store.Options, logger *slog.Logger) (store.Conn, error) {
		<-release
		return conn, nil
	}
	coordinator := newCoordinator()

	if _, err := connect(context.Background(), newConnector(3, open), false, testLogger(), coordinator); err != nil {
		t.Fatalf("connect: %v", err)
	}

	coordinator.Shutdown()
	close(release)
	waitClosed(t, conn)
}
