// Package store provides database connection handles for the connector.
//
// The handles carry no schema and expose no queries. They exist so that a
// connection can be established, health-checked and closed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/narvanalabs/hellostack/internal/store/mongodb"
	"github.com/narvanalabs/hellostack/internal/store/postgres"
)

// Conn is an open database handle.
type Conn interface {
	// Name returns the driver name for logging.
	Name() string
	// DatabaseName returns the database the handle is bound to.
	DatabaseName() string
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// Supported driver names.
const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"
)

// ErrUnsupportedScheme is returned when a DSN names no known driver.
var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// Options holds driver-independent connection settings.
type Options struct {
	ConnectTimeout time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{ConnectTimeout: 5 * time.Second}
}

// Opener opens a connection for a DSN. Open is the production implementation;
// tests substitute their own.
type Opener func(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (Conn, error)

// Driver returns the driver name a DSN resolves to.
func Driver(dsn string) (string, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty dsn", ErrUnsupportedScheme)
	}

	// key=value connection strings, e.g. "host=localhost dbname=yourdb"
	if !strings.Contains(trimmed, "://") {
		if strings.Contains(trimmed, "host=") || strings.Contains(trimmed, "dbname=") {
			return DriverPostgres, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, trimmed)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parsing dsn: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Open opens a connection to the database named by dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultOptions().ConnectTimeout
	}

	driver, err := Driver(dsn)
	if err != nil {
		return nil, err
	}

	// Each branch checks err itself so a typed nil never escapes as a non-nil Conn.
	switch driver {
	case DriverMongo:
		cfg := mongodb.DefaultConfig(dsn)
		cfg.ConnectTimeout = opts.ConnectTimeout
		s, err := mongodb.NewStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		cfg := postgres.DefaultConfig(dsn)
		cfg.ConnectTimeout = opts.ConnectTimeout
		s, err := postgres.NewStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
