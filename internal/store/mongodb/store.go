// Package mongodb provides a MongoDB connection handle.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// defaultDatabase is the name the server uses when the URI names none.
const defaultDatabase = "test"

// Config holds MongoDB connection configuration.
type Config struct {
	URI            string
	AppName        string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(uri string) *Config {
	return &Config{
		URI:            uri,
		AppName:        "hellostack",
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    25,
	}
}

// Store is a MongoDB client bound to one database.
type Store struct {
	client   *mongo.Client
	database string
	logger   *slog.Logger
}

// DatabaseFromURI returns the database named in the path of a MongoDB URI.
func DatabaseFromURI(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parsing mongodb uri: %w", err)
	}
	if cs.Database == "" {
		return defaultDatabase, nil
	}
	return cs.Database, nil
}

// NewStore connects to cfg.URI and verifies the primary is reachable.
func NewStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	database, err := DatabaseFromURI(cfg.URI)
	if err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(cfg.AppName).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, dcancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer dcancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Store{
		client:   client,
		database: database,
		logger:   logger,
	}, nil
}

// Name returns the driver name.
func (s *Store) Name() string {
	return "mongodb"
}

// DatabaseName returns the database the client is bound to.
func (s *Store) DatabaseName() string {
	return s.database
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	s.logger.Info("closing MongoDB connection")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
