// Package connector establishes the database connection with retry, backoff
// and a circuit breaker.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/narvanalabs/hellostack/internal/retry"
	"github.com/narvanalabs/hellostack/internal/store"
	"github.com/narvanalabs/hellostack/pkg/config"
)

// minDeniedWait bounds how often Connect polls a breaker that refused it.
const minDeniedWait = 10 * time.Millisecond

// Config holds connector settings.
type Config struct {
	DSN              string
	ConnectTimeout   time.Duration
	Policy           *retry.Policy
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// ConfigFrom builds a connector Config from the database section of the
// application configuration.
func ConfigFrom(db config.DatabaseConfig) Config {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = db.MaxAttempts
	policy.InitialBackoff = db.RetryBackoff
	policy.MaxBackoff = db.MaxBackoff

	return Config{
		DSN:              db.URL,
		ConnectTimeout:   db.ConnectTimeout,
		Policy:           policy,
		BreakerThreshold: db.BreakerThreshold,
		BreakerCooldown:  db.BreakerCooldown,
	}
}

// Connector opens database connections. It is safe for concurrent use; the
// breaker is shared between calls to Connect.
type Connector struct {
	cfg     Config
	open    store.Opener
	sleep   func(ctx context.Context, d time.Duration) error
	breaker *Breaker
	retries *retry.Manager
	logger  *slog.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithOpener replaces store.Open.
func WithOpener(open store.Opener) Option {
	return func(c *Connector) {
		c.open = open
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Connector) {
		c.sleep = sleep
	}
}

// WithBreaker replaces the breaker built from Config.
func WithBreaker(b *Breaker) Option {
	return func(c *Connector) {
		c.breaker = b
	}
}

// New creates a Connector.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = retry.DefaultPolicy()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = store.DefaultOptions().ConnectTimeout
	}

	c := &Connector{
		cfg:     cfg,
		open:    store.Open,
		sleep:   retry.Wait,
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		retries: retry.NewManager(retry.WithPolicy(cfg.Policy)),
		logger:  logger.With("component", "connector"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Breaker returns the connector's circuit breaker.
func (c *Connector) Breaker() *Breaker {
	return c.breaker
}

// Connect opens a connection, retrying transient failures until the policy
// is exhausted or ctx is done. Each successful attempt is logged once as
// "database connected".
func (c *Connector) Connect(ctx context.Context) (store.Conn, error) {
	driver, err := store.Driver(c.cfg.DSN)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString()
	defer c.retries.ClearAttempts(key)

	log := c.logger.With("connection_id", key, "driver", driver)
	maxAttempts := c.retries.MaxAttempts()
	opts := store.Options{ConnectTimeout: c.cfg.ConnectTimeout}

	for {
		next := len(c.retries.Attempts(key)) + 1

		wait := c.retries.Backoff(next)
		if after := c.breaker.RetryAfter(); after > wait {
			log.Info("circuit breaker open, waiting", "retry_after", after)
			wait = after
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("waiting to connect: %w", err)
		}

		// A denied attempt does not count against the policy.
		if err := c.breaker.Allow(); err != nil {
			if errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil {
				if err := c.sleep(ctx, max(c.cfg.Policy.InitialBackoff, minDeniedWait)); err != nil {
					return nil, fmt.Errorf("waiting to connect: %w", err)
				}
				continue
			}
			return nil, err
		}

		attempt := retry.Attempt{Number: next, StartedAt: time.Now()}
		conn, err := c.open(ctx, c.cfg.DSN, opts, c.logger)
		attempt.CompletedAt = time.Now()

		if err == nil {
			c.breaker.Success()
			attempt.Success = true
			_ = c.retries.RecordAttempt(key, attempt)

			log.Info("database connected",
				"database", conn.DatabaseName(),
				"attempt", next,
				"duration", attempt.CompletedAt.Sub(attempt.StartedAt),
			)
			return conn, nil
		}

		c.breaker.Failure()
		attempt.Error = err.Error()
		_ = c.retries.RecordAttempt(key, attempt)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("connecting to database: %w", ctx.Err())
		}

		log.Warn("database connection failed",
			"attempt", next,
			"max_attempts", maxAttempts,
			"breaker", c.breaker.State().String(),
			"error", err,
		)

		if !c.retries.ShouldRetry(key, err) {
			if next >= maxAttempts {
				return nil, fmt.Errorf("%w after %d attempts: %w", retry.ErrMaxAttemptsExceeded, next, err)
			}
			return nil, fmt.Errorf("%w: %w", retry.ErrNonRetryableError, err)
		}
	}
}
