// Package retry provides retry policy and attempt tracking for operations
// against external dependencies, such as opening a database connection.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Retryable error patterns that indicate a transient dependency outage.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"network error",
	"no reachable servers",
	"server selection error",
	"server selection timeout",
	"i/o timeout",
	"timeout",
	"broken pipe",
	"too many clients",
	"the database system is starting up",
}

// Permanent error patterns that no amount of retrying will fix.
var permanentErrorPatterns = []string{
	"authentication failed",
	"password authentication failed",
	"unsupported database scheme",
	"parsing dsn",
	"parsing mongodb uri",
	"does not exist",
}

// Attempt records a single attempt.
type Attempt struct {
	Number      int       `json:"number"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts     int           `json:"max_attempts"`     // Default: 5
	InitialBackoff  time.Duration `json:"initial_backoff"`  // Wait before the second attempt
	MaxBackoff      time.Duration `json:"max_backoff"`      // Upper bound on any single wait
	Multiplier      float64       `json:"multiplier"`       // Growth factor per attempt
	Jitter          float64       `json:"jitter"`           // Fraction of the backoff randomized, 0..1
	RetryableErrors []string      `json:"retryable_errors"` // Error substrings that trigger retry
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:     5,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		Multiplier:      2,
		Jitter:          0.2,
		RetryableErrors: retryableErrorPatterns,
	}
}

// Manager tracks attempts per key and decides whether another attempt is due.
// It is safe for concurrent use.
type Manager struct {
	policy   *Policy
	mu       sync.Mutex
	attempts map[string][]Attempt
	random   func() float64
}

// ManagerOption is a functional option for configuring the Manager.
type ManagerOption func(*Manager)

// WithPolicy sets a custom retry policy.
func WithPolicy(policy *Policy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithRandom sets the source of jitter, returning values in [0, 1).
func WithRandom(random func() float64) ManagerOption {
	return func(m *Manager) {
		m.random = random
	}
}

// NewManager creates a new retry manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		policy:   DefaultPolicy(),
		attempts: make(map[string][]Attempt),
		random:   rand.Float64,
	}

	for _, opt := range opts {
		opt(m)
	}

	policy := *m.policy
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	m.policy = &policy

	return m
}

// ShouldRetry determines if a failed attempt for key should be retried.
func (m *Manager) ShouldRetry(key string, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if len(m.Attempts(key)) >= m.policy.MaxAttempts {
		return false
	}

	return m.IsRetryableError(err)
}

// IsRetryableError checks if an error is transient and not permanent.
func (m *Manager) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range permanentErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return false
		}
	}

	if IsTransient(err) {
		return true
	}

	for _, pattern := range m.policy.RetryableErrors {
		if strings.Contains(errStr, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a network-level failure that is worth retrying.
func IsTransient(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Backoff returns the wait before attempt number next (1-based). The first
// attempt has no wait.
func (m *Manager) Backoff(next int) time.Duration {
	if next <= 1 {
		return 0
	}

	base := float64(m.policy.InitialBackoff) * math.Pow(m.policy.Multiplier, float64(next-2))
	if ceiling := float64(m.policy.MaxBackoff); ceiling > 0 && base > ceiling {
		base = ceiling
	}

	if m.policy.Jitter > 0 {
		// Spread the wait uniformly over [base*(1-jitter), base*(1+jitter)).
		spread := base * m.policy.Jitter
		base = base - spread + 2*spread*m.random()
	}

	return time.Duration(base)
}

// RecordAttempt records an attempt for key.
func (m *Manager) RecordAttempt(key string, attempt Attempt) error {
	if key == "" {
		return ErrKeyRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[key] = append(m.attempts[key], attempt)
	return nil
}

// Attempts returns a copy of all recorded attempts for key.
func (m *Manager) Attempts(key string) []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.attempts[key]))
	copy(out, m.attempts[key])
	return out
}

// ClearAttempts clears all recorded attempts for key.
func (m *Manager) ClearAttempts(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
}

// MaxAttempts returns the maximum number of attempts.
func (m *Manager) MaxAttempts() int {
	return m.policy.MaxAttempts
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
