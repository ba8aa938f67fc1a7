// Package health aggregates named component checks into a health report.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// Version is reported by every Checker. It is set at build time using ldflags.
var Version = "dev"

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Healthy reports whether every component is healthy.
func (r *Response) Healthy() bool {
	return r.Status == StatusHealthy
}

// CheckFunc checks one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Pinger is implemented by handles that can be pinged, such as store.Conn.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Checker runs registered checks concurrently under a shared timeout.
type Checker struct {
	checks    []namedCheck
	startTime time.Time
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewChecker creates a checker with no components.
func NewChecker() *Checker {
	return &Checker{
		startTime: time.Now(),
		timeout:   5 * time.Second,
	}
}

// Register adds a named check. Registering a name twice replaces the check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].fn = fn
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, fn: fn})
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Names returns the registered component names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for _, check := range c.checks {
		names = append(names, check.name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	checks := make([]namedCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		components = make(map[string]ComponentStatus, len(checks))
	)
	for _, check := range checks {
		wg.Add(1)
		go func(check namedCheck) {
			defer wg.Done()
			status := run(checkCtx, check.fn)
			mu.Lock()
			components[check.name] = status
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
	}

	return &Response{
		Status:     overall,
		Components: components,
		Version:    Version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func run(ctx context.Context, fn CheckFunc) ComponentStatus {
	if fn == nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: "not configured"}
	}
	if err := fn(ctx); err != nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
	}
	return ComponentStatus{Status: StatusHealthy, Message: "ok"}
}

// Handler returns an HTTP handler that serves the health report as JSON,
// with 503 when any component is unhealthy.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Healthy() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}
