package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

// TestPropertyOverallStatus checks that the report is healthy exactly when
// every registered component is healthy.
func TestPropertyOverallStatus(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("overall status is the conjunction of component statuses", prop.ForAll(
		func(states []bool) bool {
			checker := NewChecker()
			allHealthy := true
			for i, healthy := range states {
				var err error
				if !healthy {
					err = errors.New("down")
					allHealthy = false
				}
				checker.Register(string(rune('a'+i)), PingCheck(&mockPinger{err: err}))
			}

			response := checker.Check(context.Background())
			if len(response.Components) != len(states) {
				t.Logf("got %d components, want %d", len(response.Components), len(states))
				return false
			}
			for i, healthy := range states {
				got := response.Components[string(rune('a'+i))].Status
				if (got == StatusHealthy) != healthy {
					return false
				}
			}
			return response.Healthy() == allHealthy
		},
		gen.SliceOfN(5, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestCheckReportsErrorMessage(t *testing.T) {
	checker := NewChecker()
	checker.Register("database", PingCheck(&mockPinger{err: errors.New("connection refused")}))

	response := checker.Check(context.Background())
	db := response.Components["database"]
	if db.Status != StatusUnhealthy || db.Message != "connection refused" {
		t.Errorf("database = %+v", db)
	}
	if response.Version != Version {
		t.Errorf("Version = %q, want %q", response.Version, Version)
	}
}

func TestCheckNilFuncIsUnhealthy(t *testing.T) {
	checker := NewChecker()
	checker.Register("database", nil)

	if checker.Check(context.Background()).Healthy() {
		t.Error("a nil check must be unhealthy")
	}
}

func TestRegisterReplaces(t *testing.T) {
	checker := NewChecker()
	checker.Register("api", func(ctx context.Context) error { return errors.New("down") })
	checker.Register("api", func(ctx context.Context) error { return nil })

	if names := checker.Names(); len(names) != 1 || names[0] != "api" {
		t.Errorf("Names = %v", names)
	}
	if !checker.Check(context.Background()).Healthy() {
		t.Error("replacement check should be used")
	}
}

func TestCheckTimeout(t *testing.T) {
	checker := NewChecker()
	checker.SetTimeout(20 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	response := checker.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Error("Check did not honour its timeout")
	}
	if response.Healthy() {
		t.Error("timed out check should be unhealthy")
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantHealth Status
	}{
		{"healthy", nil, http.StatusOK, StatusHealthy},
		{"unhealthy", errors.New("no reachable servers"), http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker()
			checker.Register("api", PingCheck(&mockPinger{err: tt.err}))

			rec := httptest.NewRecorder()
			checker.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantHealth)
			}
			if _, ok := resp.Components["api"]; !ok {
				t.Error("missing api component")
			}
		})
	}
}
