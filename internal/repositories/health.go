package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const defaultCheckTimeout = 1500 * time.Millisecond

// HealthStatus classifies the outcome of a dependency probe.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// HealthResult holds the outcome of a single probe.
type HealthResult struct {
	Status    HealthStatus  `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Latency   time.Duration `json:"latency_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// HealthReport aggregates all probe outcomes.
type HealthReport struct {
	Status      HealthStatus            `json:"status"`
	Checks      map[string]HealthResult `json:"checks"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// HealthChecker evaluates a fixed set of dependency probes in parallel.
type HealthChecker struct {
	checks []DependencyCheck
	now    func() time.Time
}

// NewHealthChecker constructs a checker for the given probes.
func NewHealthChecker(checks []DependencyCheck, now func() time.Time) (*HealthChecker, error) {
	if len(checks) == 0 {
		return nil, errors.New("health checker: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("health checker: dependency check missing name")
		}
		if check.Check == nil {
			return nil, errors.New("health checker: dependency " + check.Name + " missing check function")
		}
	}
	if now == nil {
		now = time.Now
	}
	checker := &HealthChecker{
		checks: make([]DependencyCheck, len(checks)),
		now:    now,
	}
	copy(checker.checks, checks)
	return checker, nil
}

// Collect runs every probe and reports the worst observed status.
func (c *HealthChecker) Collect(ctx context.Context) HealthReport {
	results := make(map[string]HealthResult, len(c.checks))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(len(c.checks))
	for _, check := range c.checks {
		check := check
		go func() {
			defer wg.Done()

			timeout := check.Timeout
			if timeout <= 0 {
				timeout = defaultCheckTimeout
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := c.now()
			err := check.Check(checkCtx)
			end := c.now()

			result := HealthResult{
				Status:    HealthStatusOK,
				Detail:    "ok",
				Latency:   end.Sub(start),
				CheckedAt: end,
			}
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				result.Status = HealthStatusError
				result.Detail = err.Error()
			default:
				result.Status = HealthStatusDegraded
				result.Detail = err.Error()
			}

			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := HealthStatusOK
	for _, result := range results {
		if result.Status == HealthStatusError {
			status = HealthStatusError
			break
		}
		if result.Status == HealthStatusDegraded {
			status = HealthStatusDegraded
		}
	}

	return HealthReport{
		Status:      status,
		Checks:      results,
		GeneratedAt: c.now(),
	}
}
