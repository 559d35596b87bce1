package repositories

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewHealthCheckerValidatesInput(t *testing.T) {
	if _, err := NewHealthChecker(nil, nil); err == nil {
		t.Fatal("expected error for empty check set")
	}
	if _, err := NewHealthChecker([]DependencyCheck{{Name: "  "}}, nil); err == nil {
		t.Fatal("expected error for missing name")
	}
	if _, err := NewHealthChecker([]DependencyCheck{{Name: "db"}}, nil); err == nil {
		t.Fatal("expected error for missing check function")
	}
}

func TestCollectAllHealthy(t *testing.T) {
	checker, err := NewHealthChecker([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "rules", Check: func(context.Context) error { return nil }},
	}, nil)
	if err != nil {
		t.Fatalf("NewHealthChecker: %v", err)
	}

	report := checker.Collect(context.Background())
	if report.Status != HealthStatusOK {
		t.Errorf("expected ok status, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Checks))
	}
	if report.Checks["firestore"].Status != HealthStatusOK {
		t.Errorf("expected firestore ok, got %s", report.Checks["firestore"].Status)
	}
}

func TestCollectReportsDegraded(t *testing.T) {
	checker, err := NewHealthChecker([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "rules", Check: func(context.Context) error { return errors.New("snapshot stale") }},
	}, nil)
	if err != nil {
		t.Fatalf("NewHealthChecker: %v", err)
	}

	report := checker.Collect(context.Background())
	if report.Status != HealthStatusDegraded {
		t.Errorf("expected degraded status, got %s", report.Status)
	}
	if report.Checks["rules"].Detail != "snapshot stale" {
		t.Errorf("unexpected detail %q", report.Checks["rules"].Detail)
	}
}

func TestCollectTimeoutIsError(t *testing.T) {
	checker, err := NewHealthChecker([]DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewHealthChecker: %v", err)
	}

	report := checker.Collect(context.Background())
	if report.Status != HealthStatusError {
		t.Errorf("expected error status, got %s", report.Status)
	}
}
