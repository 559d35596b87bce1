package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := vars[key]
		return value, ok
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithLookup(lookupFrom(map[string]string{
			"FIRESTORE_PROJECT_ID": "orderforge-dev",
			"INTERNAL_AUTH_SECRET": "s3cret",
		})),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Rules.SnapshotTTL != 5*time.Minute {
		t.Errorf("expected default snapshot TTL, got %s", cfg.Rules.SnapshotTTL)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithLookup(lookupFrom(map[string]string{
			"PORT":                 "9090",
			"SERVER_READ_TIMEOUT":  "5s",
			"RULE_SNAPSHOT_TTL":    "30s",
			"FIRESTORE_PROJECT_ID": "orderforge-dev",
			"INTERNAL_AUTH_SECRET": "s3cret",
			"INTERNAL_AUTH_ISSUER": "orderforge",
		})),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected read timeout 5s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Rules.SnapshotTTL != 30*time.Second {
		t.Errorf("expected snapshot TTL 30s, got %s", cfg.Rules.SnapshotTTL)
	}
	if cfg.Security.InternalAuthIssuer != "orderforge" {
		t.Errorf("expected issuer orderforge, got %s", cfg.Security.InternalAuthIssuer)
	}
}

func TestLoadEmulatorSatisfiesFirestore(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithLookup(lookupFrom(map[string]string{
			"FIRESTORE_EMULATOR_HOST": "localhost:8200",
			"INTERNAL_AUTH_SECRET":    "s3cret",
		})),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.EmulatorHost != "localhost:8200" {
		t.Errorf("unexpected emulator host %s", cfg.Firestore.EmulatorHost)
	}
}

func TestLoadReportsMissingFields(t *testing.T) {
	_, err := Load(WithEnvFile(""), WithLookup(lookupFrom(nil)))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", fields)
	}
	if fields[0] != "FIRESTORE_PROJECT_ID" || fields[1] != "INTERNAL_AUTH_SECRET" {
		t.Errorf("unexpected field list %v", fields)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local development\nFIRESTORE_PROJECT_ID=from-file\nINTERNAL_AUTH_SECRET=\"file-secret\"\nPORT=7070\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithLookup(lookupFrom(map[string]string{
		"PORT": "9999",
	})))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "from-file" {
		t.Errorf("expected project id from file, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Security.InternalAuthSecret != "file-secret" {
		t.Errorf("expected secret from file without quotes, got %s", cfg.Security.InternalAuthSecret)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("environment should win over file, got port %s", cfg.Server.Port)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithLookup(lookupFrom(map[string]string{
			"FIRESTORE_PROJECT_ID": "orderforge-dev",
			"INTERNAL_AUTH_SECRET": "s3cret",
			"RULE_SNAPSHOT_TTL":    "not-a-duration",
		})),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Rules.SnapshotTTL != 5*time.Minute {
		t.Errorf("expected fallback TTL, got %s", cfg.Rules.SnapshotTTL)
	}
}
