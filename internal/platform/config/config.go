package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultSnapshotTTL  = 5 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Rules     RulesConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// RulesConfig controls rule snapshot loading.
type RulesConfig struct {
	// SnapshotTTL bounds how long a cached rule snapshot may serve quotes
	// before the repository reloads it.
	SnapshotTTL time.Duration
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	// InternalAuthSecret signs the HS256 service tokens accepted on
	// /internal routes.
	InternalAuthSecret string
	// InternalAuthIssuer is the expected iss claim; empty disables the check.
	InternalAuthIssuer string
}

// ValidationError is returned when required configuration fields are missing
// or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises configuration loading.
type Option func(*loader)

type loader struct {
	envFile string
	lookup  func(string) (string, bool)
}

// WithEnvFile overrides the .env file consulted before the process
// environment.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// WithLookup overrides environment lookups, primarily for tests.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load reads configuration from the environment (optionally seeded from a
// .env file), applies defaults, and validates required fields.
func Load(opts ...Option) (Config, error) {
	l := &loader{envFile: defaultEnvFile, lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	fileVars, err := readEnvFile(l.envFile)
	if err != nil {
		return Config{}, err
	}
	get := func(key string) string {
		if value, ok := l.lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileVars[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         withDefault(get("PORT"), defaultPort),
			ReadTimeout:  durationOrDefault(get("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOrDefault(get("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOrDefault(get("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    get("FIRESTORE_PROJECT_ID"),
			EmulatorHost: get("FIRESTORE_EMULATOR_HOST"),
		},
		Rules: RulesConfig{
			SnapshotTTL: durationOrDefault(get("RULE_SNAPSHOT_TTL"), defaultSnapshotTTL),
		},
		Security: SecurityConfig{
			InternalAuthSecret: get("INTERNAL_AUTH_SECRET"),
			InternalAuthIssuer: get("INTERNAL_AUTH_ISSUER"),
		},
	}

	var missing []string
	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost == "" {
		missing = append(missing, "FIRESTORE_PROJECT_ID")
	}
	if cfg.Security.InternalAuthSecret == "" {
		missing = append(missing, "INTERNAL_AUTH_SECRET")
	}
	if cfg.Rules.SnapshotTTL <= 0 {
		missing = append(missing, "RULE_SNAPSHOT_TTL")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, &ValidationError{fields: missing}
	}
	return cfg, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// readEnvFile parses KEY=VALUE lines, ignoring comments and blanks. A missing
// file is not an error; the environment alone may be sufficient.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return vars, nil
}
