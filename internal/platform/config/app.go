package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendREST     = "rest"
	BackendGoTrue   = "gotrue"
)

// AppConfig is the process-level configuration of the member portal API.
type AppConfig struct {
	Port string `env:"PORT" envDefault:"8080"`

	// StorageBackend selects where profiles and plans are read from: memory|postgres|rest.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	// AuthBackend selects the identity service: memory|gotrue.
	AuthBackend string `env:"AUTH_BACKEND" envDefault:"memory"`

	DatabaseURL string `env:"DATABASE_URL"`
	// DatabaseMigrate applies the embedded schema on startup (local development).
	DatabaseMigrate bool `env:"DATABASE_MIGRATE" envDefault:"false"`

	// BackendURL is the base URL of the hosted backend (REST data API at /rest/v1, auth at /auth/v1).
	BackendURL     string        `env:"BACKEND_URL"`
	BackendAPIKey  string        `env:"BACKEND_API_KEY"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"5s"`

	// PublicOrigin is the browser-facing origin used in signup confirmation links.
	PublicOrigin string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:8080"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// SessionTTL bounds sessions issued by the in-memory identity service.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	// RequireConfirmation makes the in-memory identity service withhold sessions at signup.
	RequireConfirmation bool `env:"AUTH_REQUIRE_CONFIRMATION" envDefault:"false"`

	// DashboardLoadTimeout bounds how long GET /member-dashboard waits for its data.
	DashboardLoadTimeout time.Duration `env:"DASHBOARD_LOAD_TIMEOUT" envDefault:"10s"`
	// IdempotencyRetention is how long signup responses stay replayable.
	IdempotencyRetention time.Duration `env:"IDEMPOTENCY_RETENTION" envDefault:"24h"`

	// SeedPlans loads the default plan catalog into the in-memory plan store.
	SeedPlans bool `env:"SEED_PLANS" envDefault:"true"`
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	var cfg AppConfig
	if err := ParseEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.AuthBackend = strings.ToLower(strings.TrimSpace(cfg.AuthBackend))
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")

	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendREST:
		if err := requireBackend(cfg); err != nil {
			return AppConfig{}, fmt.Errorf("STORAGE_BACKEND=rest: %w", err)
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be one of memory|postgres|rest, got %q", cfg.StorageBackend)
	}

	switch cfg.AuthBackend {
	case BackendMemory:
	case BackendGoTrue:
		if err := requireBackend(cfg); err != nil {
			return AppConfig{}, fmt.Errorf("AUTH_BACKEND=gotrue: %w", err)
		}
	default:
		return AppConfig{}, fmt.Errorf("AUTH_BACKEND must be one of memory|gotrue, got %q", cfg.AuthBackend)
	}

	if cfg.SessionTTL <= 0 {
		return AppConfig{}, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.DashboardLoadTimeout <= 0 {
		return AppConfig{}, fmt.Errorf("DASHBOARD_LOAD_TIMEOUT must be positive")
	}
	return cfg, nil
}

// RESTURL is the hosted data API root.
func (c AppConfig) RESTURL() string { return c.BackendURL + "/rest/v1" }

// AuthURL is the hosted identity API root.
func (c AppConfig) AuthURL() string { return c.BackendURL + "/auth/v1" }

func requireBackend(cfg AppConfig) error {
	if cfg.BackendURL == "" || cfg.BackendAPIKey == "" {
		return fmt.Errorf("missing required env vars: BACKEND_URL, BACKEND_API_KEY")
	}
	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL")
	}
	return nil
}
