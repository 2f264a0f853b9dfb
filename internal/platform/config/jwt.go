package config

import (
	"fmt"
	"strings"
	"time"
)

// JWTConfig configures verification of access tokens issued by the hosted identity service.
//
// Tokens are verified either against a JWKS endpoint (RS256) or a shared secret (HS256).
type JWTConfig struct {
	Issuer   string `env:"JWT_ISSUER"`
	Audience string `env:"JWT_AUDIENCE" envDefault:"authenticated"`
	JWKSURL  string `env:"JWT_JWKS_URL"`
	Secret   string `env:"JWT_SECRET"`

	ClockSkew              time.Duration `env:"JWT_CLOCK_SKEW" envDefault:"30s"`
	JWKSRefreshInterval    time.Duration `env:"JWT_JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	JWKSMinRefreshInterval time.Duration `env:"JWT_JWKS_MIN_REFRESH_INTERVAL" envDefault:"10s"`

	HTTPTimeout time.Duration `env:"JWT_HTTP_TIMEOUT" envDefault:"5s"`
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	var cfg JWTConfig
	if err := ParseEnv(&cfg); err != nil {
		return JWTConfig{}, err
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.JWKSURL = strings.TrimSpace(cfg.JWKSURL)
	if cfg.Issuer == "" || cfg.Audience == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE")
	}
	if cfg.JWKSURL == "" && cfg.Secret == "" {
		return JWTConfig{}, fmt.Errorf("one of JWT_JWKS_URL or JWT_SECRET must be set")
	}
	return cfg, nil
}
