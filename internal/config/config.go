// Package config loads all runtime configuration from environment variables.
// No config files and no third-party config framework are used.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for Parley.
type Config struct {
	HTTP HTTPConfig
	DB   DBConfig
	Log  LogConfig
	Auth AuthConfig
	AI   AIConfig
	CORS CORSConfig
	App  AppConfig
	OTel OTelConfig
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int
}

// DBConfig holds database connection configuration.
type DBConfig struct {
	Driver   string // "sqlite" (default) or "postgres"
	DSN      string // required when Driver == "postgres"
	File     string // SQLite database file path (default: "parley.db")
	MaxConns int    // Postgres only
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig holds identity-provider verification settings.
//
// Access tokens are issued by the external identity provider; Parley only
// verifies them. ServiceRoleKey is the elevated-privilege credential presented
// by trusted service-to-service callers (the provider webhook relay).
type AuthConfig struct {
	Issuer         string
	JWTSecret      string //nolint:gosec // intentional: holds token verification key loaded from env
	ServiceRoleKey string //nolint:gosec // intentional: holds service role key loaded from env
}

// AIConfig holds completion-API connection settings.
type AIConfig struct {
	Provider string
	APIKey   string //nolint:gosec // intentional: holds AI provider API key loaded from env
	APIBase  string
	Model    string
}

// CORSConfig holds allowed cross-origin request origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// AppConfig holds application-level settings such as the seed tenant.
type AppConfig struct {
	SeedOrgName     string
	SeedAdminUserID string
	SeedAdminEmail  string
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	OTLPEndpoint string
}

// Load reads configuration from environment variables, applies defaults,
// and returns an error if any required field is absent.
func Load() (*Config, error) {
	cfg := &Config{}

	// HTTP
	cfg.HTTP.Port = envInt("HTTP_PORT", 8080)

	// DB
	cfg.DB.Driver = envStr("DB_DRIVER", "sqlite")
	cfg.DB.File = envStr("DB_FILE", "parley.db")
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		return nil, errors.New("DB_DSN is required when DB_DRIVER=postgres")
	}
	cfg.DB.MaxConns = envInt("DB_MAX_CONNS", 25)

	// Log
	cfg.Log.Level = envStr("LOG_LEVEL", "info")
	cfg.Log.Format = envStr("LOG_FORMAT", "json")

	// Auth (verification key and service key are required)
	cfg.Auth.Issuer = envStr("AUTH_ISSUER", "https://auth.parley.local")
	cfg.Auth.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	cfg.Auth.ServiceRoleKey = os.Getenv("SERVICE_ROLE_KEY")
	if cfg.Auth.ServiceRoleKey == "" {
		return nil, errors.New("SERVICE_ROLE_KEY is required")
	}

	// AI
	cfg.AI.Provider = envStr("AI_PROVIDER", "noop")
	cfg.AI.APIKey = os.Getenv("AI_API_KEY")
	cfg.AI.APIBase = envStr("AI_API_BASE", "https://api.openai.com/v1")
	cfg.AI.Model = envStr("AI_MODEL", "gpt-4o-mini")

	// CORS
	cfg.CORS.AllowedOrigins = splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// App
	cfg.App.SeedOrgName = os.Getenv("SEED_ORG_NAME")
	cfg.App.SeedAdminUserID = os.Getenv("SEED_ADMIN_USER_ID")
	cfg.App.SeedAdminEmail = envStr("SEED_ADMIN_EMAIL", "admin@parley.local")

	// OTel
	cfg.OTel.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
