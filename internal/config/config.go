// Package config reads the server's settings from the environment.
//
// An optional .env file in the working directory is loaded first; variables
// already set in the environment win over the file.
//
//	PORT               HTTP port (8080)
//	STORE_BACKEND      "sqlite" (embedded, default) or "rest" (hosted backend)
//	SUPABASE_URL       project URL, required for rest
//	SUPABASE_ANON_KEY  project anon key, required for rest
//	DB_PATH            sqlite file (data/easychef.db)
//	JWT_SECRET         token signing secret for sqlite, at least 16 characters
//	HTTP_TIMEOUT       round-trip bound for rest calls (10s)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/easychef/internal/apperror"
)

const (
	BackendSQLite = "sqlite"
	BackendREST   = "rest"
)

const (
	DefaultPort        = 8080
	DefaultDBPath      = "data/easychef.db"
	DefaultHTTPTimeout = 10 * time.Second
)

type Config struct {
	Port    int
	Backend string

	SupabaseURL     string
	SupabaseAnonKey string
	HTTPTimeout     time.Duration

	DBPath    string
	JWTSecret string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv, applying defaults and validating the
// settings the chosen backend needs.
func Parse(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:            DefaultPort,
		Backend:         BackendSQLite,
		SupabaseURL:     getenv("SUPABASE_URL"),
		SupabaseAnonKey: getenv("SUPABASE_ANON_KEY"),
		HTTPTimeout:     DefaultHTTPTimeout,
		DBPath:          DefaultDBPath,
		JWTSecret:       getenv("JWT_SECRET"),
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, apperror.ValidationFailed("PORT", fmt.Sprintf("invalid PORT %q", v))
		}
		cfg.Port = port
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, apperror.ValidationFailed("HTTP_TIMEOUT", fmt.Sprintf("invalid HTTP_TIMEOUT %q", v))
		}
		cfg.HTTPTimeout = d
	}

	switch cfg.Backend {
	case BackendREST:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return Config{}, apperror.ValidationFailed("SUPABASE_URL",
				"SUPABASE_URL and SUPABASE_ANON_KEY are required for the rest backend")
		}
	case BackendSQLite:
		if len(cfg.JWTSecret) < 16 {
			return Config{}, apperror.ValidationFailed("JWT_SECRET",
				"JWT_SECRET of at least 16 characters is required for the sqlite backend")
		}
	default:
		return Config{}, apperror.ValidationFailed("STORE_BACKEND",
			fmt.Sprintf("unknown STORE_BACKEND %q (want %s or %s)", cfg.Backend, BackendSQLite, BackendREST))
	}

	return cfg, nil
}
