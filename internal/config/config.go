// Package config reads the service settings from the environment. Commands
// load a .env file with godotenv before calling Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort         = 3002
	defaultGradesFile   = "./grades.json"
	defaultTopN         = 3
	defaultCacheTTL     = 30 * time.Second
	defaultRateWindow   = 60 * time.Second
	defaultBackupPrefix = "backups/"
)

type Config struct {
	Port       int
	GradesFile string
	StaticDir  string // Served under /public when set
	LogLevel   string
	GinMode    string

	TopNDefault int
	CacheTTL    time.Duration // Zero disables the aggregate cache

	RateLimit  int // Requests per window per client IP; zero disables
	RateWindow time.Duration

	Firebase FirebaseConfig
}

type FirebaseConfig struct {
	CredentialsFile string
	Bucket          string
	BackupPrefix    string
}

// LoadDotEnv loads .env into the process environment unless running inside a
// Docker container, where the environment is provided by the runtime.
func LoadDotEnv(files ...string) error {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return nil
	}
	return godotenv.Load(files...)
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.Getenv)
}

// FromLookup reads the configuration through getenv.
func FromLookup(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		GradesFile: stringOr(getenv("GRADES_FILE"), defaultGradesFile),
		StaticDir:  strings.TrimSpace(getenv("STATIC_DIR")),
		LogLevel:   stringOr(getenv("LOG_LEVEL"), "info"),
		GinMode:    strings.TrimSpace(getenv("GIN_MODE")),
		Firebase: FirebaseConfig{
			CredentialsFile: strings.TrimSpace(getenv("FIREBASE_CONFIG")),
			Bucket:          strings.TrimSpace(getenv("FIREBASE_BUCKET")),
			BackupPrefix:    stringOr(getenv("FIREBASE_BACKUP_PREFIX"), defaultBackupPrefix),
		},
	}

	var err error
	if cfg.Port, err = intOr(getenv, "PORT", defaultPort); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.TopNDefault, err = intOr(getenv, "GRADES_TOP_DEFAULT", defaultTopN); err != nil {
		return nil, err
	}
	if cfg.TopNDefault <= 0 {
		return nil, fmt.Errorf("GRADES_TOP_DEFAULT must be greater than 0")
	}

	if cfg.CacheTTL, err = secondsOr(getenv, "CACHE_TTL_SECONDS", defaultCacheTTL); err != nil {
		return nil, err
	}

	if cfg.RateLimit, err = intOr(getenv, "RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("RATE_LIMIT must not be negative")
	}
	if cfg.RateWindow, err = secondsOr(getenv, "RATE_WINDOW_SECONDS", defaultRateWindow); err != nil {
		return nil, err
	}
	if cfg.RateLimit > 0 && cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("RATE_WINDOW_SECONDS must be greater than 0 when RATE_LIMIT is set")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func stringOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func intOr(getenv func(string) string, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

func secondsOr(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number of seconds, got %q", key, raw)
	}
	return time.Duration(v) * time.Second, nil
}
