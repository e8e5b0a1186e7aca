package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestFromLookup_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := FromLookup(lookup(nil))
	require.NoError(t, err)
	assert.Equal(t, 3002, cfg.Port)
	assert.Equal(t, ":3002", cfg.Addr())
	assert.Equal(t, "./grades.json", cfg.GradesFile)
	assert.Equal(t, 3, cfg.TopNDefault)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "backups/", cfg.Firebase.BackupPrefix)
	assert.Empty(t, cfg.StaticDir)
}

func TestFromLookup_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := FromLookup(lookup(map[string]string{
		"PORT":                "8080",
		"GRADES_FILE":         "/var/lib/grades.json",
		"STATIC_DIR":          "public",
		"GRADES_TOP_DEFAULT":  "5",
		"CACHE_TTL_SECONDS":   "0",
		"RATE_LIMIT":          "100",
		"RATE_WINDOW_SECONDS": "10",
		"LOG_LEVEL":           "debug",
		"FIREBASE_CONFIG":     "sa.json",
		"FIREBASE_BUCKET":     "grades.appspot.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/var/lib/grades.json", cfg.GradesFile)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, 5, cfg.TopNDefault)
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.RateWindow)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sa.json", cfg.Firebase.CredentialsFile)
	assert.Equal(t, "grades.appspot.com", cfg.Firebase.Bucket)
}

func TestFromLookup_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]map[string]string{
		"port not a number":  {"PORT": "http"},
		"port out of range":  {"PORT": "70000"},
		"top default zero":   {"GRADES_TOP_DEFAULT": "0"},
		"negative cache ttl": {"CACHE_TTL_SECONDS": "-1"},
		"negative rate":      {"RATE_LIMIT": "-5"},
		"rate without window": {
			"RATE_LIMIT":          "5",
			"RATE_WINDOW_SECONDS": "0",
		},
	}

	for name, env := range tests {
		_, err := FromLookup(lookup(env))
		assert.Error(t, err, name)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		t.Skip("dotenv loading is skipped inside Docker")
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GRADES_TEST_DOTENV=loaded\n"), 0o644))
	t.Setenv("GRADES_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("GRADES_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("GRADES_TEST_DOTENV"))
}
