package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromLookup_Values(t *testing.T) {
	key := strings.Repeat("ab", 32)
	old := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	cfg, err := FromLookup(lookupMap(map[string]string{
		"USSDFLOW_PORT":                     "9090",
		"USSDFLOW_STORE":                    "SQLite",
		"USSDFLOW_DSN":                      "file:projects.db",
		"USSDFLOW_LOG_LEVEL":                "debug",
		"USSDFLOW_LOG_FORMAT":               "json",
		"USSDFLOW_STRICT":                   "true",
		"USSDFLOW_RATE_LIMIT":               "5",
		"USSDFLOW_RATE_BURST":               "10",
		"USSDFLOW_CORS_ORIGINS":             "https://a.example, https://b.example",
		"USSDFLOW_ENCRYPTION_KEY":           key,
		"USSDFLOW_ENCRYPTION_FALLBACK_KEYS": old,
		"USSDFLOW_REDACT_SECRETS":           "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "file:projects.db", cfg.DSN)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, 10, cfg.RateBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Len(t, cfg.EncryptionKey, 32)
	require.Len(t, cfg.FallbackKeys, 1)
	assert.Equal(t, []byte(strings.Repeat("k", 32)), cfg.FallbackKeys[0])
	assert.True(t, cfg.RedactSecrets)
}

func TestFromLookup_CollectsErrors(t *testing.T) {
	_, err := FromLookup(lookupMap(map[string]string{
		"USSDFLOW_PORT":           "http",
		"USSDFLOW_STORE":          "mongo",
		"USSDFLOW_ENCRYPTION_KEY": "short",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USSDFLOW_PORT")
	assert.Contains(t, err.Error(), "USSDFLOW_STORE")
	assert.ErrorIs(t, err, ErrKeyLength)
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("USSDFLOW_PORT=7070\n"), 0o644))
	t.Setenv("USSDFLOW_PORT", "")
	require.NoError(t, os.Unsetenv("USSDFLOW_PORT"))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	require.NoError(t, os.Unsetenv("USSDFLOW_PORT"))
}
