// Package config reads builder settings from the environment, optionally
// seeded from .env files.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/joho/godotenv"
)

// Prefix is the namespace of every variable read by Load.
const Prefix = "USSDFLOW_"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the builder's runtime configuration.
type Config struct {
	Port        int
	Store       string
	DSN         string
	LogLevel    slog.Level
	LogJSON     bool
	LogFile     string
	Strict      bool
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string

	EncryptionKey  []byte
	FallbackKeys   [][]byte
	RedactSecrets  bool
	RedactPatterns []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:        8080,
		Store:       StoreMemory,
		LogLevel:    slog.LevelInfo,
		RateLimit:   20,
		RateBurst:   40,
		CORSOrigins: []string{"*"},
	}
}

// Load reads .env files (missing ones are skipped) and then the process
// environment. Variables already set in the environment win over files.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which reports a variable's value
// and whether it is set.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(name string) (string, bool) {
		v, ok := lookup(Prefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%sPORT: invalid port %q", Prefix, v))
		} else {
			cfg.Port = port
		}
	}
	if v, ok := get("STORE"); ok {
		switch v = strings.ToLower(v); v {
		case StoreMemory, StoreFile, StoreRedis, StoreSQLite, StorePostgres:
			cfg.Store = v
		default:
			errs = append(errs, fmt.Errorf("%sSTORE: unknown store %q", Prefix, v))
		}
	}
	if v, ok := get("DSN"); ok {
		cfg.DSN = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		level, err := logging.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err))
		}
		cfg.LogLevel = level
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogJSON = strings.EqualFold(v, "json")
	}
	if v, ok := get("LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := get("STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTRICT: %w", Prefix, err))
		}
		cfg.Strict = b
	}
	if v, ok := get("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT: invalid rate %q", Prefix, v))
		} else {
			cfg.RateLimit = f
		}
	}
	if v, ok := get("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%sRATE_BURST: invalid burst %q", Prefix, v))
		} else {
			cfg.RateBurst = n
		}
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := get("ENCRYPTION_KEY"); ok {
		key, err := ParseKey(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sENCRYPTION_KEY: %w", Prefix, err))
		}
		cfg.EncryptionKey = key
	}
	if v, ok := get("ENCRYPTION_FALLBACK_KEYS"); ok {
		for _, s := range splitList(v) {
			key, err := ParseKey(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%sENCRYPTION_FALLBACK_KEYS: %w", Prefix, err))
				continue
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	if v, ok := get("REDACT_SECRETS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREDACT_SECRETS: %w", Prefix, err))
		}
		cfg.RedactSecrets = b
	}
	if v, ok := get("REDACT_PATTERNS"); ok {
		cfg.RedactPatterns = splitList(v)
	}
	return cfg, errors.Join(errs...)
}

// ErrKeyLength is returned for keys that do not decode to 32 bytes.
var ErrKeyLength = errors.New("key must decode to 32 bytes")

// ParseKey decodes a 32-byte key given as 64 hex digits or standard base64.
func ParseKey(s string) ([]byte, error) {
	if key, err := hex.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != 32 {
		return nil, ErrKeyLength
	}
	return key, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
