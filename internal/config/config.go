package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port               string
	Storage            string
	DatabaseURL        string
	CORSAllowedOrigins []string
	EmbeddedWorker     bool
	// Upstream
	TokenURL        string
	PricesURL       string
	ClientID        string
	ClientSecret    string
	Audience        string
	UpstreamTimeout time.Duration
	// Token cache
	TokenStore        string
	TokenSafetyMargin time.Duration
	TokenDefaultTTL   time.Duration
	// History
	HistoryRetention  time.Duration
	HistoryMaxEntries int
	// Worker
	PollInterval time.Duration
	PollRetryMax time.Duration
	// Instruments
	InstrumentsFile string
	InstrumentIDs   string
	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, ""), def)) * time.Millisecond
}

func boolDef(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	storage := getEnv("STORAGE", "memory")
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            storage,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		// The in-memory store is only filled by a poller living in the same process.
		EmbeddedWorker:    boolDef(getEnv("EMBEDDED_WORKER", ""), storage == "memory"),
		TokenURL:          getEnv("FOLIO_TOKEN_URL", "https://folio-api.artis.works/oauth/token"),
		PricesURL:         getEnv("FOLIO_PRICES_URL", "https://folio-api.artis.works/prices/v2/liveprices"),
		ClientID:          getEnv("FOLIO_CLIENT_ID", ""),
		ClientSecret:      getEnv("FOLIO_CLIENT_SECRET", ""),
		Audience:          getEnv("FOLIO_AUDIENCE", "folio-api"),
		UpstreamTimeout:   msDef("UPSTREAM_TIMEOUT_MS", 10000),
		TokenStore:        getEnv("TOKEN_STORE", "memory"),
		TokenSafetyMargin: msDef("TOKEN_SAFETY_MARGIN_MS", 60000),
		TokenDefaultTTL:   msDef("TOKEN_DEFAULT_TTL_MS", 3600000),
		HistoryRetention:  msDef("HISTORY_RETENTION_MS", 3600000),
		HistoryMaxEntries: atoiDef(getEnv("HISTORY_MAX_ENTRIES", "0"), 0),
		PollInterval:      msDef("POLL_INTERVAL_MS", 60000),
		PollRetryMax:      msDef("POLL_RETRY_MAX_MS", 20000),
		InstrumentsFile:   getEnv("INSTRUMENTS_FILE", ""),
		InstrumentIDs:     getEnv("INSTRUMENT_IDS", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:          msDef("IDEMPOTENCY_TTL_MS", 86400000),
	}
}

// Validate rejects values Load accepts syntactically but the service cannot
// run with. Every problem is reported.
func (c Config) Validate() error {
	var errs []error
	if c.HistoryRetention <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_RETENTION_MS must be positive, got %s", c.HistoryRetention))
	}
	if c.HistoryMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_MAX_ENTRIES must not be negative, got %d", c.HistoryMaxEntries))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL_MS must be positive, got %s", c.PollInterval))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT_MS must be positive, got %s", c.UpstreamTimeout))
	}
	if c.TokenSafetyMargin < 0 {
		errs = append(errs, fmt.Errorf("TOKEN_SAFETY_MARGIN_MS must not be negative, got %s", c.TokenSafetyMargin))
	}
	return errors.Join(errs...)
}
