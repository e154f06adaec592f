package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName  = "anime-search-bot"
	maxPageLimit = 25 // потолок limit у Jikan
)

var (
	ErrMissingToken     = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidTimeout   = errors.New("JIKAN_TIMEOUT_SEC must be > 0")
	ErrInvalidPageLimit = errors.New("JIKAN_PAGE_LIMIT must be in 1..25")
	ErrInvalidTTL       = errors.New("CACHE_TTL_SEC must be > 0")
	ErrInvalidDebounce  = errors.New("DEBOUNCE_MS must be > 0")
)

type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Jikan     JikanConfig
	Cache     CacheConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	Log       LogConfig
}

type TelegramConfig struct {
	Token string
}

// DatabaseConfig - пустой URL значит хранить сессии в памяти
type DatabaseConfig struct {
	URL string
}

type JikanConfig struct {
	BaseURL           string
	Timeout           time.Duration
	PageLimit         int
	RequestsPerSecond float64
}

type CacheConfig struct {
	TTL      time.Duration
	HitDelay time.Duration
}

type SessionConfig struct {
	Debounce    time.Duration
	IdleTimeout time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type MetricsConfig struct {
	Addr string
}

type TracingConfig struct {
	Endpoint string
}

type LogConfig struct {
	Level   string
	Service string
}

func Load() (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Jikan: JikanConfig{
			BaseURL:           getEnvOrDefault("JIKAN_BASE_URL", "https://api.jikan.moe/v4"),
			Timeout:           time.Duration(getEnvIntOrDefault("JIKAN_TIMEOUT_SEC", 10)) * time.Second,
			PageLimit:         getEnvIntOrDefault("JIKAN_PAGE_LIMIT", 20),
			RequestsPerSecond: float64(getEnvIntOrDefault("JIKAN_RPS", 3)),
		},
		Cache: CacheConfig{
			TTL:      time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 300)) * time.Second,
			HitDelay: time.Duration(getEnvIntOrDefault("CACHE_HIT_DELAY_MS", 300)) * time.Millisecond,
		},
		Session: SessionConfig{
			Debounce:    time.Duration(getEnvIntOrDefault("DEBOUNCE_MS", 500)) * time.Millisecond,
			IdleTimeout: time.Duration(getEnvIntOrDefault("SESSION_IDLE_MIN", 30)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ":9090"),
		},
		Tracing: TracingConfig{
			Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		Log: LogConfig{
			Level:   getEnvOrDefault("LOG_LEVEL", "info"),
			Service: ServiceName,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.Jikan.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Jikan.PageLimit < 1 || c.Jikan.PageLimit > maxPageLimit {
		return ErrInvalidPageLimit
	}
	if c.Cache.TTL <= 0 {
		return ErrInvalidTTL
	}
	if c.Session.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
