package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	StoragePath      string
	WorkerCount      int
	JobLease         time.Duration
	JobMaxAttempts   int
	JobPollInterval  time.Duration
	MaxPhotoSizeMB   int
	SessionTTL       time.Duration
	DefaultLocale    string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// MaxPhotoSizeBytes returns the upload limit in bytes.
func (c *Config) MaxPhotoSizeBytes() int64 {
	return int64(c.MaxPhotoSizeMB) * 1024 * 1024
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 2),
		JobLease:         time.Second * time.Duration(getEnvInt("JOB_LEASE_SECONDS", 120)),
		JobMaxAttempts:   getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobPollInterval:  time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 5)),
		MaxPhotoSizeMB:   getEnvInt("MAX_PHOTO_SIZE_MB", 20),
		SessionTTL:       time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.JobMaxAttempts < 1 {
		cfg.JobMaxAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
