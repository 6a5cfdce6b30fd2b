// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port         string
	Store        string
	RedisAddr    string
	RedisDB      int
	QueueName    string
	DatabaseURL  string
	LogLevel     logrus.Level
	ReapInterval time.Duration

	LobbyIdleTTL  time.Duration
	GameMaxAge    time.Duration
	FinishedGrace time.Duration

	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
}

// Load reads the configuration. Unset variables take their defaults; malformed ones
// are an error.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Store:       getEnv("STORE", StoreRedis),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		QueueName:   getEnv("HISTORIAN_QUEUE_NAME", ""),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if cfg.Store != StoreRedis && cfg.Store != StoreMemory {
		return cfg, fmt.Errorf("STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.Store)
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.HistorianBatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return cfg, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REAP_INTERVAL", time.Minute, &cfg.ReapInterval},
		{"LOBBY_IDLE_TTL", 2 * time.Hour, &cfg.LobbyIdleTTL},
		{"GAME_MAX_AGE", 4 * time.Hour, &cfg.GameMaxAge},
		{"FINISHED_GRACE", 10 * time.Minute, &cfg.FinishedGrace},
		{"HISTORIAN_FLUSH_INTERVAL", 500 * time.Millisecond, &cfg.HistorianFlushDelay},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.def); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
