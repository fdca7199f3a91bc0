package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// ProfilesDir, when set, adds or overrides network profiles.
	ProfilesDir  string
	OutputFormat string

	InputDir      string
	OutputDir     string
	WatchSchedule string
	WatchNetworks []string
	Workers       int

	StationCacheSize int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// DatabaseURL enables the Postgres exporter when set.
	DatabaseURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workers, err := parseIntRange("WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntRange("STATION_CACHE_SIZE", 64, 1, 10000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		ProfilesDir:      os.Getenv("PROFILES_DIR"),
		OutputFormat:     strings.ToLower(sharedcfg.EnvOrDefault("OUTPUT_FORMAT", "csv")),
		InputDir:         sharedcfg.EnvOrDefault("INPUT_DIR", "data/in"),
		OutputDir:        sharedcfg.EnvOrDefault("OUTPUT_DIR", "data/out"),
		WatchSchedule:    sharedcfg.EnvOrDefault("WATCH_SCHEDULE", "*/15 * * * *"),
		WatchNetworks:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("WATCH_NETWORKS", "sinca,dmc")),
		Workers:          workers,
		StationCacheSize: cacheSize,
		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "airq-observations"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}

	switch cfg.OutputFormat {
	case "csv", "tsv":
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT %q: must be csv or tsv", cfg.OutputFormat)
	}
	if len(cfg.WatchNetworks) == 0 {
		return nil, errors.New("WATCH_NETWORKS is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}
