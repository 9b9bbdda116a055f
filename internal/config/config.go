package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store modes select where the analytics façade reads its snapshots from.
const (
	StoreModeRegistry = "registry"
	StoreModeKafka    = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// StoreMode selects the external-store adapter: "registry" (HTTP) or
	// "kafka" (streaming ingest into the in-memory snapshot store).
	StoreMode string

	// Registry adapter configuration.
	RegistryBaseURL  string
	RegistryToken    string
	RegistryTimeout  time.Duration
	RegistryCacheTTL time.Duration

	// Kafka ingest configuration.
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
	FacilitiesPath     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	registryTimeout, err := parseDurationEnv("REGISTRY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	registryCacheTTL, err := parseDurationEnv("REGISTRY_CACHE_TTL", "30s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDurationEnv("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreMode: envOrDefault("STORE_MODE", StoreModeRegistry),

		RegistryBaseURL:  os.Getenv("REGISTRY_BASE_URL"),
		RegistryToken:    os.Getenv("REGISTRY_TOKEN"),
		RegistryTimeout:  registryTimeout,
		RegistryCacheTTL: registryCacheTTL,

		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         envOrDefault("KAFKA_TOPIC", "incident-reports"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "incident-analytics"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		FacilitiesPath:     os.Getenv("FACILITIES_PATH"),
	}

	switch cfg.StoreMode {
	case StoreModeRegistry:
		if cfg.RegistryBaseURL == "" {
			return nil, errors.New("REGISTRY_BASE_URL is required in registry store mode")
		}
	case StoreModeKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required in kafka store mode")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required in kafka store mode")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_MODE %q (expected %q or %q)", cfg.StoreMode, StoreModeRegistry, StoreModeKafka)
	}

	return cfg, nil
}

// envOrDefault returns the environment variable value, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	s := envOrDefault("BATCH_SIZE", "50")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("invalid BATCH_SIZE (expected 1-1000)")
	}
	return n, nil
}
