package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIKey pairs a credential with its per-minute request budget.
type APIKey struct {
	Key string
	RPM int
}

// StoreConfig holds PostgreSQL connection settings.
type StoreConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// URL renders the settings as a pgx connection string.
func (s StoreConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(s.User), url.QueryEscape(s.Password), s.Host, s.Port, s.Name)
}

// BrokerConfig holds RabbitMQ connection settings.
type BrokerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Exchange string
}

// URL renders the settings as an AMQP URI.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		url.QueryEscape(b.User), url.QueryEscape(b.Password), b.Host, b.Port)
}

// Config holds runtime configuration for the collector services.
type Config struct {
	Store  StoreConfig
	Broker BrokerConfig

	APIKeys   []APIKey
	RankedKey *APIKey

	Platform          string
	TelemetryRoot     string
	DiscoveryInterval time.Duration

	// Optional Redis cache used by discovery to dedup known match ids.
	RedisURL string

	MetricsPort int
	WorkerCount int

	BackfillWindowDays  int
	BackfillMaxRetries  int
	AggregationInterval time.Duration
}

const (
	defaultAPIKeyRPM = 10
	defaultRankedRPM = 100
)

// Load builds a Config from environment variables. Missing required settings
// or a malformed credential list are configuration errors.
func Load() (*Config, error) {
	cfg := &Config{
		Platform:            getEnv("PLATFORM", "steam"),
		TelemetryRoot:       getEnv("TELEMETRY_ROOT", "/data/telemetry"),
		DiscoveryInterval:   time.Duration(getEnvInt("DISCOVERY_INTERVAL_SECONDS", 600)) * time.Second,
		RedisURL:            os.Getenv("REDIS_URL"),
		MetricsPort:         getEnvInt("METRICS_PORT", 9090),
		WorkerCount:         getEnvInt("WORKER_COUNT", 0),
		BackfillWindowDays:  getEnvInt("BACKFILL_WINDOW_DAYS", 180),
		BackfillMaxRetries:  getEnvInt("BACKFILL_MAX_RETRIES", 3),
		AggregationInterval: time.Duration(getEnvInt("AGGREGATION_INTERVAL_SECONDS", 60)) * time.Second,
	}

	var err error
	if cfg.Store, err = loadStore(); err != nil {
		return nil, err
	}
	if cfg.Broker, err = loadBroker(); err != nil {
		return nil, err
	}
	if cfg.APIKeys, err = loadAPIKeys(); err != nil {
		return nil, err
	}
	if ranked := os.Getenv("RANKED_API_KEY"); ranked != "" {
		cfg.RankedKey = &APIKey{Key: ranked, RPM: getEnvInt("RANKED_API_KEY_RPM", defaultRankedRPM)}
	}

	return cfg, nil
}

func loadStore() (StoreConfig, error) {
	s := StoreConfig{Port: getEnvInt("DB_PORT", 5432)}
	var err error
	if s.Host, err = getEnvRequired("DB_HOST"); err != nil {
		return s, err
	}
	if s.Name, err = getEnvRequired("DB_NAME"); err != nil {
		return s, err
	}
	if s.User, err = getEnvRequired("DB_USER"); err != nil {
		return s, err
	}
	if s.Password, err = getEnvRequired("DB_PASSWORD"); err != nil {
		return s, err
	}
	return s, nil
}

func loadBroker() (BrokerConfig, error) {
	b := BrokerConfig{
		Port:     getEnvInt("BROKER_PORT", 5672),
		Exchange: getEnv("BROKER_EXCHANGE", "pewstats"),
	}
	var err error
	if b.Host, err = getEnvRequired("BROKER_HOST"); err != nil {
		return b, err
	}
	if b.User, err = getEnvRequired("BROKER_USER"); err != nil {
		return b, err
	}
	if b.Password, err = getEnvRequired("BROKER_PASSWORD"); err != nil {
		return b, err
	}
	return b, nil
}

// loadAPIKeys parses API_KEYS (comma-separated) and the parallel
// API_KEY_RPM_LIMITS list. A missing limits list applies the default budget
// to every key; a limits list of the wrong length is an error.
func loadAPIKeys() ([]APIKey, error) {
	raw, err := getEnvRequired("API_KEYS")
	if err != nil {
		return nil, err
	}
	var keys []APIKey
	for _, k := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			keys = append(keys, APIKey{Key: trimmed, RPM: defaultAPIKeyRPM})
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("API_KEYS contains no usable keys")
	}

	if rawLimits := os.Getenv("API_KEY_RPM_LIMITS"); rawLimits != "" {
		limits := strings.Split(rawLimits, ",")
		if len(limits) != len(keys) {
			return nil, fmt.Errorf("API_KEY_RPM_LIMITS has %d entries for %d keys", len(limits), len(keys))
		}
		for i, l := range limits {
			rpm, err := strconv.Atoi(strings.TrimSpace(l))
			if err != nil || rpm <= 0 {
				return nil, fmt.Errorf("API_KEY_RPM_LIMITS entry %d is not a positive integer: %q", i, l)
			}
			keys[i].RPM = rpm
		}
	}
	return keys, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
