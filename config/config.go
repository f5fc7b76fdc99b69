// Package config loads the worker's environment-derived configuration.
package config

import (
	"log"
	"os"
	"strings"
)

// Config holds every environment-derived setting the worker needs at
// startup. Runtime-reconfigurable values (log_freq) live in the general
// config row instead and are not part of this struct.
type Config struct {
	DatabaseURL         string
	RedisURL            string // optional; empty disables the cache
	KafkaBrokers        []string
	KafkaConditionTopic string
}

// Load reads the process environment into a Config, warning about any
// missing required setting rather than failing outright; DATABASE_URL is
// the one value the worker cannot run without, but that failure surfaces
// naturally the first time the store tries to connect.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaConditionTopic: getEnv("KAFKA_TOPIC_CONDITIONS", "machine-conditions"),
	}

	if cfg.DatabaseURL == "" {
		log.Printf("WARNING: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Printf("INFO: REDIS_URL not set, dwell cache runs process-local only")
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Printf("INFO: KAFKA_BROKERS not set, condition events will not be published")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultLogFreqMinutes is used when the general config row has no value.
const DefaultLogFreqMinutes = 15

// LogFreqMinutesOrDefault returns n if positive, else DefaultLogFreqMinutes.
func LogFreqMinutesOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return DefaultLogFreqMinutes
}

// IsDevelopment reports whether ENVIRONMENT/ENV indicates development mode.
func IsDevelopment() bool {
	env := strings.ToLower(getEnv("ENVIRONMENT", getEnv("ENV", "development")))
	return env == "development" || env == "dev"
}

// IsProduction reports whether ENVIRONMENT/ENV indicates production mode.
func IsProduction() bool {
	env := strings.ToLower(getEnv("ENVIRONMENT", getEnv("ENV", "development")))
	return env == "production" || env == "prod"
}
