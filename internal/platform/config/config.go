package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr string

	// ProviderBaseURL is the content provider endpoint.
	ProviderBaseURL string
	FetchTimeout    time.Duration

	// Credentials is the static credential list, CREDENTIALS as
	// comma-separated id:token pairs.
	Credentials []string

	PostgresURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret  string
	APIKeyHash string

	PollInterval      time.Duration
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	RotationThreshold int
	MaxConcurrent     int64

	AcceptanceFloor    float64
	DuplicateThreshold float64
	AbsenceThreshold   int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:            envStr("COMMWATCH_ADDR", ":8080"),
		ProviderBaseURL: os.Getenv("PROVIDER_BASE_URL"),
		FetchTimeout:    envDuration("FETCH_TIMEOUT", 30*time.Second),
		Credentials:     envList("CREDENTIALS"),

		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envStr("KAFKA_TOPIC", "community-changes"),

		JWTSecret:  os.Getenv("JWT_SIGNING_KEY"),
		APIKeyHash: os.Getenv("API_KEY_HASH"),

		PollInterval:      envDuration("POLL_INTERVAL", 15*time.Minute),
		BaseBackoff:       envDuration("BASE_BACKOFF", 30*time.Second),
		MaxBackoff:        envDuration("MAX_BACKOFF", 30*time.Minute),
		RotationThreshold: envInt("ROTATION_THRESHOLD", 3),
		MaxConcurrent:     int64(envInt("MAX_CONCURRENT_CYCLES", 8)),

		AcceptanceFloor:    envFloat("ACCEPTANCE_FLOOR", 0),
		DuplicateThreshold: envFloat("DUPLICATE_THRESHOLD", 0),
		AbsenceThreshold:   envInt("ABSENCE_THRESHOLD", 2),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
