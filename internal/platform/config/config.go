package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Scoring weights and trust
// tables have their own defaults in their packages; this only wires the
// infrastructure around them.
type Server struct {
	Addr          string
	JWTSigningKey string

	// HistoryWindow is the trailing window for frequency and violation
	// statistics.
	HistoryWindow time.Duration

	// PostgresURL selects the durable history store when set; otherwise the
	// Redis store is used when RedisURL is set, else in-memory.
	PostgresURL string
	RedisURL    string

	// KafkaBrokers enables the secondary audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// PaillierBits is the Level-1 keypair size.
	PaillierBits int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("VEIL_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("VEIL_JWT_SIGNING_KEY"),
		HistoryWindow: 24 * time.Hour,
		PostgresURL:   os.Getenv("VEIL_POSTGRES_URL"),
		RedisURL:      os.Getenv("VEIL_REDIS_URL"),
		KafkaTopic:    os.Getenv("VEIL_KAFKA_TOPIC"),
		PaillierBits:  2048,
	}

	if cfg.JWTSigningKey == "" {
		// Development default; must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if window, err := time.ParseDuration(os.Getenv("VEIL_HISTORY_WINDOW")); err == nil && window > 0 {
		cfg.HistoryWindow = window
	}
	if brokers := os.Getenv("VEIL_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if bits, err := strconv.Atoi(os.Getenv("VEIL_PAILLIER_BITS")); err == nil && bits >= 1024 {
		cfg.PaillierBits = bits
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
