package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string
	StorageBucket   string
	NatsURL         string

	// Offer lifecycle
	OfferDefaultTTL   time.Duration
	OfferSweepEvery   time.Duration

	// Transaction lifecycle
	AutoCompleteAfter time.Duration
	AutoCompleteEvery time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		NatsURL:         getEnv("NATS_URL", ""),

		OfferDefaultTTL: getEnvAsDuration("OFFER_DEFAULT_TTL", 72*time.Hour),
		OfferSweepEvery: getEnvAsDuration("OFFER_SWEEP_INTERVAL", time.Minute),

		AutoCompleteAfter: getEnvAsDuration("AUTO_COMPLETE_AFTER", 72*time.Hour),
		AutoCompleteEvery: getEnvAsDuration("AUTO_COMPLETE_INTERVAL", 10*time.Minute),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
