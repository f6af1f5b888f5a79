package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every externally supplied setting. Components receive the
// values they need at construction and never read the process environment
// themselves.
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// External platform (ODK Central)
	ODKBaseURL      string
	ODKEmail        string
	ODKPassword     string
	ODKProjectID    int
	ODKDataset      string
	ODKRequestDelay time.Duration

	// Batch processing
	SyncWorkers int

	// Operational web API
	WebPort    int
	SyncAPIKey string
}

// Load reads configuration from the environment, with .env as a fallback
// for local runs.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		DBHost:     GetEnv("PGHOST", "localhost"),
		DBPort:     GetEnv("PGPORT", "5432"),
		DBUser:     GetEnv("PGUSER", "posko"),
		DBPassword: GetEnv("PGPASSWORD", "posko"),
		DBName:     GetEnv("PGDATABASE", "posko"),

		ODKBaseURL:      GetEnv("ODK_BASE_URL", "http://localhost:8383"),
		ODKEmail:        GetEnv("ODK_EMAIL", ""),
		ODKPassword:     GetEnv("ODK_PASSWORD", ""),
		ODKProjectID:    GetEnvInt("ODK_PROJECT_ID", 1),
		ODKDataset:      GetEnv("ODK_ENTITY_DATASET", "posko_entities"),
		ODKRequestDelay: time.Duration(GetEnvInt("ODK_REQUEST_DELAY_MS", 500)) * time.Millisecond,

		SyncWorkers: GetEnvInt("SYNC_WORKERS", 4),

		WebPort:    GetEnvInt("WEB_PORT", 8080),
		SyncAPIKey: GetEnv("SYNC_API_KEY", ""),
	}
}

// GetEnv gets environment variable with default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
