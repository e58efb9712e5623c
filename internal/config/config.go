// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"schedlink/internal/storage"
)

// Config holds all configuration for the commands.
type Config struct {
	// Carrier defaults used when generating files and messages.
	Carrier string
	Season  string

	Storage storage.Config

	// NATS ingest (ssm_listener only).
	NATSURL     string
	NATSSubject string

	// ClickHouse archive (optional; enabled when ArchiveEnabled).
	ArchiveEnabled bool
	ClickHouse     storage.ClickHouseConfig

	// MetricsAddr is the listen address for the /metrics endpoint.
	MetricsAddr string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present.
func Load() Config {
	godotenv.Load()

	st := storage.DefaultConfig()
	st.Backend = getEnv("STORAGE_BACKEND", st.Backend)
	st.SQLitePath = getEnv("SQLITE_PATH", st.SQLitePath)
	st.Postgres.Host = getEnv("POSTGRES_HOST", st.Postgres.Host)
	st.Postgres.Port = getEnvAsInt("POSTGRES_PORT", st.Postgres.Port)
	st.Postgres.Database = getEnv("POSTGRES_DATABASE", st.Postgres.Database)
	st.Postgres.User = getEnv("POSTGRES_USER", st.Postgres.User)
	st.Postgres.Password = getEnv("POSTGRES_PASSWORD", st.Postgres.Password)

	return Config{
		Carrier: getEnv("CARRIER_CODE", "HZ"),
		Season:  getEnv("SEASON_CODE", "S25"),
		Storage: st,

		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: getEnv("NATS_SUBJECT", "schedlink.messages.inbound"),

		ArchiveEnabled: getEnvAsBool("ARCHIVE_ENABLED", false),
		ClickHouse: storage.ClickHouseConfig{
			Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
			Port:     getEnvAsInt("CLICKHOUSE_PORT", 9000),
			Database: getEnv("CLICKHOUSE_DATABASE", "schedlink"),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},

		MetricsAddr: getEnv("METRICS_ADDR", ":9102"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
