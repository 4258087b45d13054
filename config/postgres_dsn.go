package config

import (
	"fmt"
	"os"
)

const (
	envHost     = "EVENTSTORE_PG_HOST"
	envPort     = "EVENTSTORE_PG_PORT"
	envUser     = "EVENTSTORE_PG_USER"
	envPassword = "EVENTSTORE_PG_PASSWORD"
	envDatabase = "EVENTSTORE_PG_DATABASE"
	envSSLMode  = "EVENTSTORE_PG_SSLMODE"

	defaultHost     = "localhost"
	defaultPort     = "5432"
	defaultUser     = "eventstore"
	defaultPassword = "eventstore"
	defaultDatabase = "eventstore"
	defaultSSLMode  = "disable"
)

// PostgresDSN builds a postgres:// connection string from environment
// variables, falling back to localhost defaults suitable for a local
// docker-compose database.
func PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envOr(envUser, defaultUser),
		envOr(envPassword, defaultPassword),
		envOr(envHost, defaultHost),
		envOr(envPort, defaultPort),
		envOr(envDatabase, defaultDatabase),
		envOr(envSSLMode, defaultSSLMode),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
