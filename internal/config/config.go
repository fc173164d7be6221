package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	Secret         string
	DatabaseDSN    string
	HTTPPort       string
	AllowedOrigins string
}

// Load reads configuration from environment variables with reasonable defaults.
// DATABASE_DSN accepts either a postgres:// URL or a SQLite file path; the
// default is an embedded SQLite database next to the binary.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "pharmastock.db"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:         secret,
		DatabaseDSN:    dsn,
		HTTPPort:       port,
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
	}
}
