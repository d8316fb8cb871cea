package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Load reads environment variables from .env if present. Missing files are
// not an error.
func Load() {
	_ = godotenv.Load()
}

// APIURL returns the backend base URL, preferring the SUBGEN_API_URL
// environment variable.
func APIURL() string {
	return GetEnvOrDefault("SUBGEN_API_URL", "http://localhost:5000/api")
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
