package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all server configuration, read from environment variables
// with development defaults.
type Config struct {
	Addr           string // Listen address
	DatabasePath   string // SQLite path
	GeoAPIURL      string // Geolocation API base URL
	TrackRateLimit int    // Track requests per IP per minute
}

// loadConfig loads a .env file if one exists, then reads the environment.
func loadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           envString("TRACKER_ADDR", ":3000"),
		DatabasePath:   envString("TRACKER_DB_PATH", "data/project_tracker.db"),
		GeoAPIURL:      envString("TRACKER_GEO_API_URL", "http://ip-api.com"),
		TrackRateLimit: envInt("TRACKER_TRACK_RATE_LIMIT", 60),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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
