// Package alphavantage provides a client for the Alpha Vantage daily time-series API.
// Unlike the Yahoo provider, every request requires an API key.
package alphavantage

import (
	"os"
	"time"
)

// Config holds configuration for the Alpha Vantage API client.
type Config struct {
	APIKey  string        // API key for authentication (required)
	BaseURL string        // Base URL for the API (e.g., "https://www.alphavantage.co")
	Timeout time.Duration // HTTP request timeout
}

// LoadConfig loads Alpha Vantage configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("ALPHA_VANTAGE_BASE_URL")
	if base == "" {
		base = "https://www.alphavantage.co"
	}
	return Config{
		APIKey:  os.Getenv("ALPHA_VANTAGE_KEY"),
		BaseURL: base,
		Timeout: 30 * time.Second,
	}
}
