// Package yahoo provides a client for the Yahoo Finance chart API.
// The API requires no key, which makes it the default provider for the pipeline.
package yahoo

import (
	"os"
	"time"
)

// Config holds configuration for the Yahoo Finance chart API client.
type Config struct {
	BaseURL string        // Base URL for the API (e.g., "https://query1.finance.yahoo.com")
	Timeout time.Duration // HTTP request timeout
}

// LoadConfig loads Yahoo Finance configuration from environment variables.
// YAHOO_BASE_URL is optional and defaults to the public query endpoint.
func LoadConfig() Config {
	base := os.Getenv("YAHOO_BASE_URL")
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	return Config{
		BaseURL: base,
		Timeout: 30 * time.Second,
	}
}
