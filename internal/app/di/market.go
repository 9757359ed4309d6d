// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/externalapi/alphavantage"
	"stock_pipeline/internal/platform/externalapi/yahoo"
	infrahttp "stock_pipeline/internal/platform/http"
)

// NewMarket creates a fully configured market data source for the given
// provider name. Yahoo is the keyless default; Alpha Vantage requires
// ALPHA_VANTAGE_KEY to be set.
func NewMarket(provider string) (usecase.MarketRepository, error) {
	switch provider {
	case "yahoo", "":
		cfg := yahoo.LoadConfig()
		httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
		return yahoo.NewYahooMarket(cfg, httpClient), nil
	case "alphavantage":
		cfg := alphavantage.LoadConfig()
		httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
		return alphavantage.NewAlphaVantageMarket(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: yahoo, alphavantage)", provider)
	}
}
