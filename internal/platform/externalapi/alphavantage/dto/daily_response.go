// Package dto defines data transfer objects for the Alpha Vantage API responses.
package dto

// DailyResponse represents the JSON response from the TIME_SERIES_DAILY function.
// Alpha Vantage reports failures inside a 200 response body, either as
// "Error Message" (bad symbol, bad key) or "Note" (rate limit exceeded).
type DailyResponse struct {
	MetaData     MetaData              `json:"Meta Data"`
	TimeSeries   map[string]DailyPrice `json:"Time Series (Daily)"`
	ErrorMessage string                `json:"Error Message"`
	Note         string                `json:"Note"`
}

// MetaData represents the metadata block of a daily time-series response.
type MetaData struct {
	Information   string `json:"1. Information"`
	Symbol        string `json:"2. Symbol"`
	LastRefreshed string `json:"3. Last Refreshed"`
	OutputSize    string `json:"4. Output Size"`
	TimeZone      string `json:"5. Time Zone"`
}

// DailyPrice represents one day's OHLCV entry, keyed by date in the response map.
type DailyPrice struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
