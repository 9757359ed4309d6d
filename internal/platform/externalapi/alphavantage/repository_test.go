package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock_pipeline/internal/feature/prices/domain"
)

const dailyPayload = `{
	"Meta Data": {
		"1. Information": "Daily Prices (open, high, low, close) and Volumes",
		"2. Symbol": "AAPL",
		"3. Last Refreshed": "2023-01-04",
		"4. Output Size": "Compact",
		"5. Time Zone": "US/Eastern"
	},
	"Time Series (Daily)": {
		"2023-01-04": {"1. open": "152.00", "2. high": "154.00", "3. low": "151.00", "4. close": "153.00", "5. volume": "1200000"},
		"2023-01-03": {"1. open": "150.00", "2. high": "152.50", "3. low": "149.00", "4. close": "152.00", "5. volume": "1000000"}
	}
}`

func TestAlphaVantageMarket_GetTimeSeries_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("function") != "TIME_SERIES_DAILY" {
			t.Errorf("expected TIME_SERIES_DAILY, got %s", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("expected apikey test-key, got %s", r.URL.Query().Get("apikey"))
		}
		_, _ = w.Write([]byte(dailyPayload))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	bars, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	// Rows come back sorted ascending regardless of map order
	if !bars[0].Date.Before(bars[1].Date) {
		t.Errorf("bars not sorted ascending: %v then %v", bars[0].Date, bars[1].Date)
	}
	if bars[0].Ticker != "AAPL" {
		t.Errorf("ticker not tagged: got %q", bars[0].Ticker)
	}
	if got := bars[0].Field("close"); got != 152.0 {
		t.Errorf("expected close 152.0, got %v", got)
	}
	// Zoneless dates are labeled UTC without shifting the wall clock
	want := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	if !bars[0].Date.Equal(want) {
		t.Errorf("expected date %v, got %v", want, bars[0].Date)
	}
}

func TestAlphaVantageMarket_GetTimeSeries_MissingKey(t *testing.T) {
	t.Parallel()

	market := NewAlphaVantageMarket(Config{APIKey: "", BaseURL: "https://example.com"}, &http.Client{})

	_, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", time.Time{}, time.Time{})
	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestAlphaVantageMarket_GetTimeSeries_ErrorMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message": "Invalid API call. Please retry or visit the documentation for TIME_SERIES_DAILY."}`))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	_, err := market.GetTimeSeries(context.Background(), "BOGUS", "1mo", "1d", time.Time{}, time.Time{})
	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if srcErr.Msg == "" {
		t.Error("raw provider diagnostic should be preserved")
	}
}

func TestAlphaVantageMarket_GetTimeSeries_RateLimitNote(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	_, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", time.Time{}, time.Time{})
	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestAlphaVantageMarket_GetTimeSeries_EmptySeries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Meta Data": {"2. Symbol": "AAPL"}, "Time Series (Daily)": {}}`))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	bars, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("empty series is not an error, got: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected no bars, got %d", len(bars))
	}
}

func TestAlphaVantageMarket_GetTimeSeries_DateRangeFilter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("outputsize") != "full" {
			t.Errorf("explicit dates should request outputsize=full, got %s", r.URL.Query().Get("outputsize"))
		}
		_, _ = w.Write([]byte(dailyPayload))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	start := time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)
	bars, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", start, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar after filtering, got %d", len(bars))
	}
	if bars[0].Field("close") != 153.0 {
		t.Errorf("wrong row survived the filter: close=%v", bars[0].Field("close"))
	}
}

func TestAlphaVantageMarket_GetTimeSeries_SkipsBadRows(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"Time Series (Daily)": {
				"2023-01-03": {"1. open": "150.00", "2. high": "152.50", "3. low": "149.00", "4. close": "152.00", "5. volume": "1000000"},
				"2023-01-04": {"1. open": "oops", "2. high": "154.00", "3. low": "151.00", "4. close": "153.00", "5. volume": "1200000"}
			}
		}`))
	}))
	defer server.Close()

	market := NewAlphaVantageMarket(Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	bars, err := market.GetTimeSeries(context.Background(), "AAPL", "1mo", "1d", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected the bad row to be skipped, got %d bars", len(bars))
	}
}
