package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"stock_pipeline/internal/feature/prices/domain"
	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/externalapi/alphavantage/dto"
)

// AlphaVantageMarket はAlpha Vantage APIから株価データを取得するMarketRepository実装です。
type AlphaVantageMarket struct {
	cfg    Config
	client *http.Client
}

// AlphaVantageMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*AlphaVantageMarket)(nil)

// NewAlphaVantageMarket は指定された設定とHTTPクライアントでAlphaVantageMarketの新しいインスタンスを生成します。
func NewAlphaVantageMarket(cfg Config, client *http.Client) *AlphaVantageMarket {
	return &AlphaVantageMarket{cfg: cfg, client: client}
}

// GetTimeSeries はAlpha Vantageから日足の時系列株価データを取得し、RawBarのスライスとして返します。
//
// Alpha Vantageは日足のみ提供するため interval は無視されます。また期間指定APIを
// 持たないため、period が長い場合は outputsize=full で取得し、start/end が指定されて
// いる場合は取得後にクライアント側で日付範囲を絞り込みます。
//
// 日付はタイムゾーン情報のない文字列で返されるため、値を変えずにUTCとしてラベル付けします。
func (a *AlphaVantageMarket) GetTimeSeries(ctx context.Context, ticker, period, interval string, start, end time.Time) ([]entity.RawBar, error) {
	if a.cfg.APIKey == "" {
		return nil, &domain.SourceError{Provider: "alphavantage", Msg: "API key not configured (set ALPHA_VANTAGE_KEY)"}
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", ticker)
	q.Set("outputsize", outputSize(period, start))
	q.Set("datatype", "json")
	q.Set("apikey", a.cfg.APIKey)

	u := fmt.Sprintf("%s/query?%s", a.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.SourceError{Provider: "alphavantage", Err: err}
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, &domain.SourceError{
			Provider: "alphavantage",
			Msg:      fmt.Sprintf("http %d", res.StatusCode),
		}
	}

	var body dto.DailyResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &domain.SourceError{Provider: "alphavantage", Msg: "malformed payload", Err: err}
	}
	// エラーとレートリミット通知は200のボディで返ってくる
	if body.ErrorMessage != "" {
		return nil, &domain.SourceError{Provider: "alphavantage", Msg: body.ErrorMessage}
	}
	if body.Note != "" {
		return nil, &domain.SourceError{Provider: "alphavantage", Msg: body.Note}
	}

	// データなしはエラーではない
	if len(body.TimeSeries) == 0 {
		return nil, nil
	}

	bars := make([]entity.RawBar, 0, len(body.TimeSeries))
	for dateStr, v := range body.TimeSeries {
		// タイムゾーンなしの日付をUTCラベルでパースする（値のシフトなし）
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			slog.Warn("skipping row with unparsable date", "provider", "alphavantage", "date", dateStr)
			continue
		}
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}

		fields, err := parseFields(v)
		if err != nil {
			slog.Warn("skipping row with unparsable values", "provider", "alphavantage", "date", dateStr, "error", err)
			continue
		}
		bars = append(bars, entity.RawBar{Ticker: ticker, Date: d, Fields: fields})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// outputSize は相対期間の長さに応じてAPIのoutputsizeパラメータを決めます。
// compact は直近100営業日のみ返すため、それを超えるウィンドウは full で取得します。
func outputSize(period string, start time.Time) string {
	if !start.IsZero() {
		return "full"
	}
	switch period {
	case "1d", "5d", "1mo", "3mo":
		return "compact"
	default:
		return "full"
	}
}

func parseFields(v dto.DailyPrice) (map[string]float64, error) {
	o, err := strconv.ParseFloat(v.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parse open %q: %w", v.Open, err)
	}
	h, err := strconv.ParseFloat(v.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parse high %q: %w", v.High, err)
	}
	l, err := strconv.ParseFloat(v.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parse low %q: %w", v.Low, err)
	}
	c, err := strconv.ParseFloat(v.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
	}
	vol, err := strconv.ParseFloat(v.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
	}
	return map[string]float64{
		"open":   o,
		"high":   h,
		"low":    l,
		"close":  c,
		"volume": vol,
	}, nil
}
