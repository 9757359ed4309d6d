package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"stock_pipeline/internal/feature/prices/domain"
	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/externalapi/yahoo/dto"
)

// YahooMarket はYahoo Financeのchart APIから株価データを取得するMarketRepository実装です。
type YahooMarket struct {
	cfg    Config
	client *http.Client
}

// YahooMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*YahooMarket)(nil)

// NewYahooMarket は指定された設定とHTTPクライアントでYahooMarketの新しいインスタンスを生成します。
func NewYahooMarket(cfg Config, client *http.Client) *YahooMarket {
	return &YahooMarket{cfg: cfg, client: client}
}

// GetTimeSeries はYahoo Financeから時系列株価データを取得し、RawBarのスライスとして返します。
//
// start/end のどちらかが指定されている場合は period より優先し、epoch秒の
// period1/period2 パラメータで期間を指定します。どちらもゼロ値の場合は
// period（"1y" など）の相対指定を使います。
//
// 要求したウィンドウにデータが存在しない場合（上場廃止・無効なシンボルなど）は
// エラーではなく空の結果を返します。
func (y *YahooMarket) GetTimeSeries(ctx context.Context, ticker, period, interval string, start, end time.Time) ([]entity.RawBar, error) {
	q := url.Values{}
	q.Set("interval", interval)
	if !start.IsZero() || !end.IsZero() {
		// 明示的な日付指定は相対期間より優先される
		if end.IsZero() {
			end = time.Now()
		}
		q.Set("period1", fmt.Sprintf("%d", start.Unix()))
		q.Set("period2", fmt.Sprintf("%d", end.Unix()))
	} else {
		q.Set("range", period)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.cfg.BaseURL, url.PathEscape(ticker), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	res, err := y.client.Do(req)
	if err != nil {
		return nil, &domain.SourceError{Provider: "yahoo", Err: err}
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &domain.SourceError{
			Provider: "yahoo",
			Msg:      fmt.Sprintf("http %d: %s", res.StatusCode, string(body)),
		}
	}

	var chart dto.ChartResponse
	if err := json.NewDecoder(res.Body).Decode(&chart); err != nil {
		return nil, &domain.SourceError{Provider: "yahoo", Msg: "malformed chart payload", Err: err}
	}
	if chart.Chart.Error != nil {
		return nil, &domain.SourceError{Provider: "yahoo", Msg: chart.Chart.Error.Description}
	}

	// データなしはエラーではない
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	// ネストしたchartレスポンスを1行=1時点のフラットな形に変換し、
	// 要求した銘柄コードを各行に付与する
	bars := make([]entity.RawBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars = append(bars, entity.RawBar{
			Ticker: ticker,
			Date:   time.Unix(ts, 0).UTC(),
			Fields: map[string]float64{
				"Open":   deref(quote.Open, i),
				"High":   deref(quote.High, i),
				"Low":    deref(quote.Low, i),
				"Close":  deref(quote.Close, i),
				"Volume": deref(quote.Volume, i),
			},
		})
	}
	return bars, nil
}

// deref は並行配列のi番目を返します。範囲外またはnull（休場日など）は NaN になります。
func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}
