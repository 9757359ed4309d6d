package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// ErrNoData は指定された銘柄・期間に該当する行が存在しない場合のエラーです。
var ErrNoData = errors.New("no rows for ticker in range")

// defaultWindowStart はダッシュボードのデフォルト表示期間の開始日です。
var defaultWindowStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// PriceReadRepository は永続化済み株価データの読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PriceReadRepository interface {
	// ListTickers は保存済みの銘柄コード一覧を昇順で返します。
	ListTickers(ctx context.Context) ([]string, error)
	// FindRange は指定された銘柄群・日付範囲の行を銘柄・日付順で返します。
	FindRange(ctx context.Context, tickers []string, from, to time.Time) ([]entity.ProcessedBar, error)
}

// Summary は1銘柄の表示用サマリーです。ダッシュボードのKPI表示に使います。
type Summary struct {
	Ticker      string
	LatestClose float64
	PctChange   float64 // 期間先頭の終値に対する最新終値の変化率（%）
	LatestVol20 float64 // NaN の場合あり（期間が短くボラティリティ未定義のとき）
	Rows        int
}

// queryUsecase は永続化済みデータの照会ユースケースを定義します。
type queryUsecase struct {
	prices PriceReadRepository
}

// NewQueryUsecase はqueryUsecaseの新しいインスタンスを生成します。
func NewQueryUsecase(prices PriceReadRepository) *queryUsecase {
	return &queryUsecase{prices: prices}
}

// ListTickers は保存済みの銘柄コード一覧を返します。
func (qu *queryUsecase) ListTickers(ctx context.Context) ([]string, error) {
	return qu.prices.ListTickers(ctx)
}

// GetSeries は指定された銘柄群・日付範囲の時系列を返します。
// from/to がゼロ値の場合はデフォルトの表示期間（2020-01-01〜現在）を使います。
func (qu *queryUsecase) GetSeries(ctx context.Context, tickers []string, from, to time.Time) ([]entity.ProcessedBar, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	norm := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			norm = append(norm, t)
		}
	}
	if len(norm) == 0 {
		return nil, nil
	}

	if from.IsZero() {
		from = defaultWindowStart
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	return qu.prices.FindRange(ctx, norm, from, to)
}

// GetSummary は1銘柄の期間サマリー（最新終値・変化率・最新ボラティリティ）を返します。
// 該当する行が無い場合は ErrNoData を返します。
func (qu *queryUsecase) GetSummary(ctx context.Context, ticker string, from, to time.Time) (*Summary, error) {
	rows, err := qu.GetSeries(ctx, []string{ticker}, from, to)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	first := rows[0]
	last := rows[len(rows)-1]

	pct := math.NaN()
	if first.Close != 0 {
		pct = (last.Close - first.Close) / first.Close * 100
	}

	return &Summary{
		Ticker:      last.Ticker,
		LatestClose: last.Close,
		PctChange:   pct,
		LatestVol20: last.Vol20,
		Rows:        len(rows),
	}, nil
}
