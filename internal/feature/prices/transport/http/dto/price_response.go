package dto

import (
	"math"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// PriceResponse は処理済み株価1行のレスポンスDTOです。
// 未定義の派生メトリクスはnullとして返します。
type PriceResponse struct {
	Ticker      string   `json:"ticker"`       // 銘柄コード
	Date        string   `json:"date"`         // 日付（UTC）
	Open        *float64 `json:"open"`         // 始値
	High        *float64 `json:"high"`         // 高値
	Low         *float64 `json:"low"`          // 安値
	Close       float64  `json:"close"`        // 終値
	Volume      int64    `json:"volume"`       // 出来高
	DailyReturn *float64 `json:"daily_return"` // 日次リターン
	MA20        *float64 `json:"ma20"`         // 20日移動平均
	Vol20       *float64 `json:"vol20"`        // 20日ボラティリティ
}

// SummaryResponse は1銘柄の期間サマリーのレスポンスDTOです。
type SummaryResponse struct {
	Ticker      string   `json:"ticker"`
	LatestClose float64  `json:"latest_close"`
	PctChange   *float64 `json:"pct_change"`
	LatestVol20 *float64 `json:"latest_vol20"`
	Rows        int      `json:"rows"`
}

// TickersResponse は保存済み銘柄一覧のレスポンスDTOです。
type TickersResponse struct {
	Tickers []string `json:"tickers"`
}

// ErrorResponse はエラーレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromBar はエンティティをレスポンスDTOに変換します。
func FromBar(b entity.ProcessedBar) PriceResponse {
	return PriceResponse{
		Ticker:      b.Ticker,
		Date:        b.Date.UTC().Format("2006-01-02"),
		Open:        omitNaN(b.Open),
		High:        omitNaN(b.High),
		Low:         omitNaN(b.Low),
		Close:       b.Close,
		Volume:      b.Volume,
		DailyReturn: omitNaN(b.DailyReturn),
		MA20:        omitNaN(b.MA20),
		Vol20:       omitNaN(b.Vol20),
	}
}

// FromSummary はサマリーをレスポンスDTOに変換します。
func FromSummary(s *usecase.Summary) SummaryResponse {
	return SummaryResponse{
		Ticker:      s.Ticker,
		LatestClose: s.LatestClose,
		PctChange:   omitNaN(s.PctChange),
		LatestVol20: omitNaN(s.LatestVol20),
		Rows:        s.Rows,
	}
}

// omitNaN はNaNをnilに変換します。JSONはNaNを表現できないためです。
func omitNaN(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
