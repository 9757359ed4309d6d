// Package processor は取得元から受け取った生の価格データを正規化し、
// 派生指標（日次リターン・移動平均・ボラティリティ）を計算します。
// 純粋関数のみで構成され、I/Oは行いません。
package processor

import (
	"math"
	"sort"
	"time"

	"stock_pipeline/internal/feature/prices/domain"
	"stock_pipeline/internal/feature/prices/domain/entity"
)

// Window は移動平均とボラティリティ計算に使うウィンドウ幅（本数）です。
const Window = 20

// Process は生の価格データを時系列順・UTC正規化済みのテーブルに変換し、
// 日次リターン・20本移動平均・20本ボラティリティを付与します。
//
// タイムゾーンの扱い:
//   - タイムゾーン情報を持つ時刻はUTCへ値変換します。
//   - タイムゾーン情報を持たない時刻（time.Local のままの時刻）は、取引所ローカルの
//     壁時計とみなし、値を変えずにUTCとしてラベル付けします。
//
// この非対称な扱いは正規化ポリシーであり、後続の利用者はタイムゾーンなし入力の
// 時刻値がシフトされていない点に注意してください。
//
// 入力が空の場合は空の結果を返します（エラーではありません）。
// close 相当の列が存在しない場合は domain.ErrMissingClose を返します。
func Process(raw []entity.RawBar) ([]entity.ProcessedBar, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if !hasCloseColumn(raw) {
		return nil, domain.ErrMissingClose
	}

	bars := make([]entity.RawBar, len(raw))
	copy(bars, raw)
	for i := range bars {
		bars[i].Date = normalizeUTC(bars[i].Date)
	}

	// 日付昇順。同時刻は元の並び順を保つ
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	bars = dedupByDate(bars)

	out := make([]entity.ProcessedBar, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Field("close")
		out[i] = entity.ProcessedBar{
			Ticker: b.Ticker,
			Date:   b.Date,
			Open:   b.Field("open"),
			High:   b.Field("high"),
			Low:    b.Field("low"),
			Close:  closes[i],
			Volume: volumeOf(b),
		}
	}

	// 派生列はリターン → 移動平均 → ボラティリティの順に、行を落とす前の全系列に対して計算する
	returns := dailyReturns(closes)
	for i := range out {
		out[i].DailyReturn = returns[i]
		out[i].MA20 = windowMean(closes, i, Window)
		out[i].Vol20 = windowStd(returns, i, Window)
	}

	// close が欠損した行は系列を前に進められないため最後に落とす
	kept := out[:0]
	for _, b := range out {
		if math.IsNaN(b.Close) {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}

func hasCloseColumn(bars []entity.RawBar) bool {
	for _, b := range bars {
		if b.HasField("close") {
			return true
		}
	}
	return false
}

func normalizeUTC(t time.Time) time.Time {
	switch t.Location() {
	case time.UTC:
		return t
	case time.Local:
		// タイムゾーン情報なしとみなし、壁時計を保ってUTCラベルを付ける
		y, m, d := t.Date()
		hh, mm, ss := t.Clock()
		return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
	default:
		return t.UTC()
	}
}

// dedupByDate はソート済みの系列から同一時刻の行を取り除きます。最初の行を残します。
func dedupByDate(bars []entity.RawBar) []entity.RawBar {
	kept := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Date.Equal(bars[i-1].Date) {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// dailyReturns は close[i]/close[i-1] - 1 を計算します。先頭行は NaN です。
// 欠損した close はそのまま NaN として伝播します。
func dailyReturns(closes []float64) []float64 {
	rs := make([]float64, len(closes))
	rs[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		rs[i] = closes[i]/closes[i-1] - 1
	}
	return rs
}

// windowMean は i で終わる最大 window 本のウィンドウに含まれる有効値の算術平均を返します。
// 系列の先頭付近ではウィンドウが縮小します。有効値が無い場合は NaN を返します。
func windowMean(vals []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum, n := 0.0, 0
	for _, v := range vals[lo : i+1] {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// windowStd は i で終わる最大 window 本のウィンドウに含まれる有効値の
// 標本標準偏差（n-1 で割る）を返します。有効値が2本未満の場合は NaN を返します。
func windowStd(vals []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	mean := windowMean(vals, i, window)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range vals[lo : i+1] {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sum += d * d
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n-1))
}

func volumeOf(b entity.RawBar) int64 {
	v := b.Field("volume")
	if math.IsNaN(v) {
		return 0
	}
	return int64(v)
}
