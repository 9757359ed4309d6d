package entity

import (
	"math"
	"strings"
	"time"
)

// RawBar は取得元APIから返された1銘柄・1時点の生の価格データです。
// 取得元によって列名の大文字小文字や列の有無が異なるため、date と ticker 以外の
// 数値列は取得元の命名のまま Fields に保持します。欠損値は NaN で表現します。
type RawBar struct {
	Ticker string
	Date   time.Time
	Fields map[string]float64
}

// Field は列名の大文字小文字を無視して値を返します。
// 該当する列が存在しない場合は NaN を返します。
func (b RawBar) Field(name string) float64 {
	if v, ok := b.Fields[name]; ok {
		return v
	}
	for k, v := range b.Fields {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return math.NaN()
}

// HasField は列名の大文字小文字を無視して列の有無を返します。
func (b RawBar) HasField(name string) bool {
	for k := range b.Fields {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// ProcessedBar は正規化・派生指標計算済みの1銘柄・1時点の価格データです。
// Date は常にUTCです。未定義の値（初日の日次リターンなど）は NaN で表現します。
type ProcessedBar struct {
	Ticker      string
	Date        time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	DailyReturn float64 // close[i]/close[i-1] - 1。先頭行は NaN
	MA20        float64 // 直近20本（先頭付近は縮小ウィンドウ）の終値平均
	Vol20       float64 // 直近20本の日次リターンの標本標準偏差。リターンが2本未満の間は NaN
}
