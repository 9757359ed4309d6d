// Package adapters はpricesフィーチャーの永続化アダプターを実装します。
package adapters

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// stockGorm は処理済み株価データの主リレーショナルストア実装です。
type stockGorm struct {
	db *gorm.DB
}

var _ usecase.StockRepository = (*stockGorm)(nil)
var _ usecase.PriceReadRepository = (*stockGorm)(nil)

func NewStockRepository(db *gorm.DB) *stockGorm {
	return &stockGorm{db: db}
}

// StockModel は stock_data テーブルの1行です。
// (ticker, date) にユニーク制約は置かず追記を許します。再実行時の重複は
// 書き込み側が DeleteRange で対象範囲を消すことで防ぎます。
// 未定義になりうる派生列はNULL許容（ポインタ）です。
type StockModel struct {
	ID          uint      `gorm:"primaryKey"`
	Ticker      string    `gorm:"size:16;not null;index:idx_stock_ticker_date,priority:1"`
	Date        time.Time `gorm:"not null;index:idx_stock_ticker_date,priority:2"`
	Open        *float64
	High        *float64
	Low         *float64
	Close       float64  `gorm:"not null"`
	Volume      int64    `gorm:"not null;default:0"`
	DailyReturn *float64 `gorm:"column:daily_return"`
	MA20        *float64 `gorm:"column:ma20"`
	Vol20       *float64 `gorm:"column:vol20"`
}

func (StockModel) TableName() string {
	return "stock_data"
}

// nullable は NaN をNULL（nil）に写します。
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// floatOf はNULL（nil）を NaN に写します。
func floatOf(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func toModel(b entity.ProcessedBar) StockModel {
	return StockModel{
		Ticker:      b.Ticker,
		Date:        b.Date,
		Open:        nullable(b.Open),
		High:        nullable(b.High),
		Low:         nullable(b.Low),
		Close:       b.Close,
		Volume:      b.Volume,
		DailyReturn: nullable(b.DailyReturn),
		MA20:        nullable(b.MA20),
		Vol20:       nullable(b.Vol20),
	}
}

func fromModel(m StockModel) entity.ProcessedBar {
	return entity.ProcessedBar{
		Ticker:      m.Ticker,
		Date:        m.Date.UTC(),
		Open:        floatOf(m.Open),
		High:        floatOf(m.High),
		Low:         floatOf(m.Low),
		Close:       m.Close,
		Volume:      m.Volume,
		DailyReturn: floatOf(m.DailyReturn),
		MA20:        floatOf(m.MA20),
		Vol20:       floatOf(m.Vol20),
	}
}

// Append は処理済みの行を追記します。既存行との重複チェックは行いません。
func (r *stockGorm) Append(ctx context.Context, bars []entity.ProcessedBar) error {
	if len(bars) == 0 {
		return nil
	}
	ms := make([]StockModel, 0, len(bars))
	for _, b := range bars {
		ms = append(ms, toModel(b))
	}
	return r.db.WithContext(ctx).CreateInBatches(&ms, 500).Error
}

// DeleteRange は指定された銘柄・日付範囲（両端含む）の既存行を削除します。
func (r *stockGorm) DeleteRange(ctx context.Context, ticker string, from, to time.Time) error {
	return r.db.WithContext(ctx).
		Where("ticker = ? AND date BETWEEN ? AND ?", ticker, from, to).
		Delete(&StockModel{}).Error
}

// FindRange は指定された銘柄群・日付範囲の行を銘柄・日付の昇順で返します。
func (r *stockGorm) FindRange(ctx context.Context, tickers []string, from, to time.Time) ([]entity.ProcessedBar, error) {
	var rows []StockModel
	err := r.db.WithContext(ctx).
		Where("ticker IN ? AND date BETWEEN ? AND ?", tickers, from, to).
		Order("ticker, date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]entity.ProcessedBar, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

// ListTickers は保存済みの銘柄コードを昇順で返します。
func (r *stockGorm) ListTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).
		Model(&StockModel{}).
		Distinct("ticker").
		Order("ticker").
		Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, err
	}
	return tickers, nil
}
