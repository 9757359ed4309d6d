package adapters

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// csvHeader はファイルミラーの列順です。リレーショナルスキーマと同じ列を持ちます。
var csvHeader = []string{"ticker", "date", "open", "high", "low", "close", "volume", "daily_return", "ma20", "vol20"}

// CSVSink は銘柄ごとに1ファイルのCSVミラーです。書き込みは毎回全上書きで、
// 同じ銘柄の再実行に対して冪等です（追記ではありません）。
type CSVSink struct {
	dir string
}

var _ usecase.FileSink = (*CSVSink)(nil)

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path は指定された銘柄のミラーファイルのパスを返します。
func (s *CSVSink) Path(ticker string) string {
	return filepath.Join(s.dir, ticker+".csv")
}

// WriteTicker は処理済みの系列を銘柄名のCSVファイルへ書き込みます。
// 親ディレクトリが無ければ作成し、既存ファイルは全上書きします。
func (s *CSVSink) WriteTicker(ticker string, bars []entity.ProcessedBar) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	f, err := os.Create(s.Path(ticker))
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range bars {
		rec := []string{
			b.Ticker,
			b.Date.UTC().Format(time.RFC3339),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			strconv.FormatInt(b.Volume, 10),
			formatFloat(b.DailyReturn),
			formatFloat(b.MA20),
			formatFloat(b.Vol20),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// ReadTicker はミラーファイルを読み戻します。主に検証用です。
func (s *CSVSink) ReadTicker(ticker string) ([]entity.ProcessedBar, error) {
	f, err := os.Open(s.Path(ticker))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("csv file %s has no header", s.Path(ticker))
	}

	bars := make([]entity.ProcessedBar, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("csv row has %d columns, want %d", len(rec), len(csvHeader))
		}
		d, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec[1], err)
		}
		vol, err := strconv.ParseInt(rec[6], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse volume %q: %w", rec[6], err)
		}
		bars = append(bars, entity.ProcessedBar{
			Ticker:      rec[0],
			Date:        d.UTC(),
			Open:        parseFloat(rec[2]),
			High:        parseFloat(rec[3]),
			Low:         parseFloat(rec[4]),
			Close:       parseFloat(rec[5]),
			Volume:      vol,
			DailyReturn: parseFloat(rec[7]),
			MA20:        parseFloat(rec[8]),
			Vol20:       parseFloat(rec[9]),
		})
	}
	return bars, nil
}

// formatFloat は値を正確に往復できる最短表現にします。NaN は空文字列（NULL相当）です。
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
