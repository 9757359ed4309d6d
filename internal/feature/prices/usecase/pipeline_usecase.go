// Package usecase は株価データパイプラインのビジネスロジックを実装します。
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/processor"
	"stock_pipeline/internal/shared/ratelimiter"
)

// MarketRepository は外部の市場データ取得元を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
//
// start/end が指定されている場合は period より優先されます。
// 要求したウィンドウにデータが無い場合は空の結果を返し、エラーにはしません。
type MarketRepository interface {
	GetTimeSeries(ctx context.Context, ticker, period, interval string, start, end time.Time) ([]entity.RawBar, error)
}

// StockRepository はリレーショナルストアへの書き込みを抽象化します。
// Append は追記のみで既存行の重複チェックを行わないため、再実行時は
// 事前に DeleteRange で対象範囲を消してから追記します。
type StockRepository interface {
	Append(ctx context.Context, bars []entity.ProcessedBar) error
	DeleteRange(ctx context.Context, ticker string, from, to time.Time) error
}

// FileSink は銘柄ごとのファイルミラーを抽象化します。呼び出しごとに全上書きします。
type FileSink interface {
	WriteTicker(ticker string, bars []entity.ProcessedBar) error
}

// MirrorRepository は組み込みデータベースミラーを抽象化します。
// Replace はテーブル全体を置き換えるため、呼び出し側がバッチ全体を
// 1回の呼び出しにまとめる必要があります。
type MirrorRepository interface {
	Replace(ctx context.Context, bars []entity.ProcessedBar) error
}

// Outcome は1銘柄のパイプライン実行結果の種別です。
type Outcome string

const (
	OutcomePersisted     Outcome = "persisted"      // 取得・処理・永続化まで完了
	OutcomeEmpty         Outcome = "empty"          // 取得元にデータなし（スキップ）
	OutcomeFetchFailed   Outcome = "fetch_failed"   // 取得元との通信・認証・パース失敗
	OutcomeProcessFailed Outcome = "process_failed" // 処理契約違反（アダプターのバグ）
	OutcomeSinkFailed    Outcome = "sink_failed"    // 永続化のI/O失敗
)

// Result は1銘柄のパイプライン実行結果です。
type Result struct {
	Ticker  string
	Outcome Outcome
	Rows    int
	Err     error
}

// PipelineUsecase は銘柄バッチに対して取得→処理→永続化を駆動します。
type PipelineUsecase struct {
	market      MarketRepository
	stocks      StockRepository
	files       FileSink
	mirror      MirrorRepository
	rateLimiter ratelimiter.RateLimiterInterface
}

// NewPipelineUsecase は新しい PipelineUsecase を作成します。
func NewPipelineUsecase(market MarketRepository, stocks StockRepository, files FileSink,
	mirror MirrorRepository, rateLimiter ratelimiter.RateLimiterInterface) *PipelineUsecase {
	return &PipelineUsecase{
		market:      market,
		stocks:      stocks,
		files:       files,
		mirror:      mirror,
		rateLimiter: rateLimiter,
	}
}

// RunBatch は銘柄リストを順番に処理し、銘柄ごとの結果を返します。
//
// 失敗の隔離は銘柄単位です。ある銘柄の取得失敗・空データ・永続化失敗は
// ログに記録してその銘柄を打ち切り、他の銘柄の処理は続行します。
// 全銘柄を試行した後に必ずリターンします。
//
// 組み込みデータベースミラーは全置き換えのため、バッチ全体の処理済みデータを
// 蓄積してループ後に1回だけ書き込みます。ミラーへの書き込み失敗は
// ログのみでバッチの結果には影響しません（主ストアより弱い整合性保証）。
func (pu *PipelineUsecase) RunBatch(ctx context.Context, tickers []string, period, interval string, start, end time.Time) []Result {
	results := make([]Result, 0, len(tickers))
	var batch []entity.ProcessedBar

	for _, raw := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}

		pu.rateLimiter.WaitIfNeeded()

		bars, err := pu.market.GetTimeSeries(ctx, ticker, period, interval, start, end)
		if err != nil {
			slog.Error("failed to fetch data", "ticker", ticker, "error", err)
			results = append(results, Result{Ticker: ticker, Outcome: OutcomeFetchFailed, Err: err})
			continue
		}
		if len(bars) == 0 {
			slog.Warn("no data fetched", "ticker", ticker, "period", period, "interval", interval)
			results = append(results, Result{Ticker: ticker, Outcome: OutcomeEmpty})
			continue
		}

		processed, err := processor.Process(bars)
		if err != nil {
			// close列の欠落はアダプターの契約違反。黙ってスキップせずエラーとして記録する
			slog.Error("processor contract violation", "ticker", ticker, "error", err)
			results = append(results, Result{Ticker: ticker, Outcome: OutcomeProcessFailed, Err: err})
			continue
		}
		if len(processed) == 0 {
			slog.Warn("all rows dropped during processing", "ticker", ticker)
			results = append(results, Result{Ticker: ticker, Outcome: OutcomeEmpty})
			continue
		}

		if err := pu.persistOne(ctx, ticker, processed); err != nil {
			slog.Error("failed to persist data", "ticker", ticker, "error", err)
			results = append(results, Result{Ticker: ticker, Outcome: OutcomeSinkFailed, Err: err})
			continue
		}

		batch = append(batch, processed...)
		results = append(results, Result{Ticker: ticker, Outcome: OutcomePersisted, Rows: len(processed)})
	}

	if pu.mirror != nil && len(batch) > 0 {
		if err := pu.mirror.Replace(ctx, batch); err != nil {
			slog.Error("failed to write embedded mirror", "error", err)
		}
	}

	return results
}

// persistOne は処理済みの系列を主ストアとファイルミラーへ書き込みます。
// リレーショナルストアには同じ銘柄・日付範囲の既存行を消してから追記するため、
// 同一ウィンドウの再実行で行が重複しません。ファイル書き込みが失敗した時点で
// リレーショナル側の書き込みは確定済みであり、シンクをまたぐロールバックは行いません。
func (pu *PipelineUsecase) persistOne(ctx context.Context, ticker string, bars []entity.ProcessedBar) error {
	from := bars[0].Date
	to := bars[len(bars)-1].Date
	if err := pu.stocks.DeleteRange(ctx, ticker, from, to); err != nil {
		return err
	}
	if err := pu.stocks.Append(ctx, bars); err != nil {
		return err
	}
	return pu.files.WriteTicker(ticker, bars)
}
