package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"stock_pipeline/internal/app/di"
	"stock_pipeline/internal/feature/prices/adapters"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/cache"
	"stock_pipeline/internal/platform/db"
	infraredis "stock_pipeline/internal/platform/redis"
	"stock_pipeline/internal/shared/ratelimiter"
)

func main() {
	tickersFlag := flag.String("tickers", "AAPL", "comma-separated ticker list")
	period := flag.String("period", "1y", "lookback period (1d 5d 1mo 3mo 6mo 1y 2y 5y max)")
	interval := flag.String("interval", "1d", "bar interval")
	provider := flag.String("provider", "yahoo", "data provider (yahoo or alphavantage)")
	startFlag := flag.String("start", "", "explicit start date YYYY-MM-DD (overrides period)")
	endFlag := flag.String("end", "", "explicit end date YYYY-MM-DD")
	csvDir := flag.String("csv-dir", "data/csv", "directory for per-ticker CSV files")
	sqlitePath := flag.String("sqlite-db", "data/stock_data.db", "path to the embedded mirror database")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("[WARN] .env not found. Using environment variables.")
	}

	start, err := parseDate(*startFlag)
	if err != nil {
		log.Fatal("invalid -start:", err)
	}
	end, err := parseDate(*endFlag)
	if err != nil {
		log.Fatal("invalid -end:", err)
	}

	gormDB := db.OpenPostgres()

	var mirror usecase.MirrorRepository
	if mirrorDB, err := db.OpenSQLite(*sqlitePath); err != nil {
		log.Println("[WARN] embedded mirror unavailable:", err)
	} else {
		mirror = adapters.NewSQLiteMirror(mirrorDB)
	}

	// Redis（照会キャッシュの無効化用。無ければキャッシュなしで続行）
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(); err != nil {
		log.Println("[WARN] Redis unavailable. Skipping cache invalidation.")
		rdb = nil
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	marketRepo, err := di.NewMarket(*provider)
	if err != nil {
		log.Fatal(err)
	}
	stockRepo := adapters.NewStockRepository(gormDB)
	cacheRepo := cache.NewCachingPriceRepository(rdb, 0, stockRepo, "prices")
	fileSink := adapters.NewCSVSink(*csvDir)
	limiter := ratelimiter.NewRateLimiter(8, time.Minute)

	uc := usecase.NewPipelineUsecase(marketRepo, stockRepo, fileSink, mirror, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	tickers := strings.Split(*tickersFlag, ",")
	results := uc.RunBatch(ctx, tickers, *period, *interval, start, end)

	persisted := 0
	for _, r := range results {
		switch r.Outcome {
		case usecase.OutcomePersisted:
			persisted++
			log.Printf("%s: %d rows persisted", r.Ticker, r.Rows)
			// 書き込んだ銘柄のキャッシュを無効化し、ダッシュボードが
			// TTL切れを待たずに新しい行を読めるようにする
			if err := cacheRepo.InvalidateTicker(ctx, r.Ticker); err != nil {
				log.Printf("[WARN] cache invalidation failed for %s: %v", r.Ticker, err)
			}
		case usecase.OutcomeEmpty:
			log.Printf("%s: no data, skipped", r.Ticker)
		default:
			log.Printf("%s: %s: %v", r.Ticker, r.Outcome, r.Err)
		}
	}

	if persisted == 0 && len(results) > 0 {
		log.Fatal("pipeline finished with no tickers persisted")
	}
	log.Printf("pipeline ok: %d/%d tickers persisted", persisted, len(results))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
