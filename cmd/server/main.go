package main

import (
	"log"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"stock_pipeline/internal/app/router"
	"stock_pipeline/internal/feature/prices/adapters"
	"stock_pipeline/internal/feature/prices/transport/handler"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/cache"
	infradb "stock_pipeline/internal/platform/db"
	infraredis "stock_pipeline/internal/platform/redis"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[WARN] .env not found. Using environment variables.")
	}

	// db
	db := infradb.OpenPostgres()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
		rdb = nil
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// Repository
	priceRepo := adapters.NewStockRepository(db)

	// Redisキャッシュでラップ
	ttl := cache.TimeUntilNextRefresh()
	cachedPriceRepo := cache.NewCachingPriceRepository(rdb, ttl, priceRepo, "prices")

	// Usecase
	queryUC := usecase.NewQueryUsecase(cachedPriceRepo)

	// Handler
	pricesH := handler.NewPricesHandler(queryUC)

	// ルータ生成
	router := router.NewRouter(pricesH)

	if err := router.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
