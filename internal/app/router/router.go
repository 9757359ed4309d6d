package router

import (
	"github.com/gin-gonic/gin"

	"stock_pipeline/internal/feature/prices/transport/handler"
)

func NewRouter(prices *handler.PricesHandler) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	r.GET("/healthz", handler.Health)

	// ダッシュボード向けの照会エンドポイント
	r.GET("/tickers", prices.ListTickersHandler)
	r.GET("/tickers/:ticker/summary", prices.GetSummaryHandler)
	r.GET("/prices", prices.GetPricesHandler)

	return r
}
