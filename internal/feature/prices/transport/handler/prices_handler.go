// Package handler はpricesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/transport/http/dto"
	"stock_pipeline/internal/feature/prices/usecase"
)

// PricesUsecase は株価照会のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type PricesUsecase interface {
	ListTickers(ctx context.Context) ([]string, error)
	GetSeries(ctx context.Context, tickers []string, from, to time.Time) ([]entity.ProcessedBar, error)
	GetSummary(ctx context.Context, ticker string, from, to time.Time) (*usecase.Summary, error)
}

// PricesHandler は株価データのHTTPリクエストを処理します。
type PricesHandler struct {
	uc PricesUsecase
}

// NewPricesHandler は指定されたusecaseでPricesHandlerの新しいインスタンスを生成します。
func NewPricesHandler(uc PricesUsecase) *PricesHandler {
	return &PricesHandler{uc: uc}
}

// ListTickersHandler は保存済みの銘柄コード一覧をJSONで返します。
//
// エンドポイント例:
// GET /tickers
func (h *PricesHandler) ListTickersHandler(c *gin.Context) {
	tickers, err := h.uc.ListTickers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	c.JSON(http.StatusOK, dto.TickersResponse{Tickers: tickers})
}

// GetPricesHandler は銘柄群と日付範囲を受け取り、処理済みの時系列をJSONで返します。
// start/end の指定が無い場合はデフォルトの表示期間を使用します。
//
// エンドポイント例:
// GET /prices?tickers=AAPL,MSFT&start=2023-01-01&end=2023-12-31
func (h *PricesHandler) GetPricesHandler(c *gin.Context) {
	tickersParam := c.Query("tickers")
	if strings.TrimSpace(tickersParam) == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "tickers query parameter is required"})
		return
	}
	tickers := strings.Split(tickersParam, ",")

	from, ok := parseDate(c, "start")
	if !ok {
		return
	}
	to, ok := parseDate(c, "end")
	if !ok {
		return
	}

	bars, err := h.uc.GetSeries(c.Request.Context(), tickers, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	// データをフォーマット
	out := make([]dto.PriceResponse, 0, len(bars))
	for _, b := range bars {
		out = append(out, dto.FromBar(b))
	}

	c.JSON(http.StatusOK, out)
}

// GetSummaryHandler は1銘柄の期間サマリーをJSONで返します。
// 該当するデータが無い場合は404を返します。
//
// エンドポイント例:
// GET /tickers/AAPL/summary?start=2023-01-01&end=2023-12-31
func (h *PricesHandler) GetSummaryHandler(c *gin.Context) {
	ticker := c.Param("ticker")

	from, ok := parseDate(c, "start")
	if !ok {
		return
	}
	to, ok := parseDate(c, "end")
	if !ok {
		return
	}

	summary, err := h.uc.GetSummary(c.Request.Context(), ticker, from, to)
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no data for ticker"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.FromSummary(summary))
}

// parseDate はクエリパラメータの日付（YYYY-MM-DD）を解析します。
// 未指定の場合はゼロ値を返し、不正な場合は400を書き込んでfalseを返します。
func parseDate(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + name + " date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t.UTC(), true
}
