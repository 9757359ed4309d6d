// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// CachingPriceRepository decorates a PriceReadRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
type CachingPriceRepository struct {
	inner     usecase.PriceReadRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingPriceRepository decorates a PriceReadRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "prices".
func NewCachingPriceRepository(rdb *redis.Client, ttl time.Duration, inner usecase.PriceReadRepository, namespace string) *CachingPriceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "prices"
	}
	return &CachingPriceRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

var _ usecase.PriceReadRepository = (*CachingPriceRepository)(nil)

// ListTickers retrieves the stored ticker list, checking cache first then
// falling back to the database.
func (c *CachingPriceRepository) ListTickers(ctx context.Context) ([]string, error) {
	if c.rdb == nil {
		return c.inner.ListTickers(ctx)
	}

	key := c.namespace + ":tickers"

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []string
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.ListTickers(ctx)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// FindRange retrieves price rows, checking cache first then falling back to
// the database.
func (c *CachingPriceRepository) FindRange(ctx context.Context, tickers []string, from, to time.Time) ([]entity.ProcessedBar, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FindRange(ctx, tickers, from, to)
	}

	key := c.cacheKey(tickers, from, to)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var rows []cachedBar
		if err := json.Unmarshal(b, &rows); err == nil {
			return fromCached(rows), nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.FindRange(ctx, tickers, from, to)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(toCached(out)); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// cachedBar is the JSON form of a price row. Derived metrics that are
// undefined (NaN) are stored as null, since encoding/json rejects NaN.
type cachedBar struct {
	Ticker      string    `json:"ticker"`
	Date        time.Time `json:"date"`
	Open        *float64  `json:"open"`
	High        *float64  `json:"high"`
	Low         *float64  `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	DailyReturn *float64  `json:"daily_return"`
	MA20        *float64  `json:"ma20"`
	Vol20       *float64  `json:"vol20"`
}

func toCached(bars []entity.ProcessedBar) []cachedBar {
	rows := make([]cachedBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, cachedBar{
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
		})
	}
	return rows
}

func fromCached(rows []cachedBar) []entity.ProcessedBar {
	bars := make([]entity.ProcessedBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, entity.ProcessedBar{
			Ticker:      r.Ticker,
			Date:        r.Date,
			Open:        floatOf(r.Open),
			High:        floatOf(r.High),
			Low:         floatOf(r.Low),
			Close:       r.Close,
			Volume:      r.Volume,
			DailyReturn: floatOf(r.DailyReturn),
			MA20:        floatOf(r.MA20),
			Vol20:       floatOf(r.Vol20),
		})
	}
	return bars
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatOf(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// InvalidateTicker removes cached range entries that may contain rows for the
// ticker, along with the cached ticker list. The write path calls this after
// changing rows for a ticker so that reads within the TTL see the new data.
// Range keys can cover several tickers, so matching is by substring; deleting
// an unrelated entry only costs a cache miss.
func (c *CachingPriceRepository) InvalidateTicker(ctx context.Context, ticker string) error {
	if c.rdb == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s:*%s*", c.namespace, safe(ticker))
	if err := c.deleteByPattern(ctx, pattern); err != nil {
		return err
	}
	return c.rdb.Del(ctx, c.namespace+":tickers").Err()
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingPriceRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// cacheKey generates a cache key for a specific range query.
func (c *CachingPriceRepository) cacheKey(tickers []string, from, to time.Time) string {
	parts := make([]string, 0, len(tickers))
	for _, t := range tickers {
		parts = append(parts, safe(t))
	}
	return fmt.Sprintf("%s:%s:%s:%s",
		c.namespace,
		strings.Join(parts, ","),
		from.UTC().Format("2006-01-02"),
		to.UTC().Format("2006-01-02"),
	)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
