package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

func setupMirrorDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	return db
}

func TestSQLiteMirror_Replace(t *testing.T) {
	t.Parallel()

	baseTime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("replaces the whole table", func(t *testing.T) {
		t.Parallel()

		db := setupMirrorDB(t)
		mirror := NewSQLiteMirror(db)
		ctx := context.Background()

		first := []entity.ProcessedBar{
			processedBar("AAPL", baseTime, 150),
			processedBar("MSFT", baseTime, 250),
		}
		require.NoError(t, mirror.Replace(ctx, first))

		second := []entity.ProcessedBar{
			processedBar("GOOG", baseTime, 100),
		}
		require.NoError(t, mirror.Replace(ctx, second))

		var rows []StockModel
		require.NoError(t, db.Find(&rows).Error)
		require.Len(t, rows, 1, "previous contents must be wiped")
		assert.Equal(t, "GOOG", rows[0].Ticker)
	})

	t.Run("empty batch leaves an empty table", func(t *testing.T) {
		t.Parallel()

		db := setupMirrorDB(t)
		mirror := NewSQLiteMirror(db)
		ctx := context.Background()

		require.NoError(t, mirror.Replace(ctx, []entity.ProcessedBar{
			processedBar("AAPL", baseTime, 150),
		}))
		require.NoError(t, mirror.Replace(ctx, nil))

		var count int64
		db.Model(&StockModel{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("works without a pre-existing table", func(t *testing.T) {
		t.Parallel()

		db := setupMirrorDB(t)
		mirror := NewSQLiteMirror(db)

		require.NoError(t, mirror.Replace(context.Background(), []entity.ProcessedBar{
			processedBar("AAPL", baseTime, 150),
		}))

		var count int64
		db.Model(&StockModel{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}
