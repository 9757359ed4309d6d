package adapters

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// sqliteMirror は組み込みSQLiteデータベースへのミラー実装です。
// 主ストアと違い、書き込みのたびにテーブル全体を置き換えます。
type sqliteMirror struct {
	db *gorm.DB
}

var _ usecase.MirrorRepository = (*sqliteMirror)(nil)

func NewSQLiteMirror(db *gorm.DB) *sqliteMirror {
	return &sqliteMirror{db: db}
}

// Replace は stock_data テーブルを削除・再作成して渡された行だけを書き込みます。
// 以前の実行で書かれた他銘柄の行も消えるため、呼び出し側はバッチ全体を
// 1回の呼び出しにまとめる必要があります。
func (m *sqliteMirror) Replace(ctx context.Context, bars []entity.ProcessedBar) error {
	mig := m.db.WithContext(ctx).Migrator()
	if mig.HasTable(&StockModel{}) {
		if err := mig.DropTable(&StockModel{}); err != nil {
			return fmt.Errorf("drop mirror table: %w", err)
		}
	}
	if err := m.db.WithContext(ctx).AutoMigrate(&StockModel{}); err != nil {
		return fmt.Errorf("create mirror table: %w", err)
	}

	if len(bars) == 0 {
		return nil
	}
	ms := make([]StockModel, 0, len(bars))
	for _, b := range bars {
		ms = append(ms, toModel(b))
	}
	return m.db.WithContext(ctx).CreateInBatches(&ms, 500).Error
}
