package cache

import (
	"time"
)

// TimeUntilNextRefresh は次のデータ更新時刻（UTC 08:00）までの期間を返します。
// 日次バッチの完了後にキャッシュが自然に切れるよう、TTLとして使います。
func TimeUntilNextRefresh() time.Duration {
	now := time.Now().UTC()

	next := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)

	// 今日の08:00が既に過ぎている場合は翌日の08:00を使用
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}

	return next.Sub(now)
}
