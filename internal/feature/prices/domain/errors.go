// Package domain はpricesフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"fmt"
)

// ErrMissingClose は処理対象のデータに close 相当の列が存在しない場合のエラーです。
// データ欠損ではなくアダプター側の契約違反を意味するため、リカバリー対象にはしません。
var ErrMissingClose = errors.New("input has no close column")

// SourceError は外部の市場データ取得元との通信・認証・パースの失敗を表します。
// Msg には取得元が返した診断メッセージをそのまま保持します。
type SourceError struct {
	Provider string
	Msg      string
	Err      error
}

func (e *SourceError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
