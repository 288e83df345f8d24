package session

import (
	"context"

	"github.com/alexedwards/scs/v2"
)

// ErrorChannel はセッションごとに1件だけ保持されるエラーメッセージ。
// Setは上書き（後勝ち）、TakeAndClearは取り出しと削除を同時に行う。
type ErrorChannel struct {
	sm *scs.SessionManager
}

// NewErrorChannel はErrorChannelを生成する。
func NewErrorChannel(sm *scs.SessionManager) *ErrorChannel {
	return &ErrorChannel{sm: sm}
}

// Set は保留中のメッセージを置き換える。
func (c *ErrorChannel) Set(ctx context.Context, msg string) {
	c.sm.Put(ctx, flashKey, msg)
}

// TakeAndClear は保留中のメッセージを返して削除する。
// メッセージがない場合は("", false)を返す。
func (c *ErrorChannel) TakeAndClear(ctx context.Context) (string, bool) {
	msg := c.sm.PopString(ctx, flashKey)
	return msg, msg != ""
}
