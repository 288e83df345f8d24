package session

import (
	"context"
	"testing"
)

// setの後の2回のtakeAndClearは、メッセージ、なし、の順で返す。
func TestErrorChannel_DeliversAtMostOnce(t *testing.T) {
	sm := newTestSessionManager()
	ch := NewErrorChannel(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) { ch.Set(ctx, "パスワードが正しくありません。") })

	c.do(func(ctx context.Context) {
		msg, ok := ch.TakeAndClear(ctx)
		if !ok || msg != "パスワードが正しくありません。" {
			t.Errorf("first take = (%q, %v)", msg, ok)
		}
	})
	c.do(func(ctx context.Context) {
		if msg, ok := ch.TakeAndClear(ctx); ok {
			t.Errorf("second take = (%q, %v), want none", msg, ok)
		}
	})
}

// 同じリクエスト内でも2回目の取り出しは空になる。
func TestErrorChannel_TakeTwiceInSameRequest(t *testing.T) {
	sm := newTestSessionManager()
	ch := NewErrorChannel(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) {
		ch.Set(ctx, "msg")
		if _, ok := ch.TakeAndClear(ctx); !ok {
			t.Error("expected message on first take")
		}
		if _, ok := ch.TakeAndClear(ctx); ok {
			t.Error("expected no message on second take")
		}
	})
}

func TestErrorChannel_LastWriterWins(t *testing.T) {
	sm := newTestSessionManager()
	ch := NewErrorChannel(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) { ch.Set(ctx, "first") })
	c.do(func(ctx context.Context) { ch.Set(ctx, "second") })

	c.do(func(ctx context.Context) {
		if msg, _ := ch.TakeAndClear(ctx); msg != "second" {
			t.Errorf("msg = %q, want %q", msg, "second")
		}
	})
}

func TestErrorChannel_EmptySession(t *testing.T) {
	sm := newTestSessionManager()
	ch := NewErrorChannel(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) {
		if _, ok := ch.TakeAndClear(ctx); ok {
			t.Error("expected no message for a fresh session")
		}
	})
}

// メッセージはセッション間で共有されない。
func TestErrorChannel_IsolatedPerSession(t *testing.T) {
	sm := newTestSessionManager()
	ch := NewErrorChannel(sm)
	a := &sessionClient{t: t, sm: sm}
	b := &sessionClient{t: t, sm: sm}

	a.do(func(ctx context.Context) { ch.Set(ctx, "for a") })
	b.do(func(ctx context.Context) {
		if _, ok := ch.TakeAndClear(ctx); ok {
			t.Error("session b must not see session a's message")
		}
	})
}
