// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// アイドルタイムアウトや有効期限を過ぎたセッション行をsessionsテーブルから削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はセッション削除ジョブのデフォルト実行間隔。
const DefaultInterval = time.Hour

// ExpiredSessionDeleter は期限切れセッションの削除インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepRecorder は削除件数を記録するインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// SessionSweeper は期限切れセッションの削除ジョブ。
// 冪等な削除処理のため、複数プロセスで同時に実行してもよい。
type SessionSweeper struct {
	store    ExpiredSessionDeleter
	recorder SweepRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionSweeper は新しいSessionSweeperを生成する。recorderはnilでもよい。
func NewSessionSweeper(store ExpiredSessionDeleter, recorder SweepRecorder, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻より前に期限切れになったセッションを削除し、削除件数を返す。
// 削除対象がない場合でもエラーにならない。
func (s *SessionSweeper) Run(ctx context.Context) (int64, error) {
	start := s.now()

	deleted, err := s.store.DeleteExpired(ctx, start)
	if err != nil {
		s.logger.Error("session sweep failed",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordSessionsSwept(deleted)
	}

	s.logger.Info("session sweep completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(s.now().Sub(start).Milliseconds())),
	)

	return deleted, nil
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに記録して次回に持ち越す。
func (s *SessionSweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.logger.Info("session sweeper starting", slog.Duration("interval", interval))

	s.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
