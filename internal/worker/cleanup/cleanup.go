// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// expires_atを過ぎたセッション行を定期バッチで削除し、sessionsテーブルの
// 肥大化を防ぐ。残存する期限切れ行はFindByID側でも弾かれるため、
// このジョブの遅延が認可判断に影響することはない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPruner は期限切れセッションの一括削除を抽象化するインターフェース。
// repository.SessionRepository が満たす。
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionCleanupJob は期限切れセッションの削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SessionCleanupJob struct {
	sessions SessionPruner
	logger   *slog.Logger
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(sessions SessionPruner, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		sessions: sessions,
		logger:   logger,
	}
}

// Run は期限切れセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunLoop はintervalごとにRunを繰り返し実行する。
// コンテキストのキャンセルで停止する。個々の実行の失敗は
// ログに記録するのみで、ループ自体は継続する。
func (j *SessionCleanupJob) RunLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップループを開始します",
		slog.String("interval", interval.String()),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップループを停止します")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				// Runの内部で詳細はログ済み
				continue
			}
		}
	}
}
