// Package snapshot はレコードスナップショットの取得を提供する。
//
// ダッシュボードのビューモデルはすべて、ある時点のusers/user_prediction
// 両コレクションのスナップショットから導出される。両コレクションの取得は
// 並行して発行され、双方の完了を待ってから結合される（ユーザー別予測件数の
// ような相互参照ビューモデルが片側だけの結果から導出されることはない）。
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/cropview/internal/metrics"
	"github.com/hitoshi/cropview/internal/model"
	"github.com/hitoshi/cropview/internal/repository"
)

// Snapshot はある時点の全レコードの集合。
type Snapshot struct {
	Users       []*model.User
	Predictions []*model.Prediction
	FetchedAt   time.Time
}

// Service はスナップショット取得サービス。
type Service struct {
	userRepo       repository.UserRepository
	predictionRepo repository.PredictionRepository
	collector      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	predictionRepo repository.PredictionRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:       userRepo,
		predictionRepo: predictionRepo,
		collector:      collector,
	}
}

// Fetch は両コレクションを並行取得し、結合したスナップショットを返す。
// どちらか一方でも失敗した場合はエラーを返す（部分的なスナップショットは
// 返さない）。取得レイテンシはメトリクスに記録される。
func (s *Service) Fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	var (
		wg          sync.WaitGroup
		users       []*model.User
		predictions []*model.Prediction
		userErr     error
		predErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		users, userErr = s.userRepo.ListAll(ctx)
	}()
	go func() {
		defer wg.Done()
		predictions, predErr = s.predictionRepo.ListAll(ctx)
	}()
	wg.Wait()

	if userErr != nil {
		return nil, fmt.Errorf("failed to list users: %w", userErr)
	}
	if predErr != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", predErr)
	}

	if s.collector != nil {
		s.collector.RecordSnapshotLatency(time.Since(start))
	}

	return &Snapshot{
		Users:       users,
		Predictions: predictions,
		FetchedAt:   time.Now(),
	}, nil
}
