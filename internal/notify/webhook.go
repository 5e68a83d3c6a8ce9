// Package notify はレビュー完了の外部通知機能を提供する。
// 設定されたWebhook URLへレビュー完了イベントをJSONでPOSTする。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// ReviewEvent はレビュー完了Webhookのペイロード。
type ReviewEvent struct {
	PredictionID string    `json:"prediction_id"`
	UserID       string    `json:"user_id"`
	CropType     string    `json:"crop_type"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// webhookPayload は送信ボディ。受信側の重複排除とログ突き合わせのため、
// 送信ごとに一意なdelivery_idを付与する。
type webhookPayload struct {
	DeliveryID string `json:"delivery_id"`
	ReviewEvent
}

// WebhookNotifier はレビュー完了イベントの通知インターフェースを定義する。
type WebhookNotifier interface {
	// NotifyReviewCompleted はレビュー完了イベントをWebhook先へ送信する。
	// 通知は補助機能であり、失敗してもコメント保存自体は成功扱いとする
	// （呼び出し元はエラーをログに残すのみでレスポンスには影響させない）。
	NotifyReviewCompleted(ctx context.Context, event ReviewEvent) error
}

// webhookNotifier はWebhookNotifierの実装。
// httpClientにはSSRF防止付きクライアント（security.SSRFGuardService）を渡す。
type webhookNotifier struct {
	httpClient *http.Client
	logger     *slog.Logger
	url        string
}

// NewWebhookNotifier はWebhookNotifierの新しいインスタンスを生成する。
// urlが空の場合、通知は無効化され NotifyReviewCompleted は何もしない。
func NewWebhookNotifier(httpClient *http.Client, logger *slog.Logger, url string) *webhookNotifier {
	return &webhookNotifier{
		httpClient: httpClient,
		logger:     logger,
		url:        url,
	}
}

// Enabled はWebhook通知が設定されているかを返す。
func (n *webhookNotifier) Enabled() bool {
	return n.url != ""
}

// NotifyReviewCompleted はレビュー完了イベントをWebhook先へ送信する。
func (n *webhookNotifier) NotifyReviewCompleted(ctx context.Context, event ReviewEvent) error {
	if !n.Enabled() {
		return nil
	}

	deliveryID := uuid.NewString()
	payload, err := json.Marshal(webhookPayload{
		DeliveryID:  deliveryID,
		ReviewEvent: event,
	})
	if err != nil {
		return fmt.Errorf("Webhookペイロードのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)
	req.Header.Set("User-Agent", "CropView/1.0 Review Notifier")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("レビュー完了Webhookの送信に失敗しました",
			slog.String("error", err.Error()),
			slog.String("delivery_id", deliveryID),
			slog.String("prediction_id", event.PredictionID),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		n.logger.Error("レビュー完了Webhookがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("delivery_id", deliveryID),
			slog.String("prediction_id", event.PredictionID),
		)
		return fmt.Errorf("Webhook先がステータス %d を返しました", resp.StatusCode)
	}

	n.logger.Info("レビュー完了Webhookを送信しました",
		slog.String("delivery_id", deliveryID),
		slog.String("prediction_id", event.PredictionID),
	)
	return nil
}
