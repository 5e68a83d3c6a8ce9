package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cropview/internal/metrics"
	"github.com/hitoshi/cropview/internal/model"
	"github.com/hitoshi/cropview/internal/notify"
	"github.com/hitoshi/cropview/internal/review"
	"github.com/hitoshi/cropview/internal/stats"
)

// PredictionReader は予測レコードの読み書きインターフェース。
// repository.PredictionRepositoryが満たす。
type PredictionReader interface {
	FindByID(ctx context.Context, id string) (*model.Prediction, error)
	UpdateExpertComment(ctx context.Context, id string, comment string) error
}

// PredictionHandlerConfig は予測ハンドラーの設定。
type PredictionHandlerConfig struct {
	TrendMonths    int           // 月次トレンドの対象期間（暦月）
	WebhookTimeout time.Duration // レビュー完了Webhookの送信タイムアウト
}

// PredictionHandler は予測一覧とコメント付与のHTTPハンドラー。
type PredictionHandler struct {
	snapshots   SnapshotFetcher
	predictions PredictionReader
	sanitizer   review.Sanitizer
	notifier    notify.WebhookNotifier
	collector   metrics.MetricsCollector
	config      PredictionHandlerConfig
}

// NewPredictionHandler はPredictionHandlerを生成する。
func NewPredictionHandler(
	snapshots SnapshotFetcher,
	predictions PredictionReader,
	sanitizer review.Sanitizer,
	notifier notify.WebhookNotifier,
	collector metrics.MetricsCollector,
	config PredictionHandlerConfig,
) *PredictionHandler {
	return &PredictionHandler{
		snapshots:   snapshots,
		predictions: predictions,
		sanitizer:   sanitizer,
		notifier:    notifier,
		collector:   collector,
		config:      config,
	}
}

// predictionsPageResponse は管理側の予測一覧レスポンス（一覧 + 月次トレンド）。
type predictionsPageResponse struct {
	stats.PredictionsPage
	Degraded bool `json:"degraded,omitempty"`
}

// expertPredictionsResponse は専門家側の予測一覧レスポンス。
type expertPredictionsResponse struct {
	Predictions []stats.PredictionView `json:"predictions"`
	Degraded    bool                   `json:"degraded,omitempty"`
}

// commentRequest はコメント保存リクエストのボディ。
type commentRequest struct {
	Comment string `json:"comment"`
}

// commentResponse はコメント保存成功時のレスポンス。
type commentResponse struct {
	ID            string `json:"id"`
	ExpertComment string `json:"expert_comment"`
	Reviewed      bool   `json:"reviewed"`
}

// ListPredictions は全予測の一覧と月次トレンドを返す。
// GET /api/predictions
// 一覧はタイムスタンプ降順、トレンドは直近の暦月バケットを年月昇順で返す。
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Fetch(r.Context())
	if err != nil {
		slog.Error("failed to fetch snapshot for prediction list", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, predictionsPageResponse{
			PredictionsPage: stats.PredictionsPage{
				Predictions: []stats.PredictionView{},
				Trend:       []stats.TrendPoint{},
			},
			Degraded: true,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, predictionsPageResponse{
		PredictionsPage: stats.BuildPredictionsPage(snap.Users, snap.Predictions, now(), h.config.TrendMonths),
	})
}

// ListExpertPredictions はレビュー対象の予測一覧を返す。
// GET /api/expert/predictions
func (h *PredictionHandler) ListExpertPredictions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Fetch(r.Context())
	if err != nil {
		slog.Error("failed to fetch snapshot for expert prediction list", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, expertPredictionsResponse{
			Predictions: []stats.PredictionView{},
			Degraded:    true,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, expertPredictionsResponse{
		Predictions: stats.BuildPredictionViews(snap.Users, stats.SortByTimestampDesc(snap.Predictions)),
	})
}

// UpdateComment は予測に専門家コメントを付与する。
// PUT /api/expert/predictions/{id}/comment
//
// レビューセッションの状態機械を1リクエスト内で駆動する:
// 対象選択 → ドラフト設定 → 保存。空白のみのコメントは書き込みを発行せず
// 400を返す。保存成功時はレビュー完了Webhookを送信する（失敗は非致命的）。
func (h *PredictionHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	predictionID := chi.URLParam(r, "id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "commentフィールドを指定してください。",
		})
		return
	}

	prediction, err := h.predictions.FindByID(r.Context(), predictionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if prediction == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPredictionNotFoundError(predictionID))
		return
	}

	workflow := review.NewWorkflow(h.predictions, h.sanitizer)
	workflow.Open(prediction)
	workflow.SetDraft(req.Comment)

	if err := workflow.Save(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordCommentSaved()
	go h.deliverReviewWebhook(prediction)

	writeJSONResponse(w, http.StatusOK, commentResponse{
		ID:            prediction.ID,
		ExpertComment: prediction.ExpertComment,
		Reviewed:      prediction.Reviewed(),
	})
}

// deliverReviewWebhook はレビュー完了Webhookを送信する。
// 別ゴルーチンから呼ばれ、リクエストのコンテキストとは独立した
// タイムアウトで送信する。送信先が遅くてもコメント保存のレスポンスを
// 遅延させず、失敗も成功扱いのままメトリクスに記録するのみ。
func (h *PredictionHandler) deliverReviewWebhook(p *model.Prediction) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.WebhookTimeout)
	defer cancel()

	err := h.notifier.NotifyReviewCompleted(ctx, notify.ReviewEvent{
		PredictionID: p.ID,
		UserID:       p.UserID,
		CropType:     p.CropType,
		ReviewedAt:   time.Now(),
	})
	h.collector.RecordWebhookDelivery(err == nil)
}
