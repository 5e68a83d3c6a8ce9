package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cropview/internal/snapshot"
	"github.com/hitoshi/cropview/internal/stats"
)

// SnapshotFetcher はダッシュボード系ハンドラーが必要とするスナップショット取得インターフェース。
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*snapshot.Snapshot, error)
}

// DashboardHandlerConfig はダッシュボードハンドラーの設定。
type DashboardHandlerConfig struct {
	TrendMonths       int // 月次トレンドの対象期間（暦月）
	RecentPredictions int // 専門家概要に含める直近予測の件数
}

// DashboardHandler はダッシュボード概要のHTTPハンドラー。
type DashboardHandler struct {
	snapshots SnapshotFetcher
	config    DashboardHandlerConfig
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(snapshots SnapshotFetcher, config DashboardHandlerConfig) *DashboardHandler {
	return &DashboardHandler{
		snapshots: snapshots,
		config:    config,
	}
}

// adminDashboardResponse は管理ダッシュボード概要のレスポンス。
// Degradedはスナップショット取得失敗によりゼロ値表示となったことを示す。
type adminDashboardResponse struct {
	stats.AdminOverview
	Degraded bool `json:"degraded,omitempty"`
}

// expertDashboardResponse は専門家ダッシュボード概要のレスポンス。
type expertDashboardResponse struct {
	stats.ExpertOverview
	Degraded bool `json:"degraded,omitempty"`
}

// AdminDashboard は管理ダッシュボードの概要を返す。
// GET /api/dashboard
// スナップショット取得に失敗した場合はクラッシュさせず、ログに記録して
// ゼロ値の概要をdegradedフラグ付きで返す。
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Fetch(r.Context())
	if err != nil {
		slog.Error("failed to fetch snapshot for admin dashboard", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, adminDashboardResponse{
			AdminOverview: stats.BuildAdminOverview(nil, nil),
			Degraded:      true,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, adminDashboardResponse{
		AdminOverview: stats.BuildAdminOverview(snap.Users, snap.Predictions),
	})
}

// ExpertDashboard は専門家ダッシュボードの概要を返す。
// GET /api/expert/dashboard
func (h *DashboardHandler) ExpertDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Fetch(r.Context())
	if err != nil {
		slog.Error("failed to fetch snapshot for expert dashboard", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, expertDashboardResponse{
			ExpertOverview: stats.BuildExpertOverview(nil, nil, h.config.RecentPredictions),
			Degraded:       true,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, expertDashboardResponse{
		ExpertOverview: stats.BuildExpertOverview(snap.Users, snap.Predictions, h.config.RecentPredictions),
	})
}

// now はテストで差し替え可能な現在時刻関数。
var now = time.Now
