package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/cropview/internal/stats"
)

// UserHandler はユーザー一覧のHTTPハンドラー。
type UserHandler struct {
	snapshots SnapshotFetcher
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(snapshots SnapshotFetcher) *UserHandler {
	return &UserHandler{snapshots: snapshots}
}

// userListResponse はユーザー一覧のレスポンス。
// 各ユーザーには予測件数が付与され、予測0件のユーザーも件数0で含まれる。
type userListResponse struct {
	Users    []stats.UserView `json:"users"`
	Degraded bool             `json:"degraded,omitempty"`
}

// ListUsers は全ユーザーの一覧を予測件数付きで返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Fetch(r.Context())
	if err != nil {
		slog.Error("failed to fetch snapshot for user list", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, userListResponse{
			Users:    []stats.UserView{},
			Degraded: true,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, userListResponse{
		Users: stats.BuildUserViews(snap.Users, snap.Predictions),
	})
}
