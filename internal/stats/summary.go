package stats

import (
	"time"

	"github.com/hitoshi/cropview/internal/model"
)

// AdminOverview は管理ダッシュボード概要のビューモデル。
type AdminOverview struct {
	TotalUsers        int     `json:"total_users"`
	UserRoles         []Count `json:"user_roles"`
	TotalPredictions  int     `json:"total_predictions"`
	PredictionsByType []Count `json:"predictions_by_type"`
}

// ExpertOverview は専門家ダッシュボード概要のビューモデル。
type ExpertOverview struct {
	TotalPredictions   int              `json:"total_predictions"`
	Reviewed           int              `json:"reviewed"`
	Pending            int              `json:"pending"`
	PredictionsByType  []Count          `json:"predictions_by_type"`
	RecentPredictions  []PredictionView `json:"recent_predictions"`
}

// PredictionView は一覧表示用の予測ビューモデル。
// UserEmailはusersスナップショットとの突合で解決される。
type PredictionView struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	UserEmail     string    `json:"user_email"`
	CropType      string    `json:"crop_type"`
	Confidence    float64   `json:"confidence"`
	Result        string    `json:"result"`
	Timestamp     time.Time `json:"timestamp"`
	ExpertComment string    `json:"expert_comment"`
	Reviewed      bool      `json:"reviewed"`
}

// UserView はユーザー一覧用のビューモデル。予測件数が付与される。
type UserView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Predictions int       `json:"predictions"`
	CreatedAt   time.Time `json:"created_at"`
}

// PredictionsPage は管理側の予測一覧ビューモデル（一覧 + 月次トレンド）。
type PredictionsPage struct {
	Predictions []PredictionView `json:"predictions"`
	Trend       []TrendPoint     `json:"trend"`
}

// BuildAdminOverview は管理ダッシュボード概要を導出する。
func BuildAdminOverview(users []*model.User, predictions []*model.Prediction) AdminOverview {
	return AdminOverview{
		TotalUsers:        len(users),
		UserRoles:         RoleDistribution(users),
		TotalPredictions:  len(predictions),
		PredictionsByType: CropDistribution(predictions),
	}
}

// BuildExpertOverview は専門家ダッシュボード概要を導出する。
// recentLimitはタイムスタンプ降順で含める直近予測の件数。
func BuildExpertOverview(users []*model.User, predictions []*model.Prediction, recentLimit int) ExpertOverview {
	split := ComputeReviewSplit(predictions)
	return ExpertOverview{
		TotalPredictions:  split.Total,
		Reviewed:          split.Reviewed,
		Pending:           split.Pending,
		PredictionsByType: CropDistribution(predictions),
		RecentPredictions: BuildPredictionViews(users, RecentPredictions(predictions, recentLimit)),
	}
}

// BuildPredictionViews は予測にユーザーメールを突合したビューモデル列を返す。
// ユーザーが見つからない予測はメール"Unknown User"として含める（除外しない）。
func BuildPredictionViews(users []*model.User, predictions []*model.Prediction) []PredictionView {
	emails := make(map[string]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	views := make([]PredictionView, 0, len(predictions))
	for _, p := range predictions {
		email, ok := emails[p.UserID]
		if !ok || email == "" {
			email = "Unknown User"
		}
		views = append(views, PredictionView{
			ID:            p.ID,
			UserID:        p.UserID,
			UserEmail:     email,
			CropType:      p.CropType,
			Confidence:    p.Confidence,
			Result:        p.Result,
			Timestamp:     p.Timestamp,
			ExpertComment: p.ExpertComment,
			Reviewed:      p.Reviewed(),
		})
	}
	return views
}

// BuildPredictionsPage は管理側の予測一覧（降順ソート + 月次トレンド）を導出する。
func BuildPredictionsPage(users []*model.User, predictions []*model.Prediction, now time.Time, trendMonths int) PredictionsPage {
	return PredictionsPage{
		Predictions: BuildPredictionViews(users, SortByTimestampDesc(predictions)),
		Trend:       MonthlyTrend(predictions, now, trendMonths),
	}
}

// BuildUserViews はユーザー一覧に予測件数を付与したビューモデル列を返す。
// 予測0件のユーザーも件数0で含まれる。
func BuildUserViews(users []*model.User, predictions []*model.Prediction) []UserView {
	counts := PredictionCountsByUser(users, predictions)

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{
			ID:          u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Role:        string(u.Role),
			Predictions: counts[u.ID],
			CreatedAt:   u.CreatedAt,
		})
	}
	return views
}
