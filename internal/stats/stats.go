// Package stats はレコードスナップショットから表示用ビューモデルを導出する。
//
// すべての関数は純粋・決定的で副作用を持たない。同じレコード集合に対しては
// 入力順序に関わらず同じ結果を返す（MonthlyTrendの出力順序のみ年月昇順という
// 明示的な契約を持つ）。ビューモデルは永続化されず、スナップショット取得の
// たびに再計算される。
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/cropview/internal/model"
)

// Count は(名前, 件数)の集計ペア。グラフの1要素に対応する。
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TrendPoint は月次トレンドの1バケット。
// Keyは year*12 + month で、年境界をまたぐバケットの順序付けに使う。
type TrendPoint struct {
	Label string `json:"name"` // "M/YYYY" 形式（例: "3/2026"）
	Count int    `json:"count"`
	key   int
}

// ReviewSplit はレビュー済み/未レビューの内訳。
type ReviewSplit struct {
	Total    int `json:"total"`
	Reviewed int `json:"reviewed"`
	Pending  int `json:"pending"`
}

// RoleDistribution はユーザーをロール別に集計する。
// ロール欠損はリポジトリ境界でfarmerに正規化済みだが、直接構築された
// 入力に対しても同じ規則を適用する。出現順（first-seen order）を保持する。
func RoleDistribution(users []*model.User) []Count {
	return distribute(len(users), func(i int) string {
		return string(model.NormalizeRole(string(users[i].Role)))
	})
}

// CropDistribution は予測を作物種別に集計する。出現順を保持する。
func CropDistribution(predictions []*model.Prediction) []Count {
	return distribute(len(predictions), func(i int) string {
		if predictions[i].CropType == "" {
			return model.DefaultCropType
		}
		return predictions[i].CropType
	})
}

// distribute はキー関数に基づくグループ集計。出現順を保持する。
func distribute(n int, keyOf func(i int) string) []Count {
	counts := make(map[string]int, n)
	var order []string

	for i := 0; i < n; i++ {
		key := keyOf(i)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	result := make([]Count, 0, len(order))
	for _, key := range order {
		result = append(result, Count{Name: key, Value: counts[key]})
	}
	return result
}

// MonthlyTrend は直近months暦月分の予測を(月, 年)バケットに集計する。
// now - months暦月 より古い予測は除外する。
// 出力は year*12+month の複合キーで昇順にソートされる。
// このキーが年境界をまたぐバケットのタイブレークルール。
func MonthlyTrend(predictions []*model.Prediction, now time.Time, months int) []TrendPoint {
	cutoff := now.AddDate(0, -months, 0)

	buckets := make(map[int]*TrendPoint)
	for _, p := range predictions {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		year, month := p.Timestamp.Year(), int(p.Timestamp.Month())
		key := year*12 + month
		if b, ok := buckets[key]; ok {
			b.Count++
			continue
		}
		buckets[key] = &TrendPoint{
			Label: fmt.Sprintf("%d/%d", month, year),
			Count: 1,
			key:   key,
		}
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, *b)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].key < points[j].key
	})
	return points
}

// ComputeReviewSplit はレビュー済み/未レビューの件数を集計する。
// 空白のみでないexpert_commentの存在がレビュー済みの唯一の判定基準。
// 常に Reviewed + Pending == Total が成り立つ。
func ComputeReviewSplit(predictions []*model.Prediction) ReviewSplit {
	split := ReviewSplit{Total: len(predictions)}
	for _, p := range predictions {
		if p.Reviewed() {
			split.Reviewed++
		}
	}
	split.Pending = split.Total - split.Reviewed
	return split
}

// PredictionCountsByUser はユーザーごとの予測件数を返す。
// 予測が1件もないユーザーも件数0で必ず含まれる（省略しない）。
func PredictionCountsByUser(users []*model.User, predictions []*model.Prediction) map[string]int {
	counts := make(map[string]int, len(users))
	for _, u := range users {
		counts[u.ID] = 0
	}
	for _, p := range predictions {
		if p.UserID == "" {
			continue
		}
		counts[p.UserID]++
	}
	return counts
}

// SortByTimestampDesc は予測のコピーをタイムスタンプ降順で返す。
// 入力スライスは変更しない。
func SortByTimestampDesc(predictions []*model.Prediction) []*model.Prediction {
	sorted := make([]*model.Prediction, len(predictions))
	copy(sorted, predictions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}

// RecentPredictions はタイムスタンプ降順の先頭n件を返す。
func RecentPredictions(predictions []*model.Prediction, n int) []*model.Prediction {
	sorted := SortByTimestampDesc(predictions)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
