package stats

import (
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/cropview/internal/model"
)

func user(id string, role model.Role) *model.User {
	return &model.User{ID: id, Email: id + "@example.com", Role: role}
}

func prediction(id, userID, crop string, ts time.Time, comment string) *model.Prediction {
	return &model.Prediction{
		ID:            id,
		UserID:        userID,
		CropType:      crop,
		Timestamp:     ts,
		ExpertComment: comment,
	}
}

// --- RoleDistribution ---

func TestRoleDistribution_GroupsInFirstSeenOrder(t *testing.T) {
	users := []*model.User{
		user("u1", model.RoleFarmer),
		user("u2", model.RoleAdmin),
		user("u3", model.RoleFarmer),
		user("u4", model.RoleExpert),
		user("u5", model.RoleFarmer),
	}

	got := RoleDistribution(users)
	want := []Count{
		{Name: "farmer", Value: 3},
		{Name: "admin", Value: 1},
		{Name: "expert", Value: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RoleDistribution = %v, want %v", got, want)
	}
}

func TestRoleDistribution_UnknownRoleCountsAsFarmer(t *testing.T) {
	users := []*model.User{
		user("u1", "mystery"),
		user("u2", model.RoleFarmer),
	}

	got := RoleDistribution(users)
	want := []Count{{Name: "farmer", Value: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RoleDistribution = %v, want %v", got, want)
	}
}

// ロール別件数の合計がユーザー総数と一致すること
func TestRoleDistribution_SumEqualsTotal(t *testing.T) {
	users := []*model.User{
		user("u1", model.RoleAdmin),
		user("u2", model.RoleExpert),
		user("u3", "weird"),
		user("u4", model.RoleFarmer),
		user("u5", model.RoleFarmer),
	}

	sum := 0
	for _, c := range RoleDistribution(users) {
		sum += c.Value
	}
	if sum != len(users) {
		t.Errorf("sum of role counts = %d, want %d", sum, len(users))
	}
}

// --- CropDistribution ---

// 仕様シナリオ: [wheat, wheat, corn] → [{wheat:2},{corn:1}]（出現順）
func TestCropDistribution_FirstSeenOrder(t *testing.T) {
	now := time.Now()
	predictions := []*model.Prediction{
		prediction("p1", "u1", "wheat", now, ""),
		prediction("p2", "u1", "wheat", now, ""),
		prediction("p3", "u2", "corn", now, ""),
	}

	got := CropDistribution(predictions)
	want := []Count{
		{Name: "wheat", Value: 2},
		{Name: "corn", Value: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CropDistribution = %v, want %v", got, want)
	}
}

func TestCropDistribution_SumEqualsTotal(t *testing.T) {
	now := time.Now()
	predictions := []*model.Prediction{
		prediction("p1", "u1", "wheat", now, ""),
		prediction("p2", "u1", "", now, ""),
		prediction("p3", "u2", "rice", now, ""),
		prediction("p4", "u3", "corn", now, ""),
	}

	sum := 0
	for _, c := range CropDistribution(predictions) {
		sum += c.Value
	}
	if sum != len(predictions) {
		t.Errorf("sum of crop counts = %d, want %d", sum, len(predictions))
	}
}

func TestCropDistribution_EmptyCropDefaultsToUnknown(t *testing.T) {
	predictions := []*model.Prediction{
		prediction("p1", "u1", "", time.Now(), ""),
	}

	got := CropDistribution(predictions)
	if len(got) != 1 || got[0].Name != model.DefaultCropType {
		t.Errorf("CropDistribution = %v, want [{%s 1}]", got, model.DefaultCropType)
	}
}

// --- MonthlyTrend ---

func TestMonthlyTrend_FiltersOlderThanCutoff(t *testing.T) {
	now := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	predictions := []*model.Prediction{
		prediction("p1", "u1", "wheat", now.AddDate(0, 0, -10), ""),  // 含む
		prediction("p2", "u1", "wheat", now.AddDate(0, -7, 0), ""),   // 6ヶ月より古い
		prediction("p3", "u1", "wheat", now.AddDate(-1, 0, 0), ""),   // 1年前
	}

	got := MonthlyTrend(predictions, now, 6)
	total := 0
	for _, p := range got {
		total += p.Count
	}
	if total != 1 {
		t.Errorf("trend total = %d, want 1 (older predictions must be excluded)", total)
	}
}

// 年境界をまたぐバケットが year*12+month キーで昇順に並ぶこと
func TestMonthlyTrend_ChronologicalAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	predictions := []*model.Prediction{
		prediction("p1", "u1", "wheat", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), ""),
		prediction("p2", "u1", "wheat", time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC), ""),
		prediction("p3", "u1", "wheat", time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC), ""),
		prediction("p4", "u1", "wheat", time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC), ""),
	}

	got := MonthlyTrend(predictions, now, 6)

	wantLabels := []string{"11/2025", "12/2025", "1/2026", "2/2026"}
	if len(got) != len(wantLabels) {
		t.Fatalf("len(trend) = %d, want %d: %v", len(got), len(wantLabels), got)
	}
	for i, want := range wantLabels {
		if got[i].Label != want {
			t.Errorf("trend[%d].Label = %q, want %q", i, got[i].Label, want)
		}
	}
}

// 出力キーが厳密に非減少（実際には増加）であること
func TestMonthlyTrend_OutputStrictlyOrdered(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	var predictions []*model.Prediction
	for m := 0; m < 6; m++ {
		ts := now.AddDate(0, -m, 0)
		predictions = append(predictions, prediction("p", "u1", "wheat", ts, ""))
	}

	got := MonthlyTrend(predictions, now, 6)
	for i := 1; i < len(got); i++ {
		if got[i].key <= got[i-1].key {
			t.Errorf("trend keys not strictly increasing at %d: %d <= %d", i, got[i].key, got[i-1].key)
		}
	}
}

// 入力順序に依存しないこと
func TestMonthlyTrend_OrderIndependent(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	a := prediction("p1", "u1", "wheat", now.AddDate(0, -1, 0), "")
	b := prediction("p2", "u1", "wheat", now.AddDate(0, -2, 0), "")
	c := prediction("p3", "u1", "wheat", now.AddDate(0, -1, 0), "")

	got1 := MonthlyTrend([]*model.Prediction{a, b, c}, now, 6)
	got2 := MonthlyTrend([]*model.Prediction{c, a, b}, now, 6)
	if !reflect.DeepEqual(got1, got2) {
		t.Errorf("MonthlyTrend depends on input order: %v != %v", got1, got2)
	}
}

// --- ComputeReviewSplit ---

// すべての入力で reviewed + pending == total が成り立つこと
func TestComputeReviewSplit_Invariant(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		predictions []*model.Prediction
		reviewed    int
	}{
		{"空", nil, 0},
		{"全件未レビュー", []*model.Prediction{
			prediction("p1", "u1", "wheat", now, ""),
			prediction("p2", "u1", "corn", now, "   "),
		}, 0},
		{"混在", []*model.Prediction{
			prediction("p1", "u1", "wheat", now, "looks healthy"),
			prediction("p2", "u1", "corn", now, ""),
			prediction("p3", "u2", "rice", now, "病害の兆候あり"),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := ComputeReviewSplit(tt.predictions)
			if split.Reviewed != tt.reviewed {
				t.Errorf("Reviewed = %d, want %d", split.Reviewed, tt.reviewed)
			}
			if split.Reviewed+split.Pending != split.Total {
				t.Errorf("reviewed(%d) + pending(%d) != total(%d)", split.Reviewed, split.Pending, split.Total)
			}
			if split.Total != len(tt.predictions) {
				t.Errorf("Total = %d, want %d", split.Total, len(tt.predictions))
			}
		})
	}
}

// --- PredictionCountsByUser ---

// 予測0件のユーザーが件数0で含まれること（省略されない）
func TestPredictionCountsByUser_IncludesZeroPredictionUsers(t *testing.T) {
	users := []*model.User{
		user("u1", model.RoleFarmer),
		user("u2", model.RoleFarmer),
	}
	predictions := []*model.Prediction{
		prediction("p1", "u1", "wheat", time.Now(), ""),
		prediction("p2", "u1", "corn", time.Now(), ""),
	}

	got := PredictionCountsByUser(users, predictions)
	if got["u1"] != 2 {
		t.Errorf("counts[u1] = %d, want 2", got["u1"])
	}
	count, ok := got["u2"]
	if !ok {
		t.Fatal("zero-prediction user u2 must be present in counts")
	}
	if count != 0 {
		t.Errorf("counts[u2] = %d, want 0", count)
	}
}

func TestPredictionCountsByUser_IgnoresEmptyUserID(t *testing.T) {
	users := []*model.User{user("u1", model.RoleFarmer)}
	predictions := []*model.Prediction{
		prediction("p1", "", "wheat", time.Now(), ""),
	}

	got := PredictionCountsByUser(users, predictions)
	if got["u1"] != 0 {
		t.Errorf("counts[u1] = %d, want 0", got["u1"])
	}
	if _, ok := got[""]; ok {
		t.Error("empty user ID should not appear in counts")
	}
}

// --- RecentPredictions ---

func TestRecentPredictions_DescendingAndLimited(t *testing.T) {
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	var predictions []*model.Prediction
	for i := 0; i < 8; i++ {
		predictions = append(predictions, prediction(
			"p"+string(rune('a'+i)), "u1", "wheat", base.AddDate(0, 0, i), "",
		))
	}

	got := RecentPredictions(predictions, 5)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("recent predictions not in descending order at %d", i)
		}
	}
	if !got[0].Timestamp.Equal(base.AddDate(0, 0, 7)) {
		t.Errorf("first recent prediction should be the newest")
	}
}

func TestSortByTimestampDesc_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	predictions := []*model.Prediction{
		prediction("old", "u1", "wheat", now.AddDate(0, 0, -2), ""),
		prediction("new", "u1", "wheat", now, ""),
	}

	SortByTimestampDesc(predictions)
	if predictions[0].ID != "old" {
		t.Error("input slice should not be mutated")
	}
}

// --- 冪等性 ---

// 同一スナップショットに対する再実行が同一の結果を返すこと
func TestAggregations_Idempotent(t *testing.T) {
	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	users := []*model.User{
		user("u1", model.RoleAdmin),
		user("u2", model.RoleFarmer),
		user("u3", model.RoleExpert),
	}
	predictions := []*model.Prediction{
		prediction("p1", "u2", "wheat", now.AddDate(0, -1, 0), "reviewed"),
		prediction("p2", "u2", "corn", now.AddDate(0, -2, 0), ""),
		prediction("p3", "u3", "wheat", now.AddDate(0, -3, 0), ""),
	}

	if !reflect.DeepEqual(RoleDistribution(users), RoleDistribution(users)) {
		t.Error("RoleDistribution is not idempotent")
	}
	if !reflect.DeepEqual(CropDistribution(predictions), CropDistribution(predictions)) {
		t.Error("CropDistribution is not idempotent")
	}
	if !reflect.DeepEqual(MonthlyTrend(predictions, now, 6), MonthlyTrend(predictions, now, 6)) {
		t.Error("MonthlyTrend is not idempotent")
	}
	if ComputeReviewSplit(predictions) != ComputeReviewSplit(predictions) {
		t.Error("ComputeReviewSplit is not idempotent")
	}
	if !reflect.DeepEqual(
		PredictionCountsByUser(users, predictions),
		PredictionCountsByUser(users, predictions),
	) {
		t.Error("PredictionCountsByUser is not idempotent")
	}
}
