// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// 欠損フィールドのデフォルト値。
// リポジトリ境界で一度だけ適用し、集計側では再適用しない。
const (
	// DefaultCropType はcrop_type欠損時のデフォルト値。
	DefaultCropType = "Unknown"
	// DefaultResult はresult欠損時のデフォルト値。
	DefaultResult = "No result"
	// DefaultUserName はname欠損時の表示用デフォルト値。
	DefaultUserName = "N/A"
)

// Prediction は作物予測レコードを表す。
// 外部の予測サービスが書き込み、本サービスでは専門家コメントのみを更新する。
type Prediction struct {
	ID            string
	UserID        string
	CropType      string
	Confidence    float64 // [0, 1]
	Result        string
	Timestamp     time.Time
	ExpertComment string // 空文字列 = 未レビュー
}

// Reviewed はこの予測がレビュー済みかどうかを返す。
// 空白のみでない専門家コメントの存在がレビュー済みの唯一の判定基準。
// 別のステータスフィールドは存在しないため、コメントを書き込む側は
// この規約を維持しなければならない。
func (p *Prediction) Reviewed() bool {
	return strings.TrimSpace(p.ExpertComment) != ""
}
