// Package repository はデータ永続化のインターフェースを定義する。
//
// 読み取りは全件スナップショットを返す（ページングなし）。対象ドメインの
// データ量が小さいことを前提とした既知の制限であり、将来のスケール時には
// ページングの導入が必要になる。
// 欠損フィールドのデフォルト適用（role→farmer、crop_type→Unknown等）は
// この境界で一度だけ行い、集計側では再適用しない。
package repository

import (
	"context"

	"github.com/hitoshi/cropview/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// ユーザーレコードは外部の登録フローが作成するため読み取り専用。
type UserRepository interface {
	// ListAll は全ユーザーのスナップショットを返す。
	ListAll(ctx context.Context) ([]*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// CredentialRepository はパスワード認証用の資格情報の取得インターフェース。
type CredentialRepository interface {
	// FindByEmail はメールアドレスで資格情報を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
}

// PredictionRepository は予測データの永続化インターフェース。
type PredictionRepository interface {
	// ListAll は全予測のスナップショットを返す。
	ListAll(ctx context.Context) ([]*model.Prediction, error)

	// FindByID は指定IDの予測を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Prediction, error)

	// UpdateExpertComment は指定予測のexpert_commentのみを更新する。
	// 他のカラムには触れないため、無関係な同時編集を上書きしない。
	// 対象が存在しない場合はPREDICTION_NOT_FOUNDエラーを返す。
	UpdateExpertComment(ctx context.Context, predictionID, comment string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	// 冪等: 削除対象がなくてもエラーにならない。
	DeleteExpired(ctx context.Context) (int64, error)
}
