// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーのアクセス区分を表す。
type Role string

const (
	// RoleAdmin は管理ダッシュボードへのアクセスを許可するロール。
	RoleAdmin Role = "admin"
	// RoleExpert は専門家ダッシュボードへのアクセスを許可するロール。
	RoleExpert Role = "expert"
	// RoleFarmer は一般利用者（予測の投稿者）のロール。
	// ロールが未設定・不明な場合の安全なデフォルト値でもある。
	RoleFarmer Role = "farmer"
)

// NormalizeRole はロール文字列を検証し、既知のロールのみを返す。
// 空文字列や未知のロールはRoleFarmerに正規化する。
// ロール解決の失敗が昇格につながらないことを保証する唯一の正規化点。
func NormalizeRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleExpert, RoleFarmer:
		return Role(s)
	default:
		return RoleFarmer
	}
}

// User はサービス利用ユーザーを表す。
// 外部の登録フローで作成され、本サービスからは読み取り専用。
// Roleはusersコレクションから解決される派生属性で、
// 欠損時はリポジトリ境界でRoleFarmerに正規化される。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Credential はパスワード認証用の資格情報を表す。
// PasswordHashはbcryptハッシュ。Userとは別に扱い、APIレスポンスには含めない。
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IdentityEventType はアイデンティティ変化イベントの種別。
type IdentityEventType string

const (
	// IdentitySignedIn はサインイン成功を示す。
	IdentitySignedIn IdentityEventType = "signed_in"
	// IdentitySignedOut はサインアウト（強制サインアウト含む）を示す。
	IdentitySignedOut IdentityEventType = "signed_out"
)

// IdentityEvent はサインイン/サインアウトの通知イベント。
// 認証サービスの単一の配信ハブからローカル購読者へファンアウトされる。
type IdentityEvent struct {
	Type       IdentityEventType
	UserID     string
	Role       Role
	OccurredAt time.Time
}
