// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePredictionNotFound = "PREDICTION_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTransient          = "TRANSIENT_ERROR"
)

// NewAuthFailedError は認証失敗（メールアドレスまたはパスワード不正）エラーを生成する。
// どちらが誤っていたかは意図的に区別しない。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAccessDeniedError はロール不一致によるアクセス拒否エラーを生成する。
// 認証の成功だけでは認可として不十分な場合に使用する。
func NewAccessDeniedError(required Role) *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  fmt.Sprintf("このダッシュボードには %s ロールのアカウントのみアクセスできます。", required),
		Category: "auth",
		Action:   "適切な権限を持つアカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewEmptyCommentError は空コメント送信時のバリデーションエラーを生成する。
func NewEmptyCommentError() *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "コメントが空です。",
		Category: "validation",
		Action:   "コメントを入力してから保存してください。",
	}
}

// NewNoSelectionError はレビュー対象未選択のまま保存が要求された場合のエラーを生成する。
func NewNoSelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "レビュー対象の予測が選択されていません。",
		Category: "validation",
		Action:   "予測を選択してから保存してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPredictionNotFoundError は予測レコードが見つからない場合のエラーを生成する。
func NewPredictionNotFoundError(predictionID string) *APIError {
	return &APIError{
		Code:     ErrCodePredictionNotFound,
		Message:  fmt.Sprintf("指定された予測が見つかりません: %s", predictionID),
		Category: "validation",
		Action:   "予測IDを確認してください。",
	}
}

// NewTransientError はバックエンド一時障害のエラーを生成する。
// リトライで解消する可能性があることを利用者に伝える。
func NewTransientError() *APIError {
	return &APIError{
		Code:     ErrCodeTransient,
		Message:  "バックエンドとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
