package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cropview/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。RedirectToはアクセス拒否時の誘導先
// （ログイン画面パス）で、該当しない場合は省略される。
type ErrorResponseBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeErrorBody(w, statusCode, apiErr, "")
}

// WriteRedirectErrorResponse はアクセス拒否時のエラーレスポンスを書き込む。
// クライアントはredirect_toのログイン画面へ遷移する。
func WriteRedirectErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError, redirectTo string) {
	writeErrorBody(w, statusCode, apiErr, redirectTo)
}

func writeErrorBody(w http.ResponseWriter, statusCode int, apiErr *model.APIError, redirectTo string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:       apiErr.Code,
		Message:    apiErr.Message,
		Category:   apiErr.Category,
		Action:     apiErr.Action,
		RedirectTo: redirectTo,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
