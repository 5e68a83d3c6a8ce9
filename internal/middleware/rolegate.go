package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/cropview/internal/access"
	"github.com/hitoshi/cropview/internal/model"
)

// NewRoleGateMiddleware は指定領域へのアクセスをロールで制限するミドルウェアを返す。
// セッションミドルウェアの後段に配置する。
//
// 判定はaccess.Evaluateに委譲する。未認証は401、認証済みでロール不一致は403を
// 返し、いずれもレスポンスボディのredirect_toに領域のログイン画面パスを含める。
// サーバー側はセッション解決が同期的に完了するため、Pending判定は発生しない。
func NewRoleGateMiddleware(area access.Area) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, authenticated := RoleFromContext(r.Context())

			decision := access.Evaluate(authenticated, role, area, false)
			if decision.Kind == access.DecisionAllow {
				next.ServeHTTP(w, r)
				return
			}

			if !authenticated {
				WriteRedirectErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError(), decision.RedirectTo)
				return
			}

			slog.Warn("access denied by role gate",
				slog.String("area", string(area)),
				slog.String("role", string(role)),
				slog.String("path", r.URL.Path),
			)
			WriteRedirectErrorResponse(w, http.StatusForbidden,
				model.NewAccessDeniedError(access.RequiredRole(area)), decision.RedirectTo)
		})
	}
}
