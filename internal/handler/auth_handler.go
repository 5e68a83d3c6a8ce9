package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/cropview/internal/access"
	"github.com/hitoshi/cropview/internal/metrics"
	"github.com/hitoshi/cropview/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignIn は資格情報とロール要求を検証し、セッションを発行する。
	SignIn(ctx context.Context, email, password string, expectedRole model.Role) (*model.Session, error)
	// SignOut はセッションを破棄する。
	SignOut(ctx context.Context, sessionID string) error
	// CurrentUser はセッションから現在のユーザーを解決する。
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	// Subscribe はアイデンティティ変化イベントの購読を開始する。
	Subscribe() (<-chan model.IdentityEvent, func())
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	config    AuthHandlerConfig
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		collector: collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse は認証済みユーザーのレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login は管理ダッシュボードへのログインを処理する。
// POST /auth/login
// 認証成功後、ユーザーのロールがadminでなければセッションを発行せず403を返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleAdmin, access.AdminLoginPath)
}

// ExpertLogin は専門家ダッシュボードへのログインを処理する。
// POST /auth/expert-login
func (h *AuthHandler) ExpertLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleExpert, access.ExpertLoginPath)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, expectedRole model.Role, loginPath string) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "メールアドレスとパスワードを指定してください。",
		})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "メールアドレスとパスワードは必須です。",
			Category: "validation",
			Action:   "入力内容を確認してください。",
		})
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password, expectedRole)
	if err != nil {
		h.collector.RecordLoginFailure(loginFailureReason(err))
		// ロール不一致はログイン画面へのリダイレクト先を含めて返す
		var apiErr *model.APIError
		if ok := asAPIError(err, &apiErr); ok && apiErr.Code == model.ErrCodeAccessDenied {
			writeRedirectErrorResponse(w, http.StatusForbidden, apiErr, loginPath)
			return
		}
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	h.collector.RecordLoginSuccess(string(session.Role))

	user, err := h.service.CurrentUser(r.Context(), session.ID)
	if err != nil {
		slog.Error("failed to resolve user after sign-in", slog.String("error", err.Error()))
		writeJSONResponse(w, http.StatusOK, userResponse{ID: session.UserID, Role: string(session.Role)})
		return
	}

	writeJSONResponse(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to resolve current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSONResponse(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
}

// identityEventPayload はSSEで配信するイベントのボディ。
type identityEventPayload struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Events はアイデンティティ変化イベントをServer-Sent Eventsで配信する。
// GET /auth/events
// 有効なセッションが必須で、配信されるのは接続ユーザー自身のイベントのみ。
// 他ユーザーのサインイン/サインアウトは購読者に漏れない。
// クライアントはサインアウトイベントを受信したらログイン画面へ遷移する。
// 接続ごとにハブの購読者が1つ増え、切断時に解除される。
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to resolve user for event stream", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			// ハブは全ユーザーのイベントをファンアウトするため、
			// 接続ユーザー以外のイベントはここで落とす
			if event.UserID != user.ID {
				continue
			}
			payload, err := json.Marshal(identityEventPayload{
				Type:       string(event.Type),
				UserID:     event.UserID,
				Role:       string(event.Role),
				OccurredAt: event.OccurredAt,
			})
			if err != nil {
				slog.Error("failed to encode identity event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

// setSessionCookie はセッションCookieを設定またはクリアする。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// loginFailureReason はログイン失敗エラーをメトリクス用の低カーディナリティな理由に分類する。
func loginFailureReason(err error) string {
	var apiErr *model.APIError
	if asAPIError(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeAuthFailed:
			return "auth_failed"
		case model.ErrCodeAccessDenied:
			return "access_denied"
		case model.ErrCodeUserNotFound:
			return "user_not_found"
		}
	}
	return "internal"
}
