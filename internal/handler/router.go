package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cropview/internal/access"
	"github.com/hitoshi/cropview/internal/metrics"
	"github.com/hitoshi/cropview/internal/middleware"
	"github.com/hitoshi/cropview/internal/model"
	"github.com/hitoshi/cropview/internal/notify"
	"github.com/hitoshi/cropview/internal/review"
)

// HealthChecker はヘルスチェックに必要なインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ダッシュボード・一覧
	Snapshots       SnapshotFetcher
	DashboardConfig DashboardHandlerConfig

	// 予測・レビュー
	Predictions      PredictionReader
	Sanitizer        review.Sanitizer
	PredictionConfig PredictionHandlerConfig

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// Webhook
	Notifier notify.WebhookNotifier
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → CSRF → Session → RoleGate → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはロールゲートの外に配置する。
// 管理系（/api/dashboard, /api/users, /api/predictions）はadminロール、
// 専門家系（/api/expert/*）はexpertロールのみがアクセスできる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(statusMetrics(deps.Collector))

	// 未定義ルートも統一エラーフォーマットで返す
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "指定されたリソースが見つかりません。",
			Category: "routing",
			Action:   "リクエストURLを確認してください。",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
			Code:     "METHOD_NOT_ALLOWED",
			Message:  "このメソッドは許可されていません。",
			Category: "routing",
			Action:   "HTTPメソッドを確認してください。",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Collector)
	dashboardHandler := NewDashboardHandler(deps.Snapshots, deps.DashboardConfig)
	userHandler := NewUserHandler(deps.Snapshots)
	predictionHandler := NewPredictionHandler(
		deps.Snapshots, deps.Predictions, deps.Sanitizer,
		deps.Notifier, deps.Collector, deps.PredictionConfig,
	)

	// --- 認証不要のルート ---

	// ヘルスチェックと監視
	r.Get("/health", healthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（ログインは総当たり対策のIPレート制限付き）
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/expert-login", authHandler.ExpertLogin)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Get("/events", authHandler.Events)
	})

	// --- 管理ダッシュボード（adminロール限定） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(gateWithMetrics(access.AreaAdminDashboard, deps.Collector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/dashboard", dashboardHandler.AdminDashboard)
		r.Get("/api/users", userHandler.ListUsers)
		r.Get("/api/predictions", predictionHandler.ListPredictions)
	})

	// --- 専門家ダッシュボード（expertロール限定） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(gateWithMetrics(access.AreaExpertDashboard, deps.Collector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/expert", func(r chi.Router) {
			r.Get("/dashboard", dashboardHandler.ExpertDashboard)
			r.Get("/predictions", predictionHandler.ListExpertPredictions)
			r.Put("/predictions/{id}/comment", predictionHandler.UpdateComment)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// statusMetrics は全レスポンスのHTTPステータスコードをメトリクスに記録する。
func statusMetrics(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			collector.RecordHTTPStatus(rec.statusCode)
		})
	}
}

// gateWithMetrics はロールゲートにアクセス拒否メトリクスの記録を重ねる。
func gateWithMetrics(area access.Area, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	gate := middleware.NewRoleGateMiddleware(area)
	return func(next http.Handler) http.Handler {
		gated := gate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			gated.ServeHTTP(rec, r)
			if rec.statusCode == http.StatusUnauthorized || rec.statusCode == http.StatusForbidden {
				collector.RecordAccessDenied(string(area))
			}
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Flush はSSEなどのストリーミングレスポンスのためにFlusherへ委譲する。
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
