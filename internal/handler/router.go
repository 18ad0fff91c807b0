package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/secretbox/internal/metrics"
	"github.com/hitoshi/secretbox/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま実装している。
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
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics AuthMetrics
	AuthConfig  AuthHandlerConfig

	// シークレット
	SecretService SecretServiceInterface
	SecretMetrics SecretMetrics

	// メトリクス公開
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → SessionRestore → CSRF
//
// セッション復元は全ルートに適用され、匿名リクエストをエラーにしない。
// 認可（認証必須の判定）はRequireAuthミドルウェアでルートグループごとに行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSessionRestoreMiddleware(deps.SessionFinder))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics, deps.AuthConfig)
	secretHandler := NewSecretHandler(deps.SecretService, deps.SecretMetrics)

	// --- 認証不要のルート ---

	r.Get("/", homeHandler)
	r.Get("/secrets", secretHandler.ListSecrets)
	r.Get("/health", healthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// ログイン・登録・OAuthフロー（IPごとのレート制限付き）
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AuthAttemptMiddleware())
		}

		r.Get("/register", authHandler.RegisterForm)
		r.Post("/register", authHandler.Register)
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/auth/google", authHandler.GoogleLogin)
		r.Get("/auth/google/secrets", authHandler.GoogleCallback)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: RequireAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAuthMiddleware("/login"))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/submit", secretHandler.SubmitForm)
		r.Post("/submit", secretHandler.Submit)
		r.Get("/logout", authHandler.Logout)
	})

	return r
}

// homeHandler はサービスのトップページ記述子を返す。
// 認証済みの場合はPrincipalのユーザー名を含める。
func homeHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"service": "secretbox",
	}
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		body["username"] = principal.Username
		body["authenticated"] = true
	} else {
		body["authenticated"] = false
	}
	writeJSON(w, http.StatusOK, body)
}

// healthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if checker == nil || checker.PingContext(ctx) != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
