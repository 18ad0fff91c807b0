// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secretbox/internal/middleware"
	"github.com/hitoshi/secretbox/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password, confirmPassword string) (*model.Session, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthMetrics は認証ハンドラーで発生するプロバイダー連携失敗の
// メトリクス記録インターフェース。metrics.Collectorが実装する。
type AuthMetrics interface {
	RecordProviderFailure(reason string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はローカル認証とGoogle OAuth認証のHTTPハンドラー。
// 成功した認証はすべてセッションCookieの設定と/secretsへの
// リダイレクトで完了する。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics // nilの場合は記録しない
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		config:  config,
	}
}

// RegisterForm は登録フォームの記述子を返す。
// GET /register
// HTMLのレンダリングはフロントエンドの責務とする。
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":   "register",
		"action": "/register",
		"fields": []string{"username", "password", "confirm_password"},
	})
}

// Register はローカルユーザー登録を処理する。
// POST /register
// 成功時はセッションCookieを設定し/secretsへリダイレクトする。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	session, err := h.service.Register(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("password"),
		r.PostFormValue("confirm_password"),
	)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// LoginForm はログインフォームの記述子を返す。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":   "login",
		"action": "/login",
		"fields": []string{"username", "password"},
	})
}

// Login はローカル認証を処理する。
// POST /login
// 成功時はセッションCookieを設定し/secretsへリダイレクトする。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	session, err := h.service.Login(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("password"),
	)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/secrets?code=xxx&state=yyy
// いずれかのステップで失敗した場合は、プロトコルエラーを表示せず
// ログインページへリダイレクトする。詳細はログにのみ残す。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.clearStateCookie(w)

	// 1. ユーザーが同意を拒否した場合、プロバイダーはerrorパラメータ付きで戻す
	if provErr := r.URL.Query().Get("error"); provErr != "" {
		if h.metrics != nil {
			h.metrics.RecordProviderFailure("denied")
		}
		denied := model.NewProviderDeniedError()
		slog.Warn("oauth consent denied",
			slog.String("code", denied.Code),
			slog.String("provider_error", provErr),
		)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// 2. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// 3. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing authorization code")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// 4. コード交換・プロフィール取得・find-or-create・セッション発行
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// 5. セッションCookieを設定し/secretsへ
	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// Logout はセッションを破棄する。
// GET /logout
// セッションが既に無効でも成功し、Cookieをクリアしてホームへ戻す。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// writeAuthError は認証系エラーをHTTPレスポンスへ変換する。
// APIErrorはコードに応じたステータスで返し、
// それ以外（ストア障害など）は詳細を隠した500で返す。
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("auth request failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials:
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
	case model.ErrCodePasswordMismatch, model.ErrCodeUsernameTaken:
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
	default:
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, apiErr)
	}
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearStateCookie はOAuth stateのCookieをクリアする。
func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
