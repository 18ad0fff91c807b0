// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secretbox/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにPrincipalを格納するためのキー。
var principalContextKey = contextKey("principal")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionRestoreMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効であればPrincipalをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない・無効・期限切れの場合は匿名リクエストとしてそのまま通過させる。
// 未認証はエラーではないため、ここでは拒否しない。
// ストア障害は匿名扱いにせず、対象リクエストのみ汎用エラーで失敗させる。
// ログイン済みユーザーを障害中にログインページへ誘導しないため。
func NewSessionRestoreMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to restore session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), session.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAuthMiddleware は認証済みPrincipalを必須とするミドルウェアを返す。
// 匿名リクエストはログインページへリダイレクトする。
// NewSessionRestoreMiddlewareの後に配置すること。
func NewRequireAuthMiddleware(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからPrincipalを取得する。
// セッション復元ミドルウェアを通過した認証済みリクエストでのみtrueを返す。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || principal.ID == "" {
		return model.Principal{}, false
	}
	return principal, true
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
