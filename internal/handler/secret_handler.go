package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/secretbox/internal/middleware"
	"github.com/hitoshi/secretbox/internal/model"
)

// SecretServiceInterface はシークレットハンドラーが必要とするサービスインターフェース。
type SecretServiceInterface interface {
	Submit(ctx context.Context, userID, text string) error
	ListShared(ctx context.Context) ([]model.SharedSecret, error)
}

// SecretMetrics はシークレット投稿のメトリクス記録インターフェース。
type SecretMetrics interface {
	RecordSecretSubmitted()
}

// SecretHandler はシークレットの投稿と公開一覧のHTTPハンドラー。
type SecretHandler struct {
	service SecretServiceInterface
	metrics SecretMetrics // nilの場合は記録しない
}

// NewSecretHandler はSecretHandlerを生成する。
func NewSecretHandler(service SecretServiceInterface, metrics SecretMetrics) *SecretHandler {
	return &SecretHandler{
		service: service,
		metrics: metrics,
	}
}

// ListSecrets は投稿済みの全シークレットを返す。
// GET /secrets
// 認証不要の公開一覧。投稿者は特定できない。
func (h *SecretHandler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	shared, err := h.service.ListShared(r.Context())
	if err != nil {
		slog.Error("failed to list secrets", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	secrets := make([]string, 0, len(shared))
	for _, s := range shared {
		secrets = append(secrets, s.Secret)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"secrets": secrets,
	})
}

// SubmitForm は投稿フォームの記述子を返す。
// GET /submit（認証必須）
func (h *SecretHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":   "submit",
		"action": "/submit",
		"fields": []string{"secret"},
	})
}

// Submit は呼び出し元ユーザーのシークレットを上書きする。
// POST /submit（認証必須）
// 成功時は/secretsへリダイレクトする。
func (h *SecretHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		// RequireAuthミドルウェアの後に配置されるため通常は到達しない
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	if err := h.service.Submit(r.Context(), principal.ID, r.PostFormValue("secret")); err != nil {
		slog.Error("failed to submit secret",
			slog.String("error", err.Error()),
			slog.String("user_id", principal.ID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSecretSubmitted()
	}

	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
