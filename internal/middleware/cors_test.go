package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- テスト ---

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	rec := httptest.NewRecorder()

	NewCORSMiddleware("https://example.com")(next).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("unexpected Allow-Origin: %s", got)
	}
	// セッションCookieと共存するためワイルドカードは使わない
	if rec.Header().Get("Access-Control-Allow-Origin") == "*" {
		t.Error("wildcard origin must not be used with credentials")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("unexpected Allow-Credentials: %s", got)
	}
}

func TestCORSMiddleware_PreflightReturns204(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for preflight requests")
	})

	req := httptest.NewRequest(http.MethodOptions, "/submit", nil)
	rec := httptest.NewRecorder()

	NewCORSMiddleware("https://example.com")(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}
