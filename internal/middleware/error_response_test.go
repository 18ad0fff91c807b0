package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/secretbox/internal/model"
)

// --- テスト ---

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusUnauthorized, model.NewInvalidCredentialsError())

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("unexpected Content-Type: %s", got)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("unexpected code: %s", body.Code)
	}
	if body.Category != "auth" {
		t.Errorf("unexpected category: %s", body.Category)
	}
	if body.Message == "" || body.Action == "" {
		t.Error("message and action should be populated")
	}
}

func TestWriteInternalServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeStoreUnavailable {
		t.Errorf("unexpected code: %s", body.Code)
	}
}
