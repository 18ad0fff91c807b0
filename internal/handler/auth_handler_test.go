package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/secretbox/internal/middleware"
	"github.com/hitoshi/secretbox/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, username, password, confirmPassword string) (*model.Session, error)
	loginFn          func(ctx context.Context, username, password string) (*model.Session, error)
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func (m *mockAuthService) Register(ctx context.Context, username, password, confirmPassword string) (*model.Session, error) {
	return m.registerFn(ctx, username, password, confirmPassword)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	return m.getLoginURLFn(state)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	return m.handleCallbackFn(ctx, code)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFn(ctx, sessionID)
}

type mockAuthMetrics struct {
	providerFailures []string
}

var _ AuthMetrics = (*mockAuthMetrics)(nil)

func (m *mockAuthMetrics) RecordProviderFailure(reason string) {
	m.providerFailures = append(m.providerFailures, reason)
}

func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, nil, AuthHandlerConfig{
		SessionMaxAge: 3600,
	})
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, confirmPassword string) (*model.Session, error) {
			if username != "alice" || password != "pw123" || confirmPassword != "pw123" {
				t.Errorf("unexpected form values: %s %s %s", username, password, confirmPassword)
			}
			return &model.Session{ID: "session-token", UserID: "user-1", Username: "alice"}, nil
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"pw123"}, "confirm_password": {"pw123"}}
	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", form))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/secrets" {
		t.Errorf("expected redirect to /secrets, got %s", got)
	}

	cookie := sessionCookieFrom(t, rec)
	if cookie == nil || cookie.Value != "session-token" {
		t.Fatal("session cookie should be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HTTP Only")
	}
}

func TestAuthHandler_Register_PasswordMismatch(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, confirmPassword string) (*model.Session, error) {
			return nil, model.NewPasswordMismatchError()
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"pw123"}, "confirm_password": {"different"}}
	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
	if sessionCookieFrom(t, rec) != nil {
		t.Error("no session cookie on failure")
	}
}

func TestAuthHandler_Register_UsernameTaken(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, confirmPassword string) (*model.Session, error) {
			return nil, model.NewUsernameTakenError(username)
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"pw123"}, "confirm_password": {"pw123"}}
	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			return &model.Session{ID: "session-token", UserID: "user-1", Username: "alice"}, nil
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"pw123"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", form))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/secrets" {
		t.Errorf("expected redirect to /secrets, got %s", got)
	}
	if cookie := sessionCookieFrom(t, rec); cookie == nil || cookie.Value != "session-token" {
		t.Error("session cookie should be set")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", form))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("unexpected error code: %v", body["code"])
	}
}

func TestAuthHandler_Login_StoreErrorHidesDetails(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			return nil, errors.New("pq: connection refused to 10.0.0.5")
		},
	}
	h := newTestAuthHandler(service)

	form := url.Values{"username": {"alice"}, "password": {"pw123"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", form))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Error("internal error details must not leak into the response")
	}
}

func TestAuthHandler_GoogleLogin_RedirectsToProvider(t *testing.T) {
	var gotState string
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			gotState = state
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	if gotState == "" {
		t.Fatal("state should be generated")
	}

	// state Cookieが払い出され、リダイレクト先のstateと一致する
	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value != gotState {
		t.Error("state cookie should match the redirect state")
	}
	if !strings.Contains(rec.Header().Get("Location"), "state="+gotState) {
		t.Errorf("redirect URL should carry the state: %s", rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_Success(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code" {
				t.Errorf("unexpected code: %s", code)
			}
			return &model.Session{ID: "session-token", UserID: "user-1"}, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?code=auth-code&state=state-token", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-token"})
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/secrets" {
		t.Errorf("expected redirect to /secrets, got %s", got)
	}
	if cookie := sessionCookieFrom(t, rec); cookie == nil || cookie.Value != "session-token" {
		t.Error("session cookie should be set")
	}
}

func TestAuthHandler_GoogleCallback_ConsentDenied(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			t.Error("callback must not exchange a code when consent was denied")
			return nil, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Errorf("denied consent should redirect to /login, got %s", got)
	}
	// プロトコルエラーの詳細はレスポンスに出さない
	if strings.Contains(rec.Body.String(), "access_denied") {
		t.Error("provider error details must not appear in the response")
	}
}

// 同意拒否もコード交換失敗と同様にプロバイダー失敗カウンターへ記録する。
func TestAuthHandler_GoogleCallback_ConsentDeniedRecordsFailure(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			t.Error("callback must not exchange a code when consent was denied")
			return nil, nil
		},
	}
	metrics := &mockAuthMetrics{}
	h := NewAuthHandler(service, metrics, AuthHandlerConfig{SessionMaxAge: 3600})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if len(metrics.providerFailures) != 1 || metrics.providerFailures[0] != "denied" {
		t.Errorf("expected provider failure reason [denied], got %v", metrics.providerFailures)
	}
}

func TestAuthHandler_GoogleCallback_StateMismatch(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			t.Error("callback must not exchange a code on state mismatch")
			return nil, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?code=auth-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "original-state"})
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("state mismatch should redirect to /login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_MissingCode(t *testing.T) {
	service := &mockAuthService{}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?state=state-token", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-token"})
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("missing code should redirect to /login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_ExchangeFailure(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			return nil, model.NewProviderUnreachableError()
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/secrets?code=auth-code&state=state-token", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-token"})
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("exchange failure should redirect to /login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if sessionCookieFrom(t, rec) != nil {
		t.Error("no session cookie on failure")
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var loggedOutID string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOutID = sessionID
			return nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if loggedOutID != "session-token" {
		t.Errorf("unexpected session ID passed to service: %s", loggedOutID)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("logout should redirect home, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	cookie := sessionCookieFrom(t, rec)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("session cookie should be cleared")
	}
}

func TestAuthHandler_Logout_WithoutCookie(t *testing.T) {
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			t.Error("service must not be called without a session cookie")
			return nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	// Cookieなしのログアウトも成功する（冪等）
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("logout without cookie should still redirect home, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_RegisterForm(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	rec := httptest.NewRecorder()
	h.RegisterForm(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["form"] != "register" {
		t.Errorf("unexpected form descriptor: %v", body["form"])
	}
}
