package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mwufi/cozypage2/internal/auth"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
)

// mockAuthService はテスト用のAuthServiceInterface実装。
type mockAuthService struct {
	loginURLFunc       func() (string, string, error)
	handleCallbackFunc func(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error)
	getCurrentUserFunc func(ctx context.Context, userEmail string) (*model.Profile, error)
}

func (m *mockAuthService) LoginURL() (string, string, error) {
	return m.loginURLFunc()
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error) {
	return m.handleCallbackFunc(ctx, code, state, cookieState)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userEmail string) (*model.Profile, error) {
	return m.getCurrentUserFunc(ctx, userEmail)
}

// mockRefresher はテスト用のCredentialRefresher実装。
type mockRefresher struct {
	forceRefreshFunc func(ctx context.Context, userEmail string) (*model.GoogleCredential, error)
}

func (m *mockRefresher) ForceRefresh(ctx context.Context, userEmail string) (*model.GoogleCredential, error) {
	return m.forceRefreshFunc(ctx, userEmail)
}

func TestAuthHandler_Login_RedirectsWithStateCookie(t *testing.T) {
	service := &mockAuthService{
		loginURLFunc: func() (string, string, error) {
			return "https://accounts.google.com/o/oauth2/auth?client_id=test", "nonce.sig", nil
		},
	}

	h := NewAuthHandler(service, nil, AuthHandlerConfig{FrontendAppURL: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "https://accounts.google.com/") {
		t.Errorf("Location = %q, want Google auth URL", location)
	}

	// stateがCookieに保存されていること
	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie to be set")
	}
	if stateCookie.Value != "nonce.sig" {
		t.Errorf("state cookie = %q, want %q", stateCookie.Value, "nonce.sig")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}
}

func TestAuthHandler_Callback_Success_RedirectsWithJWT(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			if state != "nonce.sig" || cookieState != "nonce.sig" {
				t.Errorf("state = %q, cookieState = %q, want both %q", state, cookieState, "nonce.sig")
			}
			return &auth.CallbackResult{
				SessionToken: "session-jwt",
				Profile:      &model.Profile{ID: 1, UserEmail: "user@example.com"},
			}, nil
		},
	}

	h := NewAuthHandler(service, nil, AuthHandlerConfig{FrontendAppURL: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=nonce.sig", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce.sig"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse Location: %v", err)
	}
	if !strings.HasPrefix(location.String(), "http://localhost:3000/auth/callback") {
		t.Errorf("Location = %q, want frontend callback URL", location.String())
	}
	if got := location.Query().Get("jwt"); got != "session-jwt" {
		t.Errorf("jwt query param = %q, want %q", got, "session-jwt")
	}

	// stateクッキーが削除されていること
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie && c.MaxAge != -1 {
			t.Error("expected oauth_state cookie to be cleared")
		}
	}
}

func TestAuthHandler_Callback_MissingCode_Returns400(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error) {
			t.Fatal("HandleCallback should not be called without a code")
			return nil, nil
		},
	}

	h := NewAuthHandler(service, nil, AuthHandlerConfig{FrontendAppURL: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=nonce.sig", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_StateMismatch_Returns400(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error) {
			return nil, model.NewStateMismatchError()
		},
	}

	h := NewAuthHandler(service, nil, AuthHandlerConfig{FrontendAppURL: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce.sig"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != model.ErrCodeStateMismatch {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeStateMismatch)
	}
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	refresher := &mockRefresher{
		forceRefreshFunc: func(ctx context.Context, userEmail string) (*model.GoogleCredential, error) {
			if userEmail != "user@example.com" {
				t.Errorf("userEmail = %q, want %q", userEmail, "user@example.com")
			}
			return &model.GoogleCredential{UserEmail: userEmail, Expiry: expiry}, nil
		},
	}

	h := NewAuthHandler(&mockAuthService{}, refresher, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh_token", nil)
	req = req.WithContext(middleware.ContextWithUserEmail(req.Context(), "user@example.com"))
	w := httptest.NewRecorder()

	h.RefreshToken(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body refreshTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "refreshed" {
		t.Errorf("status = %q, want %q", body.Status, "refreshed")
	}
	if body.ExpiresAt != "2025-06-01T12:00:00Z" {
		t.Errorf("expires_at = %q, want %q", body.ExpiresAt, "2025-06-01T12:00:00Z")
	}
}

func TestAuthHandler_RefreshToken_RefreshRejected_Returns401(t *testing.T) {
	refresher := &mockRefresher{
		forceRefreshFunc: func(ctx context.Context, userEmail string) (*model.GoogleCredential, error) {
			return nil, model.NewRefreshRejectedError()
		},
	}

	h := NewAuthHandler(&mockAuthService{}, refresher, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh_token", nil)
	req = req.WithContext(middleware.ContextWithUserEmail(req.Context(), "user@example.com"))
	w := httptest.NewRecorder()

	h.RefreshToken(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != model.ErrCodeRefreshRejected {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeRefreshRejected)
	}
}

func TestAuthHandler_Me_ReturnsProfile(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, userEmail string) (*model.Profile, error) {
			return &model.Profile{
				ID:         42,
				UserEmail:  userEmail,
				Username:   "Test User",
				ColorTheme: "dark",
			}, nil
		},
	}

	h := NewAuthHandler(service, nil, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithUserEmail(req.Context(), "user@example.com"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["user_email"] != "user@example.com" {
		t.Errorf("user_email = %v, want %q", body["user_email"], "user@example.com")
	}
	if body["username"] != "Test User" {
		t.Errorf("username = %v, want %q", body["username"], "Test User")
	}
}
