package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8000/auth/google/callback",
	})

	loginURL := provider.GetLoginURL("test-state")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}

	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("expected client_id, got %s", q.Get("client_id"))
	}
	if q.Get("state") != "test-state" {
		t.Errorf("expected state test-state, got %s", q.Get("state"))
	}
	if q.Get("access_type") != "offline" {
		t.Errorf("expected access_type offline, got %s", q.Get("access_type"))
	}
	if q.Get("prompt") != "consent" {
		t.Errorf("expected prompt consent, got %s", q.Get("prompt"))
	}
	if !strings.Contains(q.Get("scope"), "gmail.modify") {
		t.Errorf("expected gmail.modify scope, got %s", q.Get("scope"))
	}
}

func TestGoogleOAuthProvider_ExchangeCode(t *testing.T) {
	// トークンエンドポイントのモック
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.Form.Get("code") != "auth-code" {
			t.Errorf("expected code auth-code, got %s", r.Form.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "ya29.access",
			"token_type": "Bearer",
			"expires_in": 3600,
			"refresh_token": "1//refresh",
			"scope": "openid https://www.googleapis.com/auth/gmail.readonly"
		}`))
	}))
	defer tokenServer.Close()

	// ユーザー情報エンドポイントのモック
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.access" {
			t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "123", "email": "user@example.com", "name": "Test User"}`))
	}))
	defer userInfoServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/auth/google/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	cred, userInfo, err := provider.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	if userInfo.Email != "user@example.com" {
		t.Errorf("expected email user@example.com, got %s", userInfo.Email)
	}
	if cred.Token != "ya29.access" {
		t.Errorf("expected access token, got %s", cred.Token)
	}
	if cred.RefreshToken != "1//refresh" {
		t.Errorf("expected refresh token, got %s", cred.RefreshToken)
	}
	if cred.TokenURI != tokenServer.URL {
		t.Errorf("expected token URI %s, got %s", tokenServer.URL, cred.TokenURI)
	}
	if cred.Expiry.IsZero() {
		t.Error("expected non-zero expiry")
	}
	// 付与されたスコープがレスポンスから取り込まれること
	if len(cred.Scopes) != 2 {
		t.Errorf("expected 2 granted scopes, got %v", cred.Scopes)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_TokenError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Bad Request"}`))
	}))
	defer tokenServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID: "client-id",
		TokenURL: tokenServer.URL,
	})

	_, _, err := provider.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestGrantedScopes_Fallback(t *testing.T) {
	// scopeフィールドの無いレスポンスでは要求スコープを採用する
	scopes := grantedScopes(&oauth2.Token{AccessToken: "ya29.access"})
	if len(scopes) != len(GoogleScopes) {
		t.Errorf("expected fallback to requested scopes, got %v", scopes)
	}
}
