// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mwufi/cozypage2/internal/auth"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL() (url string, state string, err error)
	HandleCallback(ctx context.Context, code, state, cookieState string) (*auth.CallbackResult, error)
	GetCurrentUser(ctx context.Context, userEmail string) (*model.Profile, error)
}

// CredentialRefresher はトークンの強制リフレッシュに必要なインターフェース。
type CredentialRefresher interface {
	ForceRefresh(ctx context.Context, userEmail string) (*model.GoogleCredential, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendAppURL string // コールバック成功後のリダイレクト先
	CookieSecure   bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	refresher CredentialRefresher
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, refresher CredentialRefresher, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		refresher: refresher,
		config:    config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	loginURL, state, err := h.service.LoginURL()
	if err != nil {
		slog.Error("failed to generate login url", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// 署名付きstateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("認可コードがありません"))
		return
	}

	state := r.URL.Query().Get("state")
	var cookieState string
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		cookieState = c.Value
	}

	// stateクッキーは一度きり
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	result, err := h.service.HandleCallback(r.Context(), code, state, cookieState)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// フロントエンドにセッションJWTを付けてリダイレクト
	redirectURL := h.config.FrontendAppURL + "/auth/callback?jwt=" + url.QueryEscape(result.SessionToken)
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

// refreshTokenResponse はトークンリフレッシュ結果のAPIレスポンス。
type refreshTokenResponse struct {
	Status    string `json:"status"`
	UserEmail string `json:"user_email"`
	ExpiresAt string `json:"expires_at"`
}

// RefreshToken は現在のユーザーのGoogleアクセストークンを強制的にリフレッシュする。
// POST /auth/refresh_token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	cred, err := h.refresher.ForceRefresh(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshTokenResponse{
		Status:    "refreshed",
		UserEmail: cred.UserEmail,
		ExpiresAt: cred.Expiry.UTC().Format(time.RFC3339),
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	profile, err := h.service.GetCurrentUser(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          profile.ID,
		"user_email":  profile.UserEmail,
		"username":    profile.Username,
		"color_theme": profile.ColorTheme,
	})
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットで書き込む。
// APIError以外のエラーは内部サーバーエラーとして扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
