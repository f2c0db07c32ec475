// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mwufi/cozypage2/internal/auth"
	"github.com/mwufi/cozypage2/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userEmailContextKey はリクエストコンテキストにユーザーのメールアドレスを格納するためのキー。
var userEmailContextKey = contextKey("user_email")

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証する
// ミドルウェアを返す。検証済みのメールアドレスをリクエストコンテキストに注入する。
// トークンの欠落・不正には401 UNAUTHORIZED、期限切れには401 SESSION_EXPIREDを返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			email, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					WriteAPIError(w, model.NewSessionExpiredError())
					return
				}
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), userEmailContextKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserEmailFromContext はリクエストコンテキストからユーザーのメールアドレスを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserEmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(userEmailContextKey).(string)
	if !ok || email == "" {
		return "", fmt.Errorf("user email not found in context")
	}
	return email, nil
}

// ContextWithUserEmail はコンテキストにユーザーのメールアドレスを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailContextKey, email)
}
