package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired はセッショントークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid はセッショントークンの署名・形式不正を表す。
	ErrTokenInvalid = errors.New("session token invalid")
)

// TokenManager はセッション用JWTの発行と検証を行う。
// subjectクレームにユーザーのメールアドレスを格納する。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue はuserEmailを主体とするHS256署名付きJWTを発行する。
func (m *TokenManager) Issue(userEmail string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userEmail,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subjectのメールアドレスを返す。
// 期限切れはErrTokenExpired、それ以外の不正はErrTokenInvalidを返す。
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
