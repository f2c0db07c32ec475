// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はサービス利用ユーザーのプロフィールを表す。
// Google初回ログイン時に自動作成され、以降のログインで表示名が更新される。
type Profile struct {
	ID         int64
	UserEmail  string
	Username   string
	ColorTheme string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GoogleCredential はGoogleアカウント1件分のOAuthトークン一式を表す。
// 主キーはGoogleアカウントのメールアドレス（1アカウント = 1行）。
// RefreshTokenは同意画面を再表示しない限り空のことがあり、
// その場合は期限切れのアクセストークンは再利用不能となる。
type GoogleCredential struct {
	UserEmail    string
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       time.Time // ゼロ値は有効期限不明を意味する
	ProfileID    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired はアクセストークンが期限切れかどうかを返す。
// 有効期限が不明（ゼロ値）の場合は期限切れとみなさない。
// deltaは時計のずれを吸収するための猶予時間。
func (c *GoogleCredential) Expired(now time.Time, delta time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return c.Expiry.Add(-delta).Before(now)
}

// Todo はToDoアイテムを表す。
// CompletedはCRUD層では変更されず、ワークフローハンドラーのみが更新する。
type Todo struct {
	ID          int64
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
