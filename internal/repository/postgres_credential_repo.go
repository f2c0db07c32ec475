package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwufi/cozypage2/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用したGoogleトークンリポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByEmail は指定メールアドレスのトークン一式を取得する。見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByEmail(ctx context.Context, email string) (*model.GoogleCredential, error) {
	cred := &model.GoogleCredential{}
	var refreshToken sql.NullString
	var expiry sql.NullTime
	var profileID sql.NullInt64
	var scopesJSON []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT user_email, token, refresh_token, token_uri, client_id, client_secret,
		        scopes, expiry, profile_id, created_at, updated_at
		 FROM user_google_tokens WHERE user_email = $1`,
		email,
	).Scan(
		&cred.UserEmail, &cred.Token, &refreshToken, &cred.TokenURI,
		&cred.ClientID, &cred.ClientSecret, &scopesJSON, &expiry,
		&profileID, &cred.CreatedAt, &cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential by email: %w", err)
	}

	cred.RefreshToken = refreshToken.String
	if expiry.Valid {
		cred.Expiry = expiry.Time
	}
	cred.ProfileID = profileID.Int64

	if err := json.Unmarshal(scopesJSON, &cred.Scopes); err != nil {
		return nil, fmt.Errorf("failed to decode scopes: %w", err)
	}

	return cred, nil
}

// Upsert はトークン一式を挿入または全フィールド上書きで更新する。
// 同一メールアドレスでの再ログインは既存行を上書きする（行を複製しない）。
func (r *PostgresCredentialRepo) Upsert(ctx context.Context, cred *model.GoogleCredential) error {
	scopesJSON, err := json.Marshal(cred.Scopes)
	if err != nil {
		return fmt.Errorf("failed to encode scopes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_google_tokens
		   (user_email, token, refresh_token, token_uri, client_id, client_secret, scopes, expiry, profile_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_email) DO UPDATE SET
		   token = EXCLUDED.token,
		   refresh_token = EXCLUDED.refresh_token,
		   token_uri = EXCLUDED.token_uri,
		   client_id = EXCLUDED.client_id,
		   client_secret = EXCLUDED.client_secret,
		   scopes = EXCLUDED.scopes,
		   expiry = EXCLUDED.expiry,
		   profile_id = EXCLUDED.profile_id,
		   updated_at = now()`,
		cred.UserEmail, cred.Token, nullString(cred.RefreshToken), cred.TokenURI,
		cred.ClientID, cred.ClientSecret, scopesJSON, nullTime(cred.Expiry), cred.ProfileID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

// UpdateTokens はリフレッシュ成功後のトークンフィールド一式を1文のUPDATEで上書きする。
// 個別フィールドの部分更新は行わず、常にトークン一式をまとめて書き込む。
func (r *PostgresCredentialRepo) UpdateTokens(ctx context.Context, cred *model.GoogleCredential) error {
	scopesJSON, err := json.Marshal(cred.Scopes)
	if err != nil {
		return fmt.Errorf("failed to encode scopes: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE user_google_tokens SET
		   token = $1,
		   refresh_token = $2,
		   token_uri = $3,
		   client_id = $4,
		   client_secret = $5,
		   scopes = $6,
		   expiry = $7,
		   updated_at = now()
		 WHERE user_email = $8`,
		cred.Token, nullString(cred.RefreshToken), cred.TokenURI,
		cred.ClientID, cred.ClientSecret, scopesJSON, nullTime(cred.Expiry),
		cred.UserEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("credential not found: %s", cred.UserEmail)
	}
	return nil
}

// nullTime はゼロ値の時刻をNULLとして保存するためのヘルパー。
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
