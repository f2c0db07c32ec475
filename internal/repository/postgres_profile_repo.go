package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwufi/cozypage2/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByEmail は指定メールアドレスのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	profile := &model.Profile{}
	var username, colorTheme sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_email, username, color_theme, created_at, updated_at
		 FROM profiles WHERE user_email = $1`,
		email,
	).Scan(&profile.ID, &profile.UserEmail, &username, &colorTheme, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by email: %w", err)
	}

	profile.Username = username.String
	profile.ColorTheme = colorTheme.String
	return profile, nil
}

// Create はプロフィールを作成し、採番されたIDをprofileに書き戻す。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_email, username, color_theme)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		profile.UserEmail, nullString(profile.Username), nullString(profile.ColorTheme),
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateUsername は表示名を更新する。
func (r *PostgresProfileRepo) UpdateUsername(ctx context.Context, id int64, username string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET username = $1, updated_at = now() WHERE id = $2`,
		username, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %d", id)
	}
	return nil
}

// nullString は空文字列をNULLとして保存するためのヘルパー。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
