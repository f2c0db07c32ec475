// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/mwufi/cozypage2/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByEmail は指定メールアドレスのプロフィールを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// Create はプロフィールを作成し、採番されたIDをprofileに書き戻す。
	Create(ctx context.Context, profile *model.Profile) error

	// UpdateUsername は表示名を更新する。再ログイン時のプロフィール同期に使用する。
	UpdateUsername(ctx context.Context, id int64, username string) error
}

// CredentialRepository はGoogle OAuthトークンの永続化インターフェース。
// 主キーはGoogleアカウントのメールアドレス。
type CredentialRepository interface {
	// FindByEmail は指定メールアドレスのトークン一式を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.GoogleCredential, error)

	// Upsert はトークン一式を挿入または全フィールド上書きで更新する。
	// OAuthコールバックの度に呼ばれ、同一メールアドレスへの再ログインは行を複製しない。
	Upsert(ctx context.Context, cred *model.GoogleCredential) error

	// UpdateTokens はリフレッシュ成功後のトークンフィールド一式を1文のUPDATEで上書きする。
	// 行が存在しない場合はエラーを返す。
	UpdateTokens(ctx context.Context, cred *model.GoogleCredential) error
}

// TodoRepository はToDoデータの永続化インターフェース。
type TodoRepository interface {
	// Create はToDoを作成し、採番されたIDとタイムスタンプをtodoに書き戻す。
	Create(ctx context.Context, todo *model.Todo) error

	// List はToDo一覧をID昇順で取得する。skip/limitでページングする。
	List(ctx context.Context, skip, limit int) ([]*model.Todo, error)

	// FindByID は指定IDのToDoを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Todo, error)

	// MarkCompleted は指定IDのToDoを完了状態にする。
	// CRUD層からは呼ばれず、ワークフローハンドラー専用。
	MarkCompleted(ctx context.Context, id int64) error
}
