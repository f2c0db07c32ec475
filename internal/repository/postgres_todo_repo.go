package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mwufi/cozypage2/internal/model"
)

// PostgresTodoRepo はPostgreSQLを使用したToDoリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// Create はToDoを作成し、採番されたIDとタイムスタンプをtodoに書き戻す。
func (r *PostgresTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (title, description, completed)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		todo.Title, nullString(todo.Description), todo.Completed,
	).Scan(&todo.ID, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert todo: %w", err)
	}
	return nil
}

// List はToDo一覧をID昇順で取得する。
func (r *PostgresTodoRepo) List(ctx context.Context, skip, limit int) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, completed, created_at, updated_at
		 FROM todos ORDER BY id OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	var todos []*model.Todo
	for rows.Next() {
		todo := &model.Todo{}
		var description sql.NullString
		if err := rows.Scan(&todo.ID, &todo.Title, &description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todo.Description = description.String
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	return todos, nil
}

// FindByID は指定IDのToDoを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	todo := &model.Todo{}
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, completed, created_at, updated_at
		 FROM todos WHERE id = $1`,
		id,
	).Scan(&todo.ID, &todo.Title, &description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find todo by ID: %w", err)
	}

	todo.Description = description.String
	return todo, nil
}

// MarkCompleted は指定IDのToDoを完了状態にする。
func (r *PostgresTodoRepo) MarkCompleted(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE todos SET completed = TRUE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark todo completed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("todo not found: %d", id)
	}
	return nil
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
