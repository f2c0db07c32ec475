// Package todo はToDoのCRUDと作成イベントの通知を提供する。
package todo

import (
	"context"
	"fmt"

	"github.com/mwufi/cozypage2/internal/model"
	"github.com/mwufi/cozypage2/internal/notify"
	"github.com/mwufi/cozypage2/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// CreateTodoInput はToDo作成リクエスト。
type CreateTodoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Service はToDoに関するビジネスロジックを提供する。
type Service struct {
	repo     repository.TodoRepository
	notifier notify.Notifier
}

// NewService はServiceを生成する。
func NewService(repo repository.TodoRepository, notifier notify.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create はToDoを作成し、ワークフローサービスに作成イベントを通知する。
// 通知はベストエフォートであり、失敗してもToDo作成は成功として扱う。
func (s *Service) Create(ctx context.Context, input *CreateTodoInput) (*model.Todo, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("titleは必須です")
	}

	todo := &model.Todo{
		Title:       input.Title,
		Description: input.Description,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.notifier.NotifyTodoCreated(ctx, todo.ID)

	return todo, nil
}

// List はToDo一覧をID昇順で取得する。
// limitは最大100件に制限される。
func (s *Service) List(ctx context.Context, skip, limit int) ([]*model.Todo, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	todos, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}
