package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mwufi/cozypage2/internal/model"
)

// mockTodoRepo はTodoRepositoryのモック。
type mockTodoRepo struct {
	findByIDFunc      func(ctx context.Context, id int64) (*model.Todo, error)
	markCompletedFunc func(ctx context.Context, id int64) error
	marked            []int64
}

func (m *mockTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	return nil
}

func (m *mockTodoRepo) List(ctx context.Context, skip, limit int) ([]*model.Todo, error) {
	return nil, nil
}

func (m *mockTodoRepo) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockTodoRepo) MarkCompleted(ctx context.Context, id int64) error {
	m.marked = append(m.marked, id)
	if m.markCompletedFunc != nil {
		return m.markCompletedFunc(ctx, id)
	}
	return nil
}

func TestGreeting(t *testing.T) {
	if got := greeting("Alice"); got != "Hello, Alice!" {
		t.Errorf("unexpected greeting: %s", got)
	}
	if got := greeting(""); got != "Hello, world!" {
		t.Errorf("expected default greeting, got %s", got)
	}
}

func TestCompleteTodo_MarksIncomplete(t *testing.T) {
	repo := &mockTodoRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Todo, error) {
			return &model.Todo{ID: id, Title: "x", Completed: false}, nil
		},
	}

	if err := completeTodo(context.Background(), repo, 5); err != nil {
		t.Fatalf("completeTodo failed: %v", err)
	}
	if len(repo.marked) != 1 || repo.marked[0] != 5 {
		t.Errorf("expected todo 5 to be marked, got %v", repo.marked)
	}
}

func TestCompleteTodo_AlreadyCompleted(t *testing.T) {
	repo := &mockTodoRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Todo, error) {
			return &model.Todo{ID: id, Title: "x", Completed: true}, nil
		},
	}

	// 完了済みなら冪等に成功し、更新は行わない
	if err := completeTodo(context.Background(), repo, 5); err != nil {
		t.Fatalf("completeTodo failed: %v", err)
	}
	if len(repo.marked) != 0 {
		t.Errorf("expected no update for completed todo, got %v", repo.marked)
	}
}

func TestCompleteTodo_NotFound(t *testing.T) {
	repo := &mockTodoRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Todo, error) {
			return nil, nil
		},
	}

	if err := completeTodo(context.Background(), repo, 99); err == nil {
		t.Error("expected error for missing todo")
	}
}

func TestCompleteTodo_RepoError(t *testing.T) {
	repo := &mockTodoRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Todo, error) {
			return nil, errors.New("db down")
		},
	}

	if err := completeTodo(context.Background(), repo, 1); err == nil {
		t.Error("expected error when lookup fails")
	}
}

func TestNewServer_BindsServices(t *testing.T) {
	if srv := NewServer(&mockTodoRepo{}, nil); srv == nil {
		t.Fatal("expected non-nil server")
	}
}
