package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
	"github.com/mwufi/cozypage2/internal/todo"
)

// TodoServiceInterface はToDoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	Create(ctx context.Context, input *todo.CreateTodoInput) (*model.Todo, error)
	List(ctx context.Context, skip, limit int) ([]*model.Todo, error)
}

// TodoHandler はToDo管理のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{service: service}
}

// todoResponse はToDoのAPIレスポンス。
type todoResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Create は新しいToDoを作成する。
// 完了ワークフローへの通知が失敗しても作成自体は成功として扱う。
// POST /todos
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input todo.CreateTodoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.Create(r.Context(), &input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTodoResponse(created))
}

// List はToDo一覧をページングで返す。
// GET /todos?skip=0&limit=100
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, ok := parseIntQuery(w, r, "skip")
	if !ok {
		return
	}
	limit, ok := parseIntQuery(w, r, "limit")
	if !ok {
		return
	}

	todos, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		responses = append(responses, toTodoResponse(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{"todos": responses})
}

// toTodoResponse はmodel.TodoからAPIレスポンスに変換する。
func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// parseIntQuery は非負整数のクエリパラメータを解析する。省略時は0を返す。
func parseIntQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		middleware.WriteAPIError(w, model.NewInvalidRequestError(name+"は0以上の整数を指定してください"))
		return 0, false
	}
	return parsed, true
}
