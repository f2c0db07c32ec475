// Package workflow はRestate上で実行される耐久ワークフローハンドラーを提供する。
// HTTPサーバーとは別のリスナーでRestateランタイムからの呼び出しを受け付ける。
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	restate "github.com/restatedev/sdk-go"
	"github.com/restatedev/sdk-go/server"

	"github.com/mwufi/cozypage2/internal/llm/openai"
	"github.com/mwufi/cozypage2/internal/repository"
)

const aiInstructions = "You are a helpful assistant that can answer questions and help with tasks."

// TodoCreatedRequest はCompleteTodoハンドラーへのリクエスト。
type TodoCreatedRequest struct {
	TodoID int64 `json:"todoId"`
}

// TodoCompletedResponse はCompleteTodoハンドラーの応答。
type TodoCompletedResponse struct {
	TodoID    int64 `json:"todoId"`
	Completed bool  `json:"completed"`
}

// Greeter はToDoイベントを処理するRestateサービス。
type Greeter struct {
	todos repository.TodoRepository
}

// NewGreeter はGreeterを生成する。
func NewGreeter(todos repository.TodoRepository) *Greeter {
	return &Greeter{todos: todos}
}

// Greet は疎通確認用のハンドラー。
func (g *Greeter) Greet(ctx restate.Context, name string) (string, error) {
	return greeting(name), nil
}

// CompleteTodo は作成されたToDoを完了状態にする。
// DB更新はrestate.Runで包むことで、リトライ時に一度だけ適用される。
func (g *Greeter) CompleteTodo(ctx restate.Context, req TodoCreatedRequest) (TodoCompletedResponse, error) {
	if req.TodoID <= 0 {
		return TodoCompletedResponse{}, restate.TerminalError(fmt.Errorf("todoId must be positive"), 400)
	}

	_, err := restate.Run(ctx, func(rc restate.RunContext) (restate.Void, error) {
		return restate.Void{}, completeTodo(rc, g.todos, req.TodoID)
	})
	if err != nil {
		return TodoCompletedResponse{}, err
	}

	slog.Info("todo completed by workflow",
		slog.Int64("todo_id", req.TodoID),
	)
	return TodoCompletedResponse{TodoID: req.TodoID, Completed: true}, nil
}

// AIRequest はGenerateResponseハンドラーへのリクエスト。
type AIRequest struct {
	Prompt string `json:"prompt"`
}

// AIResponse はGenerateResponseハンドラーの応答。
type AIResponse struct {
	Response string `json:"response"`
}

// AI はLLM応答生成のRestateサービス。
type AI struct {
	llm *openai.Client
}

// NewAI はAIを生成する。
func NewAI(llm *openai.Client) *AI {
	return &AI{llm: llm}
}

// GenerateResponse はプロンプトからアシスタントの応答を生成する。
// LLM呼び出しはrestate.Runで包み、リトライ時の再実行を避ける。
func (a *AI) GenerateResponse(ctx restate.Context, req AIRequest) (AIResponse, error) {
	if req.Prompt == "" {
		return AIResponse{}, restate.TerminalError(fmt.Errorf("prompt is required"), 400)
	}

	text, err := restate.Run(ctx, func(rc restate.RunContext) (string, error) {
		return a.llm.Generate(rc, aiInstructions, req.Prompt)
	})
	if err != nil {
		return AIResponse{}, err
	}
	return AIResponse{Response: text}, nil
}

// NewServer はワークフローサービスを束ねたRestateサーバーを構築する。
// llmがnilの場合、AIサービスはバインドされない。
func NewServer(todos repository.TodoRepository, llm *openai.Client) *server.Restate {
	srv := server.NewRestate().
		Bind(restate.Reflect(NewGreeter(todos)))
	if llm != nil {
		srv = srv.Bind(restate.Reflect(NewAI(llm)))
	}
	return srv
}

// greeting は挨拶文を組み立てる。
func greeting(name string) string {
	if name == "" {
		name = "world"
	}
	return "Hello, " + name + "!"
}

// completeTodo はToDoの存在を確認してから完了状態にする。
func completeTodo(ctx context.Context, todos repository.TodoRepository, todoID int64) error {
	existing, err := todos.FindByID(ctx, todoID)
	if err != nil {
		return fmt.Errorf("failed to find todo: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("todo %d not found", todoID)
	}
	if existing.Completed {
		return nil
	}
	if err := todos.MarkCompleted(ctx, todoID); err != nil {
		return fmt.Errorf("failed to mark todo completed: %w", err)
	}
	return nil
}
