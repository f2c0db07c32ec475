// Package notify はRestateインジェスト経由の非同期通知を提供する。
// 通知はベストエフォートであり、失敗しても呼び出し元の処理は成功扱いになる。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mwufi/cozypage2/internal/metrics"
)

const notifyTimeout = 10 * time.Second

// Notifier はToDoイベントの通知インターフェース。
type Notifier interface {
	// NotifyTodoCreated はToDo作成をワークフローサービスに通知する。
	// エラーは返さない。失敗はログとメトリクスにのみ記録される。
	NotifyTodoCreated(ctx context.Context, todoID int64)
}

// todoCreatedEvent はGreeter.CompleteTodoハンドラーへのリクエストボディ。
type todoCreatedEvent struct {
	TodoID int64 `json:"todoId"`
}

// RestateClient はRestateインジェストAPIへの通知クライアント。
type RestateClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	collector metrics.MetricsCollector
}

// NewRestateClient はRestateClientを生成する。
// apiKeyが空の場合、Authorizationヘッダーは付与されない。
func NewRestateClient(baseURL, apiKey string, collector metrics.MetricsCollector) *RestateClient {
	return &RestateClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: notifyTimeout},
		collector: collector,
	}
}

// NotifyTodoCreated はToDo作成をGreeter.CompleteTodoハンドラーに通知する。
// 冪等キーを付与するため、Restate側での重複実行は発生しない。
func (c *RestateClient) NotifyTodoCreated(ctx context.Context, todoID int64) {
	body, err := json.Marshal(todoCreatedEvent{TodoID: todoID})
	if err != nil {
		c.recordFailure(todoID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Greeter/CompleteTodo", bytes.NewReader(body))
	if err != nil {
		c.recordFailure(todoID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure(todoID, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		slog.Warn("todo notification rejected",
			slog.Int64("todo_id", todoID),
			slog.Int("status", resp.StatusCode),
		)
		c.collector.RecordTodoNotify(metrics.NotifyResultFailure)
		return
	}

	slog.Info("todo notification sent",
		slog.Int64("todo_id", todoID),
	)
	c.collector.RecordTodoNotify(metrics.NotifyResultSuccess)
}

func (c *RestateClient) recordFailure(todoID int64, err error) {
	slog.Warn("todo notification failed",
		slog.Int64("todo_id", todoID),
		slog.String("error", err.Error()),
	)
	c.collector.RecordTodoNotify(metrics.NotifyResultFailure)
}

// compile-time interface check
var _ Notifier = (*RestateClient)(nil)
