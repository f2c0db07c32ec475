package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// recordingCollector は通知メトリクスを記録するモック。
type recordingCollector struct {
	mu     sync.Mutex
	notify map[string]int
}

func (m *recordingCollector) RecordHTTPStatus(statusCode int)             {}
func (m *recordingCollector) RecordRequestLatency(duration time.Duration) {}
func (m *recordingCollector) RecordTokenRefresh(result string)            {}
func (m *recordingCollector) RecordGoogleAPIError(service string)         {}

func (m *recordingCollector) RecordTodoNotify(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notify == nil {
		m.notify = make(map[string]int)
	}
	m.notify[result]++
}

func (m *recordingCollector) count(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notify[result]
}

func TestRestateClient_NotifyTodoCreated(t *testing.T) {
	var gotPath, gotAuth, gotIdempotency string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	collector := &recordingCollector{}
	client := NewRestateClient(srv.URL, "restate-key", collector)

	client.NotifyTodoCreated(context.Background(), 7)

	if gotPath != "/Greeter/CompleteTodo" {
		t.Errorf("expected /Greeter/CompleteTodo, got %s", gotPath)
	}
	if gotAuth != "Bearer restate-key" {
		t.Errorf("expected bearer auth, got %s", gotAuth)
	}
	if gotIdempotency == "" {
		t.Error("expected idempotency key header")
	}
	if gotBody["todoId"] != float64(7) {
		t.Errorf("expected todoId 7, got %v", gotBody["todoId"])
	}
	if collector.count("success") != 1 {
		t.Errorf("expected 1 success, got %d", collector.count("success"))
	}
}

func TestRestateClient_NotifyTodoCreated_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header, got %s", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRestateClient(srv.URL, "", &recordingCollector{})
	client.NotifyTodoCreated(context.Background(), 1)
}

func TestRestateClient_NotifyTodoCreated_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	collector := &recordingCollector{}
	client := NewRestateClient(srv.URL, "", collector)

	// エラーでもpanicせず、失敗として記録されるだけ
	client.NotifyTodoCreated(context.Background(), 2)

	if collector.count("failure") != 1 {
		t.Errorf("expected 1 failure, got %d", collector.count("failure"))
	}
}

func TestRestateClient_NotifyTodoCreated_Unreachable(t *testing.T) {
	collector := &recordingCollector{}
	client := NewRestateClient("http://127.0.0.1:1", "", collector)

	client.NotifyTodoCreated(context.Background(), 3)

	if collector.count("failure") != 1 {
		t.Errorf("expected 1 failure, got %d", collector.count("failure"))
	}
}
