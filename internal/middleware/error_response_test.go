package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwufi/cozypage2/internal/model"
)

func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		name   string
		apiErr *model.APIError
		want   int
	}{
		{"未認証", model.NewUnauthorizedError(), http.StatusUnauthorized},
		{"セッション期限切れ", model.NewSessionExpiredError(), http.StatusUnauthorized},
		{"Google未連携", model.NewNotLinkedError(), http.StatusUnauthorized},
		{"再認証が必要", model.NewReauthRequiredError(), http.StatusUnauthorized},
		{"リフレッシュ拒否", model.NewRefreshRejectedError(), http.StatusUnauthorized},
		{"state不一致", model.NewStateMismatchError(), http.StatusBadRequest},
		{"不正リクエスト", model.NewInvalidRequestError("bad"), http.StatusBadRequest},
		{"権限不足", model.NewInsufficientScopeError(), http.StatusForbidden},
		{"リソース未検出", model.NewResourceNotFoundError("file"), http.StatusNotFound},
		{"Google APIエラー", model.NewGoogleAPIError("upstream"), http.StatusInternalServerError},
		{"内部エラー", model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForAPIError(tt.apiErr); got != tt.want {
				t.Errorf("StatusForAPIError(%s) = %d, want %d", tt.apiErr.Code, got, tt.want)
			}
		})
	}
}

func TestWriteAPIError_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteAPIError(w, model.NewGoogleAPIError("トークンの更新に失敗しました"))

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Code != model.ErrCodeGoogleAPIError {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeGoogleAPIError)
	}
	if body.Message == "" {
		t.Error("expected non-empty message")
	}
	if body.Category == "" {
		t.Error("expected non-empty category")
	}
	if body.Action == "" {
		t.Error("expected non-empty action")
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
}
