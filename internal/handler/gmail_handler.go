package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwufi/cozypage2/internal/google"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
)

// GmailServiceInterface はGmailハンドラーが必要とするサービスインターフェース。
type GmailServiceInterface interface {
	ListInbox(ctx context.Context, userEmail string, maxResults int64) (*google.InboxPage, error)
	GetMessage(ctx context.Context, userEmail, messageID string) (*google.MessageDetail, error)
	ListLabels(ctx context.Context, userEmail string) ([]google.Label, error)
	CreateDraft(ctx context.Context, userEmail string, input *google.DraftInput) (*google.CreatedDraft, error)
	CreateReplyDraft(ctx context.Context, userEmail, originalMessageID string) (*google.CreatedDraft, error)
	ListThreads(ctx context.Context, userEmail string, maxResults int64) ([]google.ThreadSummary, error)
	GetThread(ctx context.Context, userEmail, threadID string) (*google.ThreadDetail, error)
}

// GmailHandler はGmailプロキシのHTTPハンドラー。
type GmailHandler struct {
	service GmailServiceInterface
}

// NewGmailHandler はGmailHandlerを生成する。
func NewGmailHandler(service GmailServiceInterface) *GmailHandler {
	return &GmailHandler{service: service}
}

// createReplyDraftRequest は返信下書き作成リクエストのボディ。
type createReplyDraftRequest struct {
	OriginalMessageID string `json:"original_message_id"`
}

// ListMessages は受信トレイのメッセージ一覧を返す。
// GET /gmail/messages?max_results=10
func (h *GmailHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	maxResults, ok := parseMaxResults(w, r)
	if !ok {
		return
	}

	page, err := h.service.ListInbox(r.Context(), email, maxResults)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// GetMessage はメッセージ詳細を返す。本文はデコード済みで、HTMLはサニタイズされている。
// GET /gmail/messages/{id}
func (h *GmailHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	detail, err := h.service.GetMessage(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// ListLabels はユーザーのGmailラベル一覧を返す。
// GET /gmail/labels
func (h *GmailHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	labels, err := h.service.ListLabels(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"labels": labels})
}

// CreateDraft は新規メールの下書きを作成する。
// POST /gmail/drafts
func (h *GmailHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var input google.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	draft, err := h.service.CreateDraft(r.Context(), email, &input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, draft)
}

// CreateReplyDraft は既存メッセージへの返信用下書きを作成する。
// POST /gmail/drafts/reply
func (h *GmailHandler) CreateReplyDraft(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req createReplyDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	draft, err := h.service.CreateReplyDraft(r.Context(), email, req.OriginalMessageID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, draft)
}

// ListThreads はスレッド一覧を返す。
// GET /gmail/threads?max_results=10
func (h *GmailHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	maxResults, ok := parseMaxResults(w, r)
	if !ok {
		return
	}

	threads, err := h.service.ListThreads(r.Context(), email, maxResults)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// GetThread はスレッド詳細（時系列順のメッセージ一覧）を返す。
// GET /gmail/threads/{id}
func (h *GmailHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	thread, err := h.service.GetThread(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

// parseMaxResults はmax_resultsクエリパラメータを解析する。
// 省略時は0を返し、サービス層のデフォルトに委ねる。
func parseMaxResults(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("max_results")
	if raw == "" {
		return 0, true
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 1 {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("max_resultsは1以上の整数を指定してください"))
		return 0, false
	}
	return parsed, true
}
