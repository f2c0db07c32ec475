package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mwufi/cozypage2/internal/google"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
)

// DriveServiceInterface はDriveハンドラーが必要とするサービスインターフェース。
type DriveServiceInterface interface {
	ListFiles(ctx context.Context, userEmail string) ([]google.DriveFile, error)
	CreateDoc(ctx context.Context, userEmail, title string) (*google.CreatedDoc, error)
}

// DriveHandler はGoogle DriveプロキシのHTTPハンドラー。
type DriveHandler struct {
	service DriveServiceInterface
}

// NewDriveHandler はDriveHandlerを生成する。
func NewDriveHandler(service DriveServiceInterface) *DriveHandler {
	return &DriveHandler{service: service}
}

// createDocRequest はドキュメント作成リクエストのボディ。
type createDocRequest struct {
	Title string `json:"title"`
}

// ListFiles はユーザーのDriveファイル一覧を返す。
// GET /drive
func (h *DriveHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	files, err := h.service.ListFiles(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// CreateDoc は新しいGoogleドキュメントを作成する。
// POST /drive/docs
func (h *DriveHandler) CreateDoc(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req createDocRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
			return
		}
	}

	doc, err := h.service.CreateDoc(r.Context(), email, req.Title)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}
