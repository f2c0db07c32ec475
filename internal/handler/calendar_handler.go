package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mwufi/cozypage2/internal/google"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/model"
)

// CalendarServiceInterface はCalendarハンドラーが必要とするサービスインターフェース。
type CalendarServiceInterface interface {
	ListCalendars(ctx context.Context, userEmail string) ([]google.CalendarSummary, error)
	ListUpcomingEvents(ctx context.Context, userEmail string, days int) ([]google.Event, error)
	CreateEvent(ctx context.Context, userEmail string, input *google.CreateEventInput) (*google.CreatedEvent, error)
}

// CalendarHandler はGoogle CalendarプロキシのHTTPハンドラー。
type CalendarHandler struct {
	service CalendarServiceInterface
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(service CalendarServiceInterface) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// ListCalendars はユーザーのカレンダー一覧を返す。
// GET /calendar
func (h *CalendarHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	calendars, err := h.service.ListCalendars(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"calendars": calendars})
}

// ListEvents は直近のイベント一覧を返す。
// GET /calendar/events?days=7
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			middleware.WriteAPIError(w, model.NewInvalidRequestError("daysは1以上の整数を指定してください"))
			return
		}
		days = parsed
	}

	events, err := h.service.ListUpcomingEvents(r.Context(), email, days)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// CreateEvent はプライマリカレンダーにイベントを作成する。
// POST /calendar/events
func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.UserEmailFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var input google.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.CreateEvent(r.Context(), email, &input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
