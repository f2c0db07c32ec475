package google

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/mwufi/cozypage2/internal/metrics"
	"github.com/mwufi/cozypage2/internal/model"
)

const maxEventsPerWindow = 25

// CalendarSummary はカレンダー一覧表示用サマリー。
type CalendarSummary struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary,omitempty"`
}

// Event はイベント一覧表示用サマリー。
// 終日イベントの場合、Start/Endは日付のみの形式になる。
type Event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLLink    string `json:"htmlLink,omitempty"`
}

// EventDateTime はイベントの開始・終了時刻。
// dateTimeかdateのどちらか一方のみを指定する。
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// CreateEventInput はイベント作成リクエスト。
type CreateEventInput struct {
	Summary     string          `json:"summary"`
	Start       EventDateTime   `json:"start"`
	End         EventDateTime   `json:"end"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Attendees   []EventAttendee `json:"attendees,omitempty"`
}

// EventAttendee はイベント参加者。
type EventAttendee struct {
	Email string `json:"email"`
}

// CreatedEvent はイベント作成結果。
type CreatedEvent struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	HTMLLink string `json:"htmlLink,omitempty"`
}

// Validate はstart/endの組み合わせを検証する。
// 両方dateTime、または両方dateのどちらかでなければならない。
func (in *CreateEventInput) Validate() error {
	if in.Summary == "" {
		return model.NewInvalidRequestError("summaryは必須です")
	}
	if in.Start.DateTime != "" && in.Start.Date != "" {
		return model.NewInvalidRequestError("startにはdateTimeとdateのどちらか一方を指定してください")
	}
	if in.End.DateTime != "" && in.End.Date != "" {
		return model.NewInvalidRequestError("endにはdateTimeとdateのどちらか一方を指定してください")
	}
	timed := in.Start.DateTime != "" && in.End.DateTime != ""
	allDay := in.Start.Date != "" && in.End.Date != ""
	if !timed && !allDay {
		return model.NewInvalidRequestError("startとendは両方dateTimeまたは両方dateで指定してください")
	}
	return nil
}

// CalendarService はGoogle Calendarへのプロキシ操作を提供する。
type CalendarService struct {
	factory   *ClientFactory
	collector metrics.MetricsCollector
	now       func() time.Time
}

// NewCalendarService はCalendarServiceを生成する。
func NewCalendarService(factory *ClientFactory, collector metrics.MetricsCollector) *CalendarService {
	return &CalendarService{factory: factory, collector: collector, now: time.Now}
}

// ListCalendars はユーザーのカレンダー一覧を取得する。
func (s *CalendarService) ListCalendars(ctx context.Context, userEmail string) ([]CalendarSummary, error) {
	svc, err := s.factory.Calendar(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	res, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("calendar")
		return nil, mapAPIError(err, "カレンダー")
	}

	calendars := make([]CalendarSummary, 0, len(res.Items))
	for _, c := range res.Items {
		calendars = append(calendars, CalendarSummary{
			ID:      c.Id,
			Summary: c.Summary,
			Primary: c.Primary,
		})
	}
	return calendars, nil
}

// ListUpcomingEvents は現在時刻からdays日先までのprimaryカレンダーの
// イベントを開始時刻順で取得する。
func (s *CalendarService) ListUpcomingEvents(ctx context.Context, userEmail string, days int) ([]Event, error) {
	if days <= 0 {
		days = 7
	}

	svc, err := s.factory.Calendar(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res, err := svc.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.AddDate(0, 0, days).Format(time.RFC3339)).
		MaxResults(maxEventsPerWindow).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("calendar")
		return nil, mapAPIError(err, "カレンダーイベント")
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, Event{
			ID:          item.Id,
			Summary:     eventSummary(item),
			Start:       eventTime(item.Start),
			End:         eventTime(item.End),
			Location:    item.Location,
			Description: item.Description,
			HTMLLink:    item.HtmlLink,
		})
	}
	return events, nil
}

// CreateEvent はprimaryカレンダーにイベントを作成する。
func (s *CalendarService) CreateEvent(ctx context.Context, userEmail string, input *CreateEventInput) (*CreatedEvent, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	svc, err := s.factory.Calendar(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.DateTime,
			Date:     input.Start.Date,
			TimeZone: input.Start.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.DateTime,
			Date:     input.End.Date,
			TimeZone: input.End.TimeZone,
		},
	}
	for _, a := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: a.Email})
	}

	created, err := svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("calendar")
		return nil, mapAPIError(err, "カレンダーイベント")
	}

	return &CreatedEvent{
		ID:       created.Id,
		Summary:  created.Summary,
		HTMLLink: created.HtmlLink,
	}, nil
}

// eventSummary はタイトル未設定のイベントに表示用の代替タイトルを返す。
func eventSummary(item *calendar.Event) string {
	if item.Summary == "" {
		return "No Title"
	}
	return item.Summary
}

// eventTime は通常イベントのdateTimeまたは終日イベントのdateを返す。
func eventTime(edt *calendar.EventDateTime) string {
	if edt == nil {
		return ""
	}
	if edt.DateTime != "" {
		return edt.DateTime
	}
	return edt.Date
}
