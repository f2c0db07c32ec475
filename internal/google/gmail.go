package google

import (
	"context"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/mwufi/cozypage2/internal/metrics"
	"github.com/mwufi/cozypage2/internal/model"
	"github.com/mwufi/cozypage2/internal/security"
)

const defaultMaxMessages = 10

// MessageSummary は受信トレイ一覧表示用サマリー。
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Date     string `json:"date"`
}

// MessageDetail はメッセージ詳細。本文はデコード済みで、
// HTML本文はサニタイズされている。
type MessageDetail struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Snippet  string   `json:"snippet"`
	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Date     string   `json:"date"`
	LabelIDs []string `json:"labelIds,omitempty"`
	BodyText string   `json:"bodyText,omitempty"`
	BodyHTML string   `json:"bodyHtml,omitempty"`
}

// Label はGmailラベル。
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// DraftInput は下書き作成リクエスト。
type DraftInput struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CreatedDraft は下書き作成結果。
type CreatedDraft struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId,omitempty"`
}

// ThreadSummary はスレッド一覧表示用サマリー。
type ThreadSummary struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
}

// ThreadDetail はスレッド詳細。メッセージは時系列順。
type ThreadDetail struct {
	ID       string          `json:"id"`
	Messages []MessageDetail `json:"messages"`
}

// InboxPage は受信トレイ一覧の応答。
type InboxPage struct {
	Messages           []MessageSummary `json:"messages"`
	ResultSizeEstimate int64            `json:"resultSizeEstimate"`
}

// GmailService はGmailへのプロキシ操作を提供する。
type GmailService struct {
	factory   *ClientFactory
	collector metrics.MetricsCollector
	sanitizer security.ContentSanitizerService
}

// NewGmailService はGmailServiceを生成する。
func NewGmailService(factory *ClientFactory, collector metrics.MetricsCollector, sanitizer security.ContentSanitizerService) *GmailService {
	return &GmailService{factory: factory, collector: collector, sanitizer: sanitizer}
}

// ListInbox は受信トレイのメッセージ一覧をメタデータ付きで取得する。
func (s *GmailService) ListInbox(ctx context.Context, userEmail string, maxResults int64) (*InboxPage, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxMessages
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	res, err := svc.Users.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(maxResults).
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "メッセージ")
	}

	page := &InboxPage{
		Messages:           make([]MessageSummary, 0, len(res.Messages)),
		ResultSizeEstimate: res.ResultSizeEstimate,
	}
	for _, m := range res.Messages {
		detail, err := svc.Users.Messages.Get("me", m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			s.collector.RecordGoogleAPIError("gmail")
			return nil, mapAPIError(err, "メッセージ")
		}
		headers := messageHeaders(detail)
		page.Messages = append(page.Messages, MessageSummary{
			ID:       detail.Id,
			ThreadID: detail.ThreadId,
			Snippet:  detail.Snippet,
			Subject:  headers.get("Subject"),
			From:     headers.get("From"),
			Date:     headers.get("Date"),
		})
	}
	return page, nil
}

// GetMessage はメッセージの詳細を取得する。
// 本文はbase64urlからデコードし、HTML本文はサニタイズして返す。
func (s *GmailService) GetMessage(ctx context.Context, userEmail, messageID string) (*MessageDetail, error) {
	if messageID == "" {
		return nil, model.NewInvalidRequestError("メッセージIDは必須です")
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", messageID).
		Format("full").
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "メッセージ "+messageID)
	}

	return s.toMessageDetail(msg), nil
}

// ListLabels はユーザーのラベル一覧を取得する。
func (s *GmailService) ListLabels(ctx context.Context, userEmail string) ([]Label, error) {
	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	res, err := svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "ラベル")
	}

	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{
			ID:   l.Id,
			Name: l.Name,
			Type: l.Type,
		})
	}
	return labels, nil
}

// CreateDraft は新規メールの下書きを作成する。
func (s *GmailService) CreateDraft(ctx context.Context, userEmail string, input *DraftInput) (*CreatedDraft, error) {
	if input.To == "" || !strings.Contains(input.To, "@") {
		return nil, model.NewInvalidRequestError("toには有効なメールアドレスを指定してください")
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	raw := buildRawMessage([]mimeHeader{
		{name: "To", value: input.To},
		{name: "Subject", value: input.Subject},
	}, input.Body)

	draft, err := svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "下書き")
	}

	created := &CreatedDraft{ID: draft.Id}
	if draft.Message != nil {
		created.MessageID = draft.Message.Id
		created.ThreadID = draft.Message.ThreadId
	}
	return created, nil
}

// CreateReplyDraft は既存メッセージへの返信用下書きを作成する。
// 宛先は元メッセージの差出人、件名は"Re:"付き、In-Reply-To/Referencesヘッダーで
// スレッドに紐付ける。
func (s *GmailService) CreateReplyDraft(ctx context.Context, userEmail, originalMessageID string) (*CreatedDraft, error) {
	if originalMessageID == "" {
		return nil, model.NewInvalidRequestError("original_message_idは必須です")
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	original, err := svc.Users.Messages.Get("me", originalMessageID).
		Format("metadata").
		MetadataHeaders("Subject", "From", "Reply-To", "Message-ID", "References").
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "メッセージ "+originalMessageID)
	}

	headers := messageHeaders(original)
	to := headers.get("Reply-To")
	if to == "" {
		to = headers.get("From")
	}
	if to == "" {
		return nil, model.NewGoogleAPIError("元メッセージの差出人を特定できません")
	}

	replyHeaders := []mimeHeader{
		{name: "To", value: to},
		{name: "Subject", value: replySubject(headers.get("Subject"))},
	}
	if msgID := headers.get("Message-ID"); msgID != "" {
		replyHeaders = append(replyHeaders,
			mimeHeader{name: "In-Reply-To", value: msgID},
			mimeHeader{name: "References", value: strings.TrimSpace(headers.get("References") + " " + msgID)},
		)
	}

	draft, err := svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{
			Raw:      buildRawMessage(replyHeaders, ""),
			ThreadId: original.ThreadId,
		},
	}).Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "返信下書き")
	}

	created := &CreatedDraft{ID: draft.Id}
	if draft.Message != nil {
		created.MessageID = draft.Message.Id
		created.ThreadID = draft.Message.ThreadId
	}
	return created, nil
}

// ListThreads は受信トレイのスレッド一覧を取得する。
func (s *GmailService) ListThreads(ctx context.Context, userEmail string, maxResults int64) ([]ThreadSummary, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxMessages
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	res, err := svc.Users.Threads.List("me").
		LabelIds("INBOX").
		MaxResults(maxResults).
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "スレッド")
	}

	threads := make([]ThreadSummary, 0, len(res.Threads))
	for _, th := range res.Threads {
		threads = append(threads, ThreadSummary{
			ID:      th.Id,
			Snippet: th.Snippet,
		})
	}
	return threads, nil
}

// GetThread はスレッド内の全メッセージを取得する。
func (s *GmailService) GetThread(ctx context.Context, userEmail, threadID string) (*ThreadDetail, error) {
	if threadID == "" {
		return nil, model.NewInvalidRequestError("スレッドIDは必須です")
	}

	svc, err := s.factory.Gmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	th, err := svc.Users.Threads.Get("me", threadID).
		Format("full").
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("gmail")
		return nil, mapAPIError(err, "スレッド "+threadID)
	}

	detail := &ThreadDetail{
		ID:       th.Id,
		Messages: make([]MessageDetail, 0, len(th.Messages)),
	}
	for _, msg := range th.Messages {
		detail.Messages = append(detail.Messages, *s.toMessageDetail(msg))
	}
	return detail, nil
}

func (s *GmailService) toMessageDetail(msg *gmail.Message) *MessageDetail {
	headers := messageHeaders(msg)
	text, html := extractBodies(msg.Payload)
	if html != "" {
		html = s.sanitizer.Sanitize(html)
	}
	return &MessageDetail{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Subject:  headers.get("Subject"),
		From:     headers.get("From"),
		To:       headers.get("To"),
		Date:     headers.get("Date"),
		LabelIDs: msg.LabelIds,
		BodyText: text,
		BodyHTML: html,
	}
}
