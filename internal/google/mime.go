package google

import (
	"encoding/base64"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// mimeHeader はMIMEメッセージのヘッダー1件。
type mimeHeader struct {
	name  string
	value string
}

// buildRawMessage はRFC 2822形式のメッセージを組み立てて
// Gmail APIが要求するbase64url文字列にエンコードする。
func buildRawMessage(headers []mimeHeader, body string) string {
	var sb strings.Builder
	for _, h := range headers {
		sb.WriteString(h.name)
		sb.WriteString(": ")
		sb.WriteString(h.value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(sb.String()))
}

// replySubject は返信用の件名を生成する。既に"Re:"が付いている場合は重ねない。
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// headerMap はメッセージペイロードのヘッダーを大文字小文字を無視して引く。
type headerMap map[string]string

func (h headerMap) get(name string) string {
	return h[strings.ToLower(name)]
}

// messageHeaders はメッセージのペイロードヘッダーをheaderMapに変換する。
func messageHeaders(msg *gmail.Message) headerMap {
	m := make(headerMap)
	if msg == nil || msg.Payload == nil {
		return m
	}
	for _, h := range msg.Payload.Headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

// extractBodies はメッセージペイロードを再帰的に走査し、
// text/plainとtext/htmlの本文をデコードして返す。
// multipartの場合は最初に見つかった各形式の本文を採用する。
func extractBodies(payload *gmail.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		decoded := decodeBody(payload.Body.Data)
		switch {
		case strings.HasPrefix(payload.MimeType, "text/plain"):
			return decoded, ""
		case strings.HasPrefix(payload.MimeType, "text/html"):
			return "", decoded
		}
	}

	for _, part := range payload.Parts {
		t, h := extractBodies(part)
		if text == "" {
			text = t
		}
		if html == "" {
			html = h
		}
		if text != "" && html != "" {
			break
		}
	}
	return text, html
}

// decodeBody はGmailのbase64url本文をデコードする。
// パディングの有無どちらの形式も受け付け、失敗時は空文字列を返す。
func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}
