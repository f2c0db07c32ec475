package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/mwufi/cozypage2/internal/model"
)

// staticTokenProvider はテスト用の固定トークン供給者。
type staticTokenProvider struct {
	err error
}

func (p *staticTokenProvider) TokenSource(ctx context.Context, userEmail string) (oauth2.TokenSource, error) {
	if p.err != nil {
		return nil, p.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "ya29.test",
		Expiry:      time.Now().Add(time.Hour),
	}), nil
}

// nopCollector は何も記録しないMetricsCollector。
type nopCollector struct{}

func (nopCollector) RecordHTTPStatus(statusCode int)             {}
func (nopCollector) RecordRequestLatency(duration time.Duration) {}
func (nopCollector) RecordTokenRefresh(result string)            {}
func (nopCollector) RecordGoogleAPIError(service string)         {}
func (nopCollector) RecordTodoNotify(result string)              {}

func TestDriveService_ListFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.test" {
			t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"files": [
				{"id": "f1", "name": "Notes", "mimeType": "application/vnd.google-apps.document", "webViewLink": "https://docs.google.com/f1"},
				{"id": "f2", "name": "data.csv", "mimeType": "text/csv"}
			]
		}`))
	}))
	defer srv.Close()

	factory := NewClientFactory(&staticTokenProvider{}, option.WithEndpoint(srv.URL))
	svc := NewDriveService(factory, nopCollector{})

	files, err := svc.ListFiles(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].ID != "f1" || files[0].Name != "Notes" {
		t.Errorf("unexpected first file: %+v", files[0])
	}
	if files[0].WebViewLink != "https://docs.google.com/f1" {
		t.Errorf("expected webViewLink, got %s", files[0].WebViewLink)
	}
}

func TestDriveService_ListFiles_TokenError(t *testing.T) {
	// トークン取得に失敗した場合、そのエラーがそのまま返ること
	factory := NewClientFactory(&staticTokenProvider{err: model.NewNotLinkedError()})
	svc := NewDriveService(factory, nopCollector{})

	_, err := svc.ListFiles(context.Background(), "user@example.com")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeNotLinked {
		t.Errorf("expected code %s, got %s", model.ErrCodeNotLinked, apiErr.Code)
	}
}

func TestDriveService_ListFiles_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "insufficient permissions"}}`))
	}))
	defer srv.Close()

	factory := NewClientFactory(&staticTokenProvider{}, option.WithEndpoint(srv.URL))
	svc := NewDriveService(factory, nopCollector{})

	_, err := svc.ListFiles(context.Background(), "user@example.com")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInsufficientScope {
		t.Errorf("expected code %s, got %s", model.ErrCodeInsufficientScope, apiErr.Code)
	}
}

func TestDriveService_CreateDoc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "d1", "name": "My Doc", "webViewLink": "https://docs.google.com/d1"}`))
	}))
	defer srv.Close()

	factory := NewClientFactory(&staticTokenProvider{}, option.WithEndpoint(srv.URL))
	svc := NewDriveService(factory, nopCollector{})

	doc, err := svc.CreateDoc(context.Background(), "user@example.com", "My Doc")
	if err != nil {
		t.Fatalf("CreateDoc failed: %v", err)
	}
	if doc.ID != "d1" || doc.Link != "https://docs.google.com/d1" {
		t.Errorf("unexpected created doc: %+v", doc)
	}
}
