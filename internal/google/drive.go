package google

import (
	"context"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/mwufi/cozypage2/internal/metrics"
)

const docMimeType = "application/vnd.google-apps.document"

// DriveFile はDriveファイルの一覧表示用サマリー。
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	WebViewLink  string `json:"webViewLink,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}

// CreatedDoc はドキュメント作成結果。
type CreatedDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

// DriveService はGoogle Driveへのプロキシ操作を提供する。
type DriveService struct {
	factory   *ClientFactory
	collector metrics.MetricsCollector
}

// NewDriveService はDriveServiceを生成する。
func NewDriveService(factory *ClientFactory, collector metrics.MetricsCollector) *DriveService {
	return &DriveService{factory: factory, collector: collector}
}

// ListFiles はユーザーのDriveファイル一覧を取得する。
func (s *DriveService) ListFiles(ctx context.Context, userEmail string) ([]DriveFile, error) {
	svc, err := s.factory.Drive(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	res, err := svc.Files.List().
		PageSize(100).
		Fields("files(id, name, mimeType, webViewLink, modifiedTime)").
		Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("drive")
		return nil, mapAPIError(err, "Driveファイル")
	}

	files := make([]DriveFile, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, DriveFile{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			WebViewLink:  f.WebViewLink,
			ModifiedTime: f.ModifiedTime,
		})
	}
	return files, nil
}

// CreateDoc は新しいGoogleドキュメントを作成する。
// タイトル未指定の場合は作成時刻入りのタイトルを生成する。
func (s *DriveService) CreateDoc(ctx context.Context, userEmail, title string) (*CreatedDoc, error) {
	svc, err := s.factory.Drive(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = "New Doc - " + time.Now().UTC().Format("2006-01-02 15:04:05")
	}

	created, err := svc.Files.Create(&drive.File{
		Name:     title,
		MimeType: docMimeType,
	}).Fields("id, name, webViewLink").Context(ctx).Do()
	if err != nil {
		s.collector.RecordGoogleAPIError("drive")
		return nil, mapAPIError(err, "Googleドキュメント")
	}

	return &CreatedDoc{
		ID:   created.Id,
		Name: created.Name,
		Link: created.WebViewLink,
	}, nil
}
