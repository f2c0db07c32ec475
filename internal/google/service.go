// Package google はGoogle Workspace API（Drive, Calendar, Gmail）への
// プロキシ層を提供する。各サービスはユーザーごとの有効なトークンで
// APIクライアントを構築し、結果をフロントエンド向けの形に整形する。
package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenSourceProvider はユーザーの有効なアクセストークンを供給する。
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, userEmail string) (oauth2.TokenSource, error)
}

// ClientFactory はユーザーごとのGoogle APIクライアントを構築する。
// extraOptsはテスト用にエンドポイントを差し替えるために使う。
type ClientFactory struct {
	tokens    TokenSourceProvider
	extraOpts []option.ClientOption
}

// NewClientFactory はClientFactoryを生成する。
func NewClientFactory(tokens TokenSourceProvider, extraOpts ...option.ClientOption) *ClientFactory {
	return &ClientFactory{tokens: tokens, extraOpts: extraOpts}
}

// Gmail は指定ユーザーのGmail APIクライアントを構築する。
func (f *ClientFactory) Gmail(ctx context.Context, userEmail string) (*gmail.Service, error) {
	opts, err := f.options(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail client: %w", err)
	}
	return svc, nil
}

// Drive は指定ユーザーのDrive APIクライアントを構築する。
func (f *ClientFactory) Drive(ctx context.Context, userEmail string) (*drive.Service, error) {
	opts, err := f.options(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build drive client: %w", err)
	}
	return svc, nil
}

// Calendar は指定ユーザーのCalendar APIクライアントを構築する。
func (f *ClientFactory) Calendar(ctx context.Context, userEmail string) (*calendar.Service, error) {
	opts, err := f.options(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar client: %w", err)
	}
	return svc, nil
}

func (f *ClientFactory) options(ctx context.Context, userEmail string) ([]option.ClientOption, error) {
	ts, err := f.tokens.TokenSource(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	opts = append(opts, f.extraOpts...)
	return opts, nil
}
