// Package credential はGoogleアクセストークンの有効性確認とリフレッシュを一元管理する。
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mwufi/cozypage2/internal/metrics"
	"github.com/mwufi/cozypage2/internal/model"
	"github.com/mwufi/cozypage2/internal/repository"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultExpiryDelta は有効期限切れとみなす猶予時間。
	// 期限ちょうどのトークンでGoogle APIを呼んで失敗するのを避ける。
	DefaultExpiryDelta = 60 * time.Second
)

// CoordinatorConfig はCoordinatorの設定。
type CoordinatorConfig struct {
	// ExpiryDelta はゼロの場合DefaultExpiryDeltaが使われる。
	ExpiryDelta time.Duration
	// TokenURL はテスト用のオーバーライド。空の場合は資格情報のtoken_uriを使う。
	TokenURL string
	// Now はテスト用のクロック。nilの場合time.Nowが使われる。
	Now func() time.Time
}

// Coordinator はユーザーごとのGoogle資格情報の取得とリフレッシュを調停する。
// 同一ユーザーの同時リフレッシュはミューテックスで直列化し、
// ロック取得後に資格情報を読み直すことで二重リフレッシュを防ぐ。
type Coordinator struct {
	repo        repository.CredentialRepository
	collector   metrics.MetricsCollector
	expiryDelta time.Duration
	tokenURL    string
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator はCoordinatorを生成する。
func NewCoordinator(repo repository.CredentialRepository, collector metrics.MetricsCollector, config CoordinatorConfig) *Coordinator {
	if config.ExpiryDelta == 0 {
		config.ExpiryDelta = DefaultExpiryDelta
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Coordinator{
		repo:        repo,
		collector:   collector,
		expiryDelta: config.ExpiryDelta,
		tokenURL:    config.TokenURL,
		now:         config.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// GetValidCredential は有効なアクセストークンを持つ資格情報を返す。
// 期限切れの場合はrefresh_tokenで更新し、更新後のトークンを永続化する。
// refresh_tokenが無い、または失効している場合は再認証エラーを返す。
func (c *Coordinator) GetValidCredential(ctx context.Context, userEmail string) (*model.GoogleCredential, error) {
	cred, err := c.repo.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewNotLinkedError()
	}
	if !cred.Expired(c.now(), c.expiryDelta) {
		return cred, nil
	}

	lock := c.emailLock(userEmail)
	lock.Lock()
	defer lock.Unlock()

	// ロック待ちの間に別のリクエストがリフレッシュを終えている可能性が
	// あるため、ロック取得後に必ず読み直す。
	cred, err = c.repo.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to reload credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewNotLinkedError()
	}
	if !cred.Expired(c.now(), c.expiryDelta) {
		c.collector.RecordTokenRefresh(metrics.RefreshResultAlreadyValid)
		return cred, nil
	}

	return c.refresh(ctx, cred)
}

// ForceRefresh は有効期限に関わらずトークンを強制的に更新する。
func (c *Coordinator) ForceRefresh(ctx context.Context, userEmail string) (*model.GoogleCredential, error) {
	lock := c.emailLock(userEmail)
	lock.Lock()
	defer lock.Unlock()

	cred, err := c.repo.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewNotLinkedError()
	}

	return c.refresh(ctx, cred)
}

// TokenSource は指定ユーザーの有効なアクセストークンを持つTokenSourceを返す。
// Google APIクライアントの構築に使用する。
func (c *Coordinator) TokenSource(ctx context.Context, userEmail string) (oauth2.TokenSource, error) {
	cred, err := c.GetValidCredential(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		Expiry:      cred.Expiry,
	}), nil
}

// refresh はトークンエンドポイントでアクセストークンを更新し永続化する。
// 呼び出し側がユーザーごとのロックを保持していることを前提とする。
func (c *Coordinator) refresh(ctx context.Context, cred *model.GoogleCredential) (*model.GoogleCredential, error) {
	if cred.RefreshToken == "" {
		c.collector.RecordTokenRefresh(metrics.RefreshResultReauth)
		slog.Warn("credential expired without refresh token",
			slog.String("user_email", cred.UserEmail),
		)
		return nil, model.NewReauthRequiredError()
	}

	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: c.resolveTokenURL(cred),
		},
	}
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		if isInvalidGrant(err) {
			c.collector.RecordTokenRefresh(metrics.RefreshResultReauth)
			slog.Warn("refresh token revoked",
				slog.String("user_email", cred.UserEmail),
			)
			return nil, model.NewRefreshRejectedError()
		}
		c.collector.RecordTokenRefresh(metrics.RefreshResultFailure)
		slog.Error("token refresh failed",
			slog.String("user_email", cred.UserEmail),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGoogleAPIError(fmt.Sprintf("トークンの更新に失敗しました: %v", err))
	}

	cred.Token = tok.AccessToken
	cred.Expiry = tok.Expiry
	// Googleはリフレッシュレスポンスでrefresh_tokenを返さないことが多い
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}

	if err := c.repo.UpdateTokens(ctx, cred); err != nil {
		c.collector.RecordTokenRefresh(metrics.RefreshResultFailure)
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	c.collector.RecordTokenRefresh(metrics.RefreshResultSuccess)
	slog.Info("token refreshed",
		slog.String("user_email", cred.UserEmail),
		slog.Time("expiry", cred.Expiry),
	)
	return cred, nil
}

func (c *Coordinator) resolveTokenURL(cred *model.GoogleCredential) string {
	if c.tokenURL != "" {
		return c.tokenURL
	}
	if cred.TokenURI != "" {
		return cred.TokenURI
	}
	return defaultTokenURL
}

func (c *Coordinator) emailLock(userEmail string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[userEmail]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[userEmail] = lock
	}
	return lock
}

// isInvalidGrant はリフレッシュトークンの失効を表すエラーか判定する。
func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" {
			return true
		}
		return strings.Contains(string(re.Body), "invalid_grant")
	}
	return strings.Contains(err.Error(), "invalid_grant")
}
