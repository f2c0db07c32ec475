// Package auth はGoogle OAuth認証フローとセッショントークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwufi/cozypage2/internal/model"
	"github.com/mwufi/cozypage2/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、資格情報とユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.GoogleCredential, *GoogleUserInfo, error)
}

// CallbackResult はOAuthコールバック処理の結果。
type CallbackResult struct {
	SessionToken string
	Profile      *model.Profile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	profileRepo repository.ProfileRepository
	credRepo    repository.CredentialRepository
	tokens      *TokenManager
	states      *StateSigner
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	profileRepo repository.ProfileRepository,
	credRepo repository.CredentialRepository,
	tokens *TokenManager,
	states *StateSigner,
) *Service {
	return &Service{
		oauth:       oauth,
		profileRepo: profileRepo,
		credRepo:    credRepo,
		tokens:      tokens,
		states:      states,
	}
}

// LoginURL は署名付きstateとGoogle認証URLを生成する。
// stateはクッキーに保存し、コールバック時に照合する。
func (s *Service) LoginURL() (url string, state string, err error) {
	state, err = s.states.Generate()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return s.oauth.GetLoginURL(state), state, nil
}

// HandleCallback はOAuthコールバックを処理し、セッショントークンを発行する。
// stateパラメータとクッキーのstateが一致し、かつ署名が有効であることを要求する。
// 未登録ユーザーの場合はprofilesレコードを自動作成し、Googleの資格情報を
// upsertで保存する。
func (s *Service) HandleCallback(ctx context.Context, code, state, cookieState string) (*CallbackResult, error) {
	if state == "" || cookieState == "" || state != cookieState || !s.states.Verify(state) {
		return nil, model.NewStateMismatchError()
	}

	cred, userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	profile, err := s.profileRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		profile = &model.Profile{
			UserEmail: userInfo.Email,
			Username:  userInfo.Name,
		}
		if err := s.profileRepo.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		slog.Info("new profile created",
			slog.String("user_email", userInfo.Email),
		)
	} else if userInfo.Name != "" && profile.Username != userInfo.Name {
		// 再ログイン時にGoogle側の表示名の変更を取り込む
		if err := s.profileRepo.UpdateUsername(ctx, profile.ID, userInfo.Name); err != nil {
			return nil, fmt.Errorf("failed to sync username: %w", err)
		}
		profile.Username = userInfo.Name
	}

	// Googleは再ログイン時にrefresh_tokenを省略することがあるため、
	// 既存の資格情報からrefresh_tokenを引き継ぐ。
	if cred.RefreshToken == "" {
		existing, err := s.credRepo.FindByEmail(ctx, userInfo.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find existing credential: %w", err)
		}
		if existing != nil {
			cred.RefreshToken = existing.RefreshToken
		}
	}

	cred.ProfileID = profile.ID
	if err := s.credRepo.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save google credential: %w", err)
	}

	token, err := s.tokens.Issue(userInfo.Email, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_email", userInfo.Email),
	)

	return &CallbackResult{
		SessionToken: token,
		Profile:      profile,
	}, nil
}

// GetCurrentUser はメールアドレスからプロフィールを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userEmail string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewUnauthorizedError()
	}
	return profile, nil
}
