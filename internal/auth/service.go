// Package auth はユーザー認証、トークン発行、リフレッシュフローを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/staffman/internal/model"
	"github.com/hitoshi/staffman/internal/repository"
	"github.com/hitoshi/staffman/internal/token"
)

// dummyPasswordHash はユーザー不存在時にも同等のbcrypt比較を実行するための
// ダミーハッシュ。不存在とパスワード不一致の応答時間差を潰す。
var dummyPasswordHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("staffman-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to generate dummy password hash: %v", err))
	}
	return h
}()

// リフレッシュフローの失敗。ハンドラーが401へマッピングする。
var (
	// ErrRefreshTokenInvalid はストアに存在しないリフレッシュトークン。
	ErrRefreshTokenInvalid = &model.AuthError{Kind: model.KindInvalidCredentials, Message: "Invalid refresh token"}
	// ErrRefreshTokenExpired は期限切れのリフレッシュトークン。
	// 検出時に当該ユーザーの全リフレッシュトークンが削除済みであることを意味する。
	ErrRefreshTokenExpired = &model.AuthError{Kind: model.KindTokenExpired, Message: "Refresh token expired"}
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RefreshTokenTTL time.Duration // 不透明リフレッシュトークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	codec       *token.Codec
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	codec *token.Codec,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		codec:       codec,
		config:      config,
	}
}

// Authenticate はユーザー名とパスワードを検証し、Principalを返す。
// ユーザー名不存在とパスワード不一致はどちらも同一のErrInvalidCredentialsとして
// 返し、呼び出し側から区別できないようにする。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.Principal, error) {
	user, err := s.authenticateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return model.PrincipalFromUser(user), nil
}

// authenticateUser は資格情報を検証し、ユーザーレコードを返す。
func (s *Service) authenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		// 不存在時もbcrypt比較を1回実行し、応答時間を揃える
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// RegisterResult は登録成功時の結果。
type RegisterResult struct {
	Username    string
	AccessToken string
}

// Register は新規ユーザーを作成し、アクセストークンを発行する。
// ユーザー名が既に存在する場合はErrUsernameTakenを返す。
// ロール未指定時は "USER" を付与する。
func (s *Service) Register(ctx context.Context, username, password, role string) (*RegisterResult, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if role == "" {
		role = model.DefaultRole
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	accessToken, err := s.codec.Mint(user.Username, user.Authorities(), token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	slog.Info("user registered",
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)

	return &RegisterResult{
		Username:    user.Username,
		AccessToken: accessToken,
	}, nil
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Principal    *model.Principal
	AccessToken  string
	RefreshToken string
}

// Login は認証に成功したユーザーへアクセストークンと
// 永続化された不透明リフレッシュトークンを発行する。
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.authenticateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	principal := model.PrincipalFromUser(user)

	accessToken, err := s.codec.Mint(principal.Username, principal.Authorities, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	refresh := &model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(s.config.RefreshTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := s.refreshRepo.Create(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	slog.Info("user logged in", slog.String("username", principal.Username))

	return &LoginResult{
		Principal:    principal,
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
	}, nil
}

// RefreshResult はリフレッシュ成功時の結果。
type RefreshResult struct {
	AccessToken  string
	RefreshToken string // 提示されたものと同じ値（ローテーションは行わない）
}

// Refresh は有効なリフレッシュトークンと引き換えに新しいアクセストークンを発行する。
// 期限切れトークンを検出した場合は、そのユーザーの全リフレッシュトークンを
// 即時削除した上でErrRefreshTokenExpiredを返す。
// リフレッシュトークン自体はローテーションせず同じ値を返す（既知の簡略化）。
func (s *Service) Refresh(ctx context.Context, refreshValue string) (*RefreshResult, error) {
	stored, err := s.refreshRepo.FindByToken(ctx, refreshValue)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if stored == nil {
		return nil, ErrRefreshTokenInvalid
	}

	if stored.IsExpired(time.Now()) {
		if err := s.refreshRepo.DeleteByUserID(ctx, stored.UserID); err != nil {
			return nil, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
		}
		slog.Info("expired refresh tokens purged", slog.String("user_id", stored.UserID))
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrRefreshTokenInvalid
	}

	accessToken, err := s.codec.Mint(user.Username, user.Authorities(), token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
	}, nil
}

// LoadPrincipal は検証済みトークンの主体からPrincipalを再構築する。
// ユーザーが存在しない場合は (nil, nil) を返す。
func (s *Service) LoadPrincipal(ctx context.Context, username string) (*model.Principal, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	return model.PrincipalFromUser(user), nil
}

// EnsureAdminUser は管理者ユーザーが存在しない場合に作成する。
// 起動時のブートストラップ用で、再起動しても冪等に動作する。
func (s *Service) EnsureAdminUser(ctx context.Context, username, password, role string) error {
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if exists {
		slog.Info("admin user already exists", slog.String("username", username))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("default admin user created",
		slog.String("username", username),
		slog.String("role", role),
	)
	return nil
}
