// Package auth はローカル認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/secretbox/internal/model"
	"github.com/hitoshi/secretbox/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Recorder は認証イベントのメトリクス記録インターフェース。
// metrics.Collectorが実装する。nilの場合は記録しない。
type Recorder interface {
	RecordLoginSuccess(method string)
	RecordLoginFailure(method string)
	RecordRegistration()
	RecordProviderFailure(reason string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // bcryptコスト。0の場合はデフォルト値を使用
}

// Service は認証に関するビジネスロジックを提供する。
// ローカル認証（ユーザー名+パスワード）、Google連携、
// セッションの確立・復元・破棄を担う。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	metrics     Recorder
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	metrics Recorder,
	config ServiceConfig,
) *Service {
	if config.BcryptCost <= 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// Register はローカルユーザーを登録し、セッションを確立する。
// パスワード確認不一致の場合はストアへアクセスせずに失敗する。
// ユーザー名が既存のローカルアカウントと重複する場合も失敗する。
func (s *Service) Register(ctx context.Context, username, password, confirmPassword string) (*model.Session, error) {
	if password != confirmPassword {
		return nil, model.NewPasswordMismatchError()
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError(username)
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to derive password hash: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return s.createSession(ctx, user.Principal())
}

// Login はユーザー名とパスワードでローカル認証し、セッションを確立する。
// ユーザー不在とパスワード不一致は同一のエラーに畳み込み、
// 応答内容からも応答時間からも区別できないようにする。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || user.PasswordHash == "" {
		// 不在でも同等の計算コストを消費する
		dummyCompare(password)
		if s.metrics != nil {
			s.metrics.RecordLoginFailure("local")
		}
		return nil, model.NewInvalidCredentialsError()
	}

	if !VerifyPassword(user.PasswordHash, password) {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure("local")
		}
		return nil, model.NewInvalidCredentialsError()
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess("local")
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", "local"),
	)

	return s.createSession(ctx, user.Principal())
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録のsubject IDの場合はfind-or-createでユーザーを自動作成する。
// 作成されるユーザーはgoogle_idのみを持ち、ユーザー名・パスワードは持たない。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		// タイムアウトを含む全ての交換失敗をProviderUnreachableとして扱う
		if s.metrics != nil {
			s.metrics.RecordProviderFailure("exchange_failed")
		}
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewProviderUnreachableError()
	}

	now := time.Now()
	candidate := &model.User{
		ID:        uuid.New().String(),
		GoogleID:  userInfo.ProviderUserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err := s.userRepo.FindOrCreateByGoogleID(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	if user.ID == candidate.ID {
		slog.Info("new federated user created",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		slog.Info("existing federated user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess("google")
	}

	return s.createSession(ctx, user.Principal())
}

// Logout はセッションを破棄する。
// 既に無効なセッションIDを渡されても成功する（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// Restore はセッショントークンからPrincipalを復元する。
// トークンが無効または期限切れの場合は(nil, nil)を返す。
// 未認証は障害ではないため、エラーにはしない。
func (s *Service) Restore(ctx context.Context, sessionID string) (*model.Principal, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	principal := session.Principal()
	return &principal, nil
}

// createSession はセッションを確立し永続化する。
// ログイン成功のたびに必ず新しいトークンを発行し、
// セッション固定攻撃を防ぐ。既存のセッション状態は引き継がない。
func (s *Service) createSession(ctx context.Context, principal model.Principal) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    principal.ID,
		Username:  principal.Username,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
