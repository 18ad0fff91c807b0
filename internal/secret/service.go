// Package secret はユーザーのシークレット投稿と公開一覧のドメインロジックを提供する。
//
// 投稿されたシークレットは/secretsで全訪問者に再表示されるため、
// 保存前にbluemondayのStrictPolicyで全HTMLタグを除去し、
// XSS攻撃からユーザーを保護する。
package secret

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/secretbox/internal/model"
	"github.com/hitoshi/secretbox/internal/repository"
)

// Service はシークレットの投稿・公開一覧のサービス層。
type Service struct {
	userRepo repository.UserRepository
	policy   *bluemonday.Policy
}

// NewService はServiceを生成する。
// StrictPolicyはすべてのHTMLタグと属性を除去し、テキストのみを残す。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Submit は呼び出し元ユーザー自身のシークレットを上書きする。
// 本文の長さや内容に制約は設けない（空文字も有効な投稿として扱う）。
// HTMLタグはサニタイズで除去される。
func (s *Service) Submit(ctx context.Context, userID, text string) error {
	sanitized := s.policy.Sanitize(text)

	if err := s.userRepo.UpdateSecret(ctx, userID, sanitized); err != nil {
		return fmt.Errorf("failed to submit secret: %w", err)
	}

	// シークレット本文はログに残さない
	slog.Info("secret submitted", slog.String("user_id", userID))
	return nil
}

// ListShared は投稿済みの全シークレットを返す。
// 認証不要の公開一覧であり、投稿者を特定できる情報は含めない。
func (s *Service) ListShared(ctx context.Context) ([]model.SharedSecret, error) {
	secrets, err := s.userRepo.ListWithSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared secrets: %w", err)
	}
	return secrets, nil
}
