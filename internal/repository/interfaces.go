// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/secretbox/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// すべての操作は単一行のアトミック操作であり、複数ユーザーに
// またがるトランザクションは提供しない。
// キー検索のミスは正常な空結果（nil, nil）であり、エラーと区別する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はローカル登録ユーザーをユーザー名で検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// FindOrCreateByGoogleID はgoogle_idをキーにfind-or-createを行う。
	// 既存ユーザーがいればそれを返し、いなければuserを条件付きINSERTで作成する。
	// 同一subject IDへの並行呼び出しでも重複アカウントを作らない。
	FindOrCreateByGoogleID(ctx context.Context, user *model.User) (*model.User, error)

	// UpdateSecret は指定ユーザーのシークレットを上書きする。
	UpdateSecret(ctx context.Context, userID, secret string) error

	// ListWithSecret はシークレットを投稿済みの全ユーザーのシークレットを返す。
	ListWithSecret(ctx context.Context) ([]model.SharedSecret, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しないIDでもエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
}
