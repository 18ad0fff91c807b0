package repository

import (
	"context"
	"testing"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// FindOrCreateByGoogleIDはGoogleID未設定の入力を拒否することを検証
// （DB接続なしで入力検証のみ確認できる）
func TestPostgresUserRepo_FindOrCreateByGoogleID_RequiresGoogleID(t *testing.T) {
	repo := NewPostgresUserRepo(nil)

	_, err := repo.FindOrCreateByGoogleID(context.Background(), newTestUser(""))
	if err == nil {
		t.Fatal("expected error for empty google ID")
	}
}

// nullableは空文字をNULLへ変換することを検証
func TestNullable(t *testing.T) {
	if v := nullable(""); v.Valid {
		t.Error("empty string should map to NULL")
	}
	if v := nullable("alice"); !v.Valid || v.String != "alice" {
		t.Errorf("nullable(%q) = %+v, want valid %q", "alice", v, "alice")
	}
}
