package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/secretbox/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, password_hash, google_id, secret, created_at, updated_at`

// scanUser は1行をmodel.Userに読み込む。NULL許容カラムは空文字に正規化する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var username, passwordHash, googleID, secret sql.NullString

	err := row.Scan(&user.ID, &username, &passwordHash, &googleID, &secret, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Username = username.String
	user.PasswordHash = passwordHash.String
	user.GoogleID = googleID.String
	user.Secret = secret.String

	return user, nil
}

// nullable は空文字をNULLとして格納するためのヘルパー。
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はローカル登録ユーザーをユーザー名で検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleのsubject IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`,
		googleID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, google_id, secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULL, $5, $6)`,
		user.ID, nullable(user.Username), nullable(user.PasswordHash), nullable(user.GoogleID),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindOrCreateByGoogleID はgoogle_idをキーにfind-or-createを行う。
// ON CONFLICT DO NOTHINGの条件付きINSERTと再SELECTの組み合わせにより、
// 同一subject IDへの並行呼び出しでも重複アカウントを作らない。
// users.google_idのUNIQUE制約が前提となる。
func (r *PostgresUserRepo) FindOrCreateByGoogleID(ctx context.Context, user *model.User) (*model.User, error) {
	if user.GoogleID == "" {
		return nil, fmt.Errorf("google ID is required for find-or-create")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, google_id, secret, created_at, updated_at)
		 VALUES ($1, NULL, NULL, $2, NULL, $3, $4)
		 ON CONFLICT (google_id) DO NOTHING`,
		user.ID, user.GoogleID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user by google ID: %w", err)
	}

	// INSERTの成否に関わらず、google_idに対応する1行が確定している
	found, err := r.FindByGoogleID(ctx, user.GoogleID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("user not found after find-or-create")
	}

	return found, nil
}

// UpdateSecret は指定ユーザーのシークレットを上書きする。
func (r *PostgresUserRepo) UpdateSecret(ctx context.Context, userID, secret string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET secret = $1, updated_at = now() WHERE id = $2`,
		secret, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// ListWithSecret はシークレットを投稿済みの全ユーザーのシークレットを返す。
func (r *PostgresUserRepo) ListWithSecret(ctx context.Context) ([]model.SharedSecret, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT secret FROM users WHERE secret IS NOT NULL ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []model.SharedSecret
	for rows.Next() {
		var s model.SharedSecret
		if err := rows.Scan(&s.Secret); err != nil {
			return nil, fmt.Errorf("failed to scan secret: %w", err)
		}
		secrets = append(secrets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate secrets: %w", err)
	}

	return secrets, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
