// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ローカル登録ユーザーはUsernameとPasswordHashを持ち、
// Google連携で作成されたユーザーはGoogleIDのみを持つ。
// どちらも持たないユーザーは存在しない。
type User struct {
	ID           string
	Username     string // ローカル登録ユーザーのみ。連携アカウントでは空
	PasswordHash string // bcryptハッシュ。連携アカウントでは空。平文は一切保持しない
	GoogleID     string // GoogleのOAuth subject ID。ローカル専用アカウントでは空
	Secret       string // ユーザーが投稿したシークレット本文
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal はユーザーの縮約射影を返す。
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username}
}

// Principal はセッションに格納するユーザーの縮約射影を表す。
// Userの全フィールドをセッションに持ち込まない。
type Principal struct {
	ID       string
	Username string
}

// Session はユーザーのログインセッションを表す。
// Principalの射影（UserID, Username）をサーバー側に保持し、
// 不透明なセッションIDのみをCookieとしてクライアントに渡す。
type Session struct {
	ID        string
	UserID    string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Principal はセッションに格納されたPrincipalを復元する。
func (s *Session) Principal() Principal {
	return Principal{ID: s.UserID, Username: s.Username}
}

// SharedSecret は/secretsで公開するシークレットの表示用データ。
// 投稿者のIDや認証情報は含めない。
type SharedSecret struct {
	Secret string
}
