package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はbcryptハッシュのデフォルトコスト。
const DefaultBcryptCost = 10

// dummyHash はユーザー不在時のタイミング攻撃対策用ダミーハッシュ。
// 「ユーザーが存在しない」パスでも必ず1回比較を実行するために使う。
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// HashPassword はbcryptでパスワードのソルト付きハッシュを導出する。
// 平文パスワードはハッシュ化後に保持しない。
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は保存済みハッシュと入力パスワードを定数時間で比較する。
// 一致した場合のみtrueを返す。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyCompare はユーザー不在時にも同等の計算コストを消費する。
// ログイン失敗の応答時間から登録済みユーザー名を推測されないようにする。
func dummyCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
