package repository

import (
	"time"

	"github.com/hitoshi/secretbox/internal/model"
)

// newTestUser はGoogle連携ユーザーのテストデータを生成する。
func newTestUser(googleID string) *model.User {
	now := time.Now()
	return &model.User{
		ID:        "test-user-id",
		GoogleID:  googleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
