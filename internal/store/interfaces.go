package store

import (
	"context"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// MessageStoreInterface 抽象消息存储，便于切换 memory/MySQL/MongoDB：
// - Append：写入消息（按 id 幂等，重复写入无害）
// - ListByRoom：按房间拉取历史，createdAt 升序
type MessageStoreInterface interface {
	Append(ctx context.Context, m *models.Message) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error)
}

// RoomStoreInterface 会话房间存储。
type RoomStoreInterface interface {
	Create(ctx context.Context, r *models.Room) error
	GetByID(ctx context.Context, roomID string) (*models.Room, error)
	// FindByParticipants 查找同 kind 下两名参与者的既有房间（不区分方向）。
	FindByParticipants(ctx context.Context, kind models.RoomKind, a, b string) (*models.Room, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Room, error)
	TouchLastMessage(ctx context.Context, roomID string, at time.Time) error
}

// UserStoreInterface 用户存储（注册/登录/展示名解析）。
type UserStoreInterface interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}
