package store

import (
	"context"
	"database/sql"

	"github.com/sankethl27/raya/internal/models"
)

// MessageStore 基于 SQL 的消息存储实现（MySQL/TiDB 兼容）。
// 约束：
// - messages 表以 id 为主键保障幂等（INSERT IGNORE）
// - idx_room_created 支撑按房间时间序拉取
type MessageStore struct{ DB *sql.DB }

func NewMessageStore(db *sql.DB) *MessageStore { return &MessageStore{DB: db} }

// Append 插入消息；使用 INSERT IGNORE 实现幂等写入。
func (s *MessageStore) Append(ctx context.Context, m *models.Message) error {
	_, err := s.DB.ExecContext(ctx, `INSERT IGNORE INTO messages(id, room_id, sender_id, body, created_at) VALUES(?,?,?,?,?)`, m.ID, m.RoomID, m.SenderID, m.Body, m.CreatedAt)
	return err
}

// ListByRoom 按房间拉取历史，createdAt 升序（轮询接口的权威快照）。
func (s *MessageStore) ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, room_id, sender_id, body, created_at FROM messages WHERE room_id=? ORDER BY created_at ASC, id ASC LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
