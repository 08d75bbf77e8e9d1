package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// RoomStore 基于 SQL 的房间存储。
// 约束：
// - rooms 表以 id 为主键
// - idx_participant1 / idx_participant2 支撑按用户列出房间
type RoomStore struct{ DB *sql.DB }

func NewRoomStore(db *sql.DB) *RoomStore { return &RoomStore{DB: db} }

func (s *RoomStore) Create(ctx context.Context, r *models.Room) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO rooms(id, kind, participant1_id, participant2_id, created_at, last_message_at) VALUES(?,?,?,?,?,?)`, r.ID, string(r.Kind), r.Participant1ID, r.Participant2ID, r.CreatedAt, r.LastMessageAt)
	return err
}

func (s *RoomStore) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, kind, participant1_id, participant2_id, created_at, last_message_at FROM rooms WHERE id=?`, roomID)
	return scanRoom(row)
}

// FindByParticipants 查找既有房间；两参与者不区分方向。
func (s *RoomStore) FindByParticipants(ctx context.Context, kind models.RoomKind, a, b string) (*models.Room, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, kind, participant1_id, participant2_id, created_at, last_message_at FROM rooms WHERE kind=? AND ((participant1_id=? AND participant2_id=?) OR (participant1_id=? AND participant2_id=?)) LIMIT 1`, string(kind), a, b, b, a)
	return scanRoom(row)
}

// ListByUser 列出用户参与的房间，按最近消息时间倒序，并联表补充双方展示名。
func (s *RoomStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Room, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT r.id, r.kind, r.participant1_id, r.participant2_id, r.created_at, r.last_message_at, COALESCE(u1.display_name,''), COALESCE(u2.display_name,'') FROM rooms r LEFT JOIN users u1 ON u1.id=r.participant1_id LEFT JOIN users u2 ON u2.id=r.participant2_id WHERE r.participant1_id=? OR r.participant2_id=? ORDER BY r.last_message_at DESC LIMIT ?`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*models.Room
	for rows.Next() {
		r := &models.Room{}
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Participant1ID, &r.Participant2ID, &r.CreatedAt, &r.LastMessageAt, &r.Participant1Name, &r.Participant2Name); err != nil {
			return nil, err
		}
		r.Kind = models.RoomKind(kind)
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *RoomStore) TouchLastMessage(ctx context.Context, roomID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE rooms SET last_message_at=? WHERE id=?`, at, roomID)
	return err
}

func scanRoom(row *sql.Row) (*models.Room, error) {
	r := &models.Room{}
	var kind string
	if err := row.Scan(&r.ID, &kind, &r.Participant1ID, &r.Participant2ID, &r.CreatedAt, &r.LastMessageAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.Kind = models.RoomKind(kind)
	return r, nil
}
