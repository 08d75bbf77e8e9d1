package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// 用户存储（MySQL）
type UserStore struct{ DB *sql.DB }

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{DB: db} }

// 创建用户
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users(id, username, password, display_name, user_type, created_at, updated_at) VALUES(?,?,?,?,?,NOW(),NOW())`, u.ID, u.Username, u.Password, u.DisplayName, u.UserType)
	return err
}

// 按用户名查询
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, username, password, display_name, user_type, created_at, updated_at FROM users WHERE username=?`, username)
	return scanUser(row)
}

// 按 ID 查询用户
func (s *UserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, username, password, display_name, user_type, created_at, updated_at FROM users WHERE id=?`, userID)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.DisplayName, &u.UserType, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// 更新用户资料
func (s *UserStore) UpdateUser(ctx context.Context, u *models.User) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE users SET display_name=?, updated_at=? WHERE id=?`, u.DisplayName, time.Now(), u.ID)
	return err
}
