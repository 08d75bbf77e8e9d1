package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sankethl27/raya/internal/auth"
	"github.com/sankethl27/raya/internal/models"
	"github.com/sankethl27/raya/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists  = errors.New("username already taken")
	ErrBadLogin    = errors.New("invalid username or password")
	ErrBadUserType = errors.New("invalid user type")
)

// AuthService 注册/登录：
// - 密码 bcrypt 加盐存储
// - 登录签发 7 天有效期 JWT（uid 声明）
type AuthService struct {
	Users     store.UserStoreInterface
	JWTSecret string
}

func NewAuthService(users store.UserStoreInterface, secret string) *AuthService {
	return &AuthService{Users: users, JWTSecret: secret}
}

func validUserType(t string) bool {
	switch t {
	case "artist", "partner", "venue":
		return true
	}
	return false
}

func (s *AuthService) Register(ctx context.Context, username, password, displayName, userType string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrBadLogin
	}
	if !validUserType(userType) {
		return nil, ErrBadUserType
	}
	exist, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}
	u := &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		Password:    string(hash),
		DisplayName: displayName,
		UserType:    userType,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("Register: 用户注册 username=%s type=%s", username, userType)
	return u, nil
}

// UpdateProfile 更新展示名。
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName string) error {
	if displayName == "" {
		return errors.New("displayName is empty")
	}
	return s.Users.UpdateUser(ctx, &models.User{ID: userID, DisplayName: displayName})
}

// Login 校验密码并签发 token。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, ErrBadLogin
	}
	token, err := auth.SignJWT(s.JWTSecret, u.ID, 7*24*time.Hour)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}
