package services

import (
	"context"
	"strings"
	"time"

	"github.com/echolist/backend-go/internal/auth"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 注册登录服务
type AuthService struct {
	users repository.UserRepository
	jwt   *auth.JWTService
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NewAuthService 创建认证服务
func NewAuthService(users repository.UserRepository, jwt *auth.JWTService) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

// Register 注册新用户，用户名和邮箱唯一
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to check email").WithCause(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("email already registered")
	}

	existing, err = s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to check username").WithCause(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to hash password").WithCause(err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// 并发注册竞态由唯一约束兜底
		return nil, apperrors.Translate(err)
	}

	token, err := s.jwt.GenerateToken(user.UserID, user.Username, user.Email)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to issue token").WithCause(err)
	}

	logger.Info("user registered", zap.Uint("user_id", user.UserID), zap.String("username", user.Username))
	return &AuthResponse{Token: token, User: user}, nil
}

// Login 密码登录
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up user").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeUnauthorized, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeUnauthorized, "invalid email or password")
	}

	now := time.Now()
	if err := s.users.Update(ctx, user.UserID, map[string]interface{}{"last_login": now}); err != nil {
		logger.Warn("failed to record last login", zap.Uint("user_id", user.UserID), zap.Error(err))
	}
	user.LastLogin = &now

	token, err := s.jwt.GenerateToken(user.UserID, user.Username, user.Email)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to issue token").WithCause(err)
	}

	return &AuthResponse{Token: token, User: user}, nil
}

// GetCurrentUser 按ID取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up user").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user")
	}
	return user, nil
}
