package services

import (
	"context"
	"strings"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/repository"
)

// UserService 用户资料服务
type UserService struct {
	users repository.UserRepository
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=2,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// NewUserService 创建用户服务
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up user").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user")
	}
	return user, nil
}

// UpdateProfile 更新用户资料，用户名与邮箱保持全局唯一
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username != user.Username {
			existing, err := s.users.GetByUsername(ctx, username)
			if err != nil {
				return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to check username").WithCause(err)
			}
			if existing != nil {
				return nil, apperrors.NewConflictError("username already taken")
			}
			updates["username"] = username
			user.Username = username
		}
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to check email").WithCause(err)
			}
			if existing != nil {
				return nil, apperrors.NewConflictError("email already registered")
			}
			updates["email"] = email
			user.Email = email
		}
	}

	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
		user.AvatarURL = *req.AvatarURL
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, userID, updates); err != nil {
		if appErr := apperrors.Translate(err); appErr != nil {
			return nil, appErr
		}
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update profile").WithCause(err)
	}
	return user, nil
}
