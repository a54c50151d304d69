package services

import (
	"context"
	"testing"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileUsernameTaken(t *testing.T) {
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{UserID: 1, Username: "alice", Email: "alice@example.com"}, nil)
	users.On("GetByUsername", mock.Anything, "bob").
		Return(&models.User{UserID: 2, Username: "bob"}, nil)
	svc := NewUserService(users)

	name := "bob"
	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{Username: &name})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileSameUsernameNoCheck(t *testing.T) {
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{UserID: 1, Username: "alice", Email: "alice@example.com"}, nil)
	svc := NewUserService(users)

	name := "alice"
	user, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{Username: &name})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileEmailNormalizedAndSaved(t *testing.T) {
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{UserID: 1, Username: "alice", Email: "alice@example.com"}, nil)
	users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
	users.On("Update", mock.Anything, uint(1), map[string]interface{}{
		"email": "new@example.com",
	}).Return(nil)
	svc := NewUserService(users)

	email := " New@Example.com "
	user, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{Email: &email})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	users.AssertExpectations(t)
}

func TestGetProfileNotFound(t *testing.T) {
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(9)).Return(nil, nil)
	svc := NewUserService(users)

	_, err := svc.GetProfile(context.Background(), 9)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceNotFound))
}
