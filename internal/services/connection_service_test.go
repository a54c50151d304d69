package services

import (
	"context"
	"testing"

	"github.com/echolist/backend-go/internal/authz"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newConnectionService(conns *MockConnectionRepo, users *MockUserRepo, sections *MockSectionRepo) *ConnectionService {
	resolver := authz.NewResolver(conns, sections, nil)
	return NewConnectionService(conns, users, resolver)
}

func TestConnectionCreateSelfRejected(t *testing.T) {
	svc := newConnectionService(new(MockConnectionRepo), new(MockUserRepo), new(MockSectionRepo))

	_, err := svc.Create(context.Background(), 1, CreateConnectionRequest{
		TargetUserID:   1,
		ConnectionType: models.ConnectionFriend,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestConnectionCreateInvalidType(t *testing.T) {
	svc := newConnectionService(new(MockConnectionRepo), new(MockUserRepo), new(MockSectionRepo))

	_, err := svc.Create(context.Background(), 1, CreateConnectionRequest{
		TargetUserID:   2,
		ConnectionType: "BestFriend",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestConnectionCreateTargetMissing(t *testing.T) {
	conns := new(MockConnectionRepo)
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(2)).Return(nil, nil)
	svc := newConnectionService(conns, users, new(MockSectionRepo))

	_, err := svc.Create(context.Background(), 1, CreateConnectionRequest{
		TargetUserID:   2,
		ConnectionType: models.ConnectionFriend,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestConnectionCreateDuplicateReportsStatus(t *testing.T) {
	conns := new(MockConnectionRepo)
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(2)).Return(&models.User{UserID: 2}, nil)
	// 对方先发起过，方向相反也算重复
	conns.On("GetBetween", mock.Anything, uint(1), uint(2)).Return(&models.Connection{
		ConnectionID: 7,
		UserAID:      2,
		UserBID:      1,
		Status:       models.ConnectionPending,
	}, nil)
	svc := newConnectionService(conns, users, new(MockSectionRepo))

	_, err := svc.Create(context.Background(), 1, CreateConnectionRequest{
		TargetUserID:   2,
		ConnectionType: models.ConnectionFamily,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.Contains(t, err.Error(), "Pending")
}

func TestConnectionCreateSuccess(t *testing.T) {
	conns := new(MockConnectionRepo)
	users := new(MockUserRepo)
	users.On("GetByID", mock.Anything, uint(2)).Return(&models.User{UserID: 2}, nil)
	conns.On("GetBetween", mock.Anything, uint(1), uint(2)).Return(nil, nil)
	conns.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Connection) bool {
		return c.UserAID == 1 && c.UserBID == 2 && c.Status == models.ConnectionPending
	})).Return(nil)
	svc := newConnectionService(conns, users, new(MockSectionRepo))

	conn, err := svc.Create(context.Background(), 1, CreateConnectionRequest{
		TargetUserID:   2,
		ConnectionType: models.ConnectionFamily,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPending, conn.Status)
	conns.AssertExpectations(t)
}

func TestConnectionGetNotFoundBeforePermission(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(99)).Return(nil, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	// 非参与者查询不存在的关系也得到 NotFound，而不是 AccessDenied
	_, err := svc.Get(context.Background(), 5, 99)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestConnectionGetNonParticipantDenied(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2,
	}, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	_, err := svc.Get(context.Background(), 3, 7)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
}

func TestConnectionAcceptByInitiatorDenied(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2, Status: models.ConnectionPending,
	}, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	_, err := svc.Accept(context.Background(), 1, 7)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
	conns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectionAcceptByRecipient(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2, Status: models.ConnectionPending,
	}, nil)
	conns.On("Update", mock.Anything, uint(7), map[string]interface{}{
		"status": models.ConnectionAccepted,
	}).Return(nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	conn, err := svc.Accept(context.Background(), 2, 7)

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, conn.Status)
	conns.AssertExpectations(t)
}

func TestConnectionAcceptIdempotent(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2, Status: models.ConnectionAccepted,
	}, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	conn, err := svc.Accept(context.Background(), 2, 7)

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, conn.Status)
	conns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectionUpdateTypeByRecipientDenied(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2,
	}, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	_, err := svc.UpdateType(context.Background(), 2, 7, models.ConnectionColleague)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
}

func TestConnectionUpdateTypeByInitiator(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2, ConnectionType: models.ConnectionFriend,
	}, nil)
	conns.On("Update", mock.Anything, uint(7), map[string]interface{}{
		"connection_type": models.ConnectionColleague,
	}).Return(nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	conn, err := svc.UpdateType(context.Background(), 1, 7, models.ConnectionColleague)

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionColleague, conn.ConnectionType)
}

func TestConnectionDeleteByEitherSide(t *testing.T) {
	for _, actor := range []uint{1, 2} {
		conns := new(MockConnectionRepo)
		conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
			ConnectionID: 7, UserAID: 1, UserBID: 2,
		}, nil)
		conns.On("Delete", mock.Anything, uint(7)).Return(nil)
		svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

		err := svc.Delete(context.Background(), actor, 7)
		require.NoError(t, err)
	}
}

func TestConnectionDeleteByStrangerDenied(t *testing.T) {
	conns := new(MockConnectionRepo)
	conns.On("GetByID", mock.Anything, uint(7)).Return(&models.Connection{
		ConnectionID: 7, UserAID: 1, UserBID: 2,
	}, nil)
	svc := newConnectionService(conns, new(MockUserRepo), new(MockSectionRepo))

	err := svc.Delete(context.Background(), 9, 7)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
	conns.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
