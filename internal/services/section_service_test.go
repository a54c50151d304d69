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

var (
	nilConnType = (*models.ConnectionType)(nil)
	nilStatus   = (*models.ConnectionStatus)(nil)
)

func newSectionService(sections *MockSectionRepo, conns *MockConnectionRepo) *SectionService {
	resolver := authz.NewResolver(conns, sections, nil)
	return NewSectionService(sections, conns, resolver)
}

func expectInvalidation(conns *MockConnectionRepo, ownerID uint) {
	conns.On("ListForUser", mock.Anything, ownerID, nilConnType, nilStatus).
		Return([]models.Connection{}, nil)
}

func TestSectionCreate(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	sections.On("Create", mock.Anything, mock.MatchedBy(func(sec *models.Section) bool {
		return sec.OwnerUserID == 1 && sec.SectionName == "Groceries"
	})).Return(nil)
	svc := newSectionService(sections, conns)

	section, err := svc.Create(context.Background(), 1, CreateSectionRequest{SectionName: "Groceries"})

	require.NoError(t, err)
	assert.Equal(t, uint(1), section.OwnerUserID)
	sections.AssertExpectations(t)
}

// 共享分区场景：A 把 Groceries 开放给 Family 关系查看。
// B 与 A 有 Family 关系，可以读取；C 没有关系，被拒绝。
func TestSectionGetViaAccessRule(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	groceries := &models.Section{SectionID: 10, OwnerUserID: 1, SectionName: "Groceries"}

	sections.On("GetByID", mock.Anything, uint(10)).Return(groceries, nil)
	conns.On("GetBetween", mock.Anything, uint(2), uint(1)).Return(&models.Connection{
		UserAID: 1, UserBID: 2, ConnectionType: models.ConnectionFamily, Status: models.ConnectionAccepted,
	}, nil)
	sections.On("GetAccessRule", mock.Anything, uint(10), models.ConnectionFamily).
		Return(&models.SectionAccess{SectionID: 10, AllowedConnectionType: models.ConnectionFamily, CanView: true}, nil)
	svc := newSectionService(sections, conns)

	section, err := svc.Get(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", section.SectionName)
}

func TestSectionGetNoConnectionDenied(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	conns.On("GetBetween", mock.Anything, uint(3), uint(1)).Return(nil, nil)
	svc := newSectionService(sections, conns)

	_, err := svc.Get(context.Background(), 3, 10)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
}

func TestSectionGetNotFoundBeforePermission(t *testing.T) {
	sections := new(MockSectionRepo)
	sections.On("GetByID", mock.Anything, uint(99)).Return(nil, nil)
	svc := newSectionService(sections, new(MockConnectionRepo))

	_, err := svc.Get(context.Background(), 3, 99)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestSectionUpdateByNonOwnerDenied(t *testing.T) {
	sections := new(MockSectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	svc := newSectionService(sections, new(MockConnectionRepo))

	name := "Renamed"
	_, err := svc.Update(context.Background(), 2, 10, UpdateSectionRequest{SectionName: &name})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
	sections.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetAccessRuleByNonOwnerDenied(t *testing.T) {
	sections := new(MockSectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	svc := newSectionService(sections, new(MockConnectionRepo))

	_, err := svc.SetAccessRule(context.Background(), 2, 10, AccessRuleRequest{
		AllowedConnectionType: models.ConnectionFamily,
		CanView:               true,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
}

func TestSetAccessRuleCreates(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	sections.On("GetAccessRule", mock.Anything, uint(10), models.ConnectionFamily).Return(nil, nil)
	sections.On("CreateAccessRule", mock.Anything, mock.MatchedBy(func(r *models.SectionAccess) bool {
		return r.SectionID == 10 && r.CanView && !r.CanEdit
	})).Return(nil)
	expectInvalidation(conns, 1)
	svc := newSectionService(sections, conns)

	rule, err := svc.SetAccessRule(context.Background(), 1, 10, AccessRuleRequest{
		AllowedConnectionType: models.ConnectionFamily,
		CanView:               true,
	})

	require.NoError(t, err)
	assert.True(t, rule.CanView)
	assert.False(t, rule.CanEdit)
	sections.AssertExpectations(t)
}

func TestSetAccessRuleOverwrites(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	sections.On("GetAccessRule", mock.Anything, uint(10), models.ConnectionFamily).
		Return(&models.SectionAccess{SectionAccessID: 5, SectionID: 10, AllowedConnectionType: models.ConnectionFamily, CanView: true}, nil)
	sections.On("UpdateAccessRule", mock.Anything, uint(5), map[string]interface{}{
		"can_view": true,
		"can_edit": true,
	}).Return(nil)
	expectInvalidation(conns, 1)
	svc := newSectionService(sections, conns)

	rule, err := svc.SetAccessRule(context.Background(), 1, 10, AccessRuleRequest{
		AllowedConnectionType: models.ConnectionFamily,
		CanView:               true,
		CanEdit:               true,
	})

	require.NoError(t, err)
	assert.True(t, rule.CanEdit)
	sections.AssertNotCalled(t, "CreateAccessRule", mock.Anything, mock.Anything)
}

func TestListAccessRulesOwnerOnly(t *testing.T) {
	sections := new(MockSectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	svc := newSectionService(sections, new(MockConnectionRepo))

	_, err := svc.ListAccessRules(context.Background(), 2, 10)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAccessDenied))
}

func TestSectionDeleteOwner(t *testing.T) {
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	sections.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Section{SectionID: 10, OwnerUserID: 1}, nil)
	sections.On("Delete", mock.Anything, uint(10)).Return(nil)
	expectInvalidation(conns, 1)
	svc := newSectionService(sections, conns)

	err := svc.Delete(context.Background(), 1, 10)
	require.NoError(t, err)
	sections.AssertExpectations(t)
}
