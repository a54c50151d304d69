package services

import (
	"context"

	"github.com/echolist/backend-go/internal/models"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockUserRepo 模拟用户仓库
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetDB() *gorm.DB {
	args := m.Called()
	db, _ := args.Get(0).(*gorm.DB)
	return db
}

func (m *MockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, userID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, userID, updates)
	return args.Error(0)
}

// MockConnectionRepo 模拟关系仓库
type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) GetDB() *gorm.DB {
	args := m.Called()
	db, _ := args.Get(0).(*gorm.DB)
	return db
}

func (m *MockConnectionRepo) Create(ctx context.Context, conn *models.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, connectionID uint) (*models.Connection, error) {
	args := m.Called(ctx, connectionID)
	conn, _ := args.Get(0).(*models.Connection)
	return conn, args.Error(1)
}

func (m *MockConnectionRepo) GetBetween(ctx context.Context, userX, userY uint) (*models.Connection, error) {
	args := m.Called(ctx, userX, userY)
	conn, _ := args.Get(0).(*models.Connection)
	return conn, args.Error(1)
}

func (m *MockConnectionRepo) ListForUser(ctx context.Context, userID uint, connType *models.ConnectionType, status *models.ConnectionStatus) ([]models.Connection, error) {
	args := m.Called(ctx, userID, connType, status)
	conns, _ := args.Get(0).([]models.Connection)
	return conns, args.Error(1)
}

func (m *MockConnectionRepo) Update(ctx context.Context, connectionID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, connectionID, updates)
	return args.Error(0)
}

func (m *MockConnectionRepo) Delete(ctx context.Context, connectionID uint) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

// MockSectionRepo 模拟分区仓库
type MockSectionRepo struct {
	mock.Mock
}

func (m *MockSectionRepo) GetDB() *gorm.DB {
	args := m.Called()
	db, _ := args.Get(0).(*gorm.DB)
	return db
}

func (m *MockSectionRepo) Create(ctx context.Context, section *models.Section) error {
	args := m.Called(ctx, section)
	return args.Error(0)
}

func (m *MockSectionRepo) GetByID(ctx context.Context, sectionID uint) (*models.Section, error) {
	args := m.Called(ctx, sectionID)
	section, _ := args.Get(0).(*models.Section)
	return section, args.Error(1)
}

func (m *MockSectionRepo) ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Section, error) {
	args := m.Called(ctx, ownerUserID)
	sections, _ := args.Get(0).([]models.Section)
	return sections, args.Error(1)
}

func (m *MockSectionRepo) Update(ctx context.Context, sectionID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, sectionID, updates)
	return args.Error(0)
}

func (m *MockSectionRepo) Delete(ctx context.Context, sectionID uint) error {
	args := m.Called(ctx, sectionID)
	return args.Error(0)
}

func (m *MockSectionRepo) GetAccessRule(ctx context.Context, sectionID uint, connType models.ConnectionType) (*models.SectionAccess, error) {
	args := m.Called(ctx, sectionID, connType)
	rule, _ := args.Get(0).(*models.SectionAccess)
	return rule, args.Error(1)
}

func (m *MockSectionRepo) ListAccessRules(ctx context.Context, sectionID uint) ([]models.SectionAccess, error) {
	args := m.Called(ctx, sectionID)
	rules, _ := args.Get(0).([]models.SectionAccess)
	return rules, args.Error(1)
}

func (m *MockSectionRepo) CreateAccessRule(ctx context.Context, rule *models.SectionAccess) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockSectionRepo) UpdateAccessRule(ctx context.Context, ruleID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, ruleID, updates)
	return args.Error(0)
}

// MockItemRepo 模拟条目仓库
type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) GetDB() *gorm.DB {
	args := m.Called()
	db, _ := args.Get(0).(*gorm.DB)
	return db
}

func (m *MockItemRepo) Create(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepo) GetByID(ctx context.Context, itemID uint) (*models.Item, error) {
	args := m.Called(ctx, itemID)
	item, _ := args.Get(0).(*models.Item)
	return item, args.Error(1)
}

func (m *MockItemRepo) ListBySection(ctx context.Context, sectionID uint) ([]models.Item, error) {
	args := m.Called(ctx, sectionID)
	items, _ := args.Get(0).([]models.Item)
	return items, args.Error(1)
}

func (m *MockItemRepo) ListBySections(ctx context.Context, sectionIDs []uint) ([]models.Item, error) {
	args := m.Called(ctx, sectionIDs)
	items, _ := args.Get(0).([]models.Item)
	return items, args.Error(1)
}

func (m *MockItemRepo) Update(ctx context.Context, itemID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, itemID, updates)
	return args.Error(0)
}

func (m *MockItemRepo) Delete(ctx context.Context, itemID uint) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}
