package repository

import (
	"context"

	"github.com/echolist/backend-go/internal/models"
	"gorm.io/gorm"
)

// Repository 基础仓库接口
type Repository interface {
	GetDB() *gorm.DB
}

// UserRepository 用户仓库接口
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, userID uint, updates map[string]interface{}) error
}

// ConnectionRepository 用户关系仓库接口
// GetBetween 必须同时检查两个存储方向，任一方都可能是发起者。
type ConnectionRepository interface {
	Repository
	Create(ctx context.Context, conn *models.Connection) error
	GetByID(ctx context.Context, connectionID uint) (*models.Connection, error)
	GetBetween(ctx context.Context, userX, userY uint) (*models.Connection, error)
	ListForUser(ctx context.Context, userID uint, connType *models.ConnectionType, status *models.ConnectionStatus) ([]models.Connection, error)
	Update(ctx context.Context, connectionID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, connectionID uint) error
}

// SectionRepository 分区仓库接口
type SectionRepository interface {
	Repository
	Create(ctx context.Context, section *models.Section) error
	GetByID(ctx context.Context, sectionID uint) (*models.Section, error)
	ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Section, error)
	Update(ctx context.Context, sectionID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, sectionID uint) error

	GetAccessRule(ctx context.Context, sectionID uint, connType models.ConnectionType) (*models.SectionAccess, error)
	ListAccessRules(ctx context.Context, sectionID uint) ([]models.SectionAccess, error)
	CreateAccessRule(ctx context.Context, rule *models.SectionAccess) error
	UpdateAccessRule(ctx context.Context, ruleID uint, updates map[string]interface{}) error
}

// ItemRepository 条目仓库接口
type ItemRepository interface {
	Repository
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, itemID uint) (*models.Item, error)
	ListBySection(ctx context.Context, sectionID uint) ([]models.Item, error)
	ListBySections(ctx context.Context, sectionIDs []uint) ([]models.Item, error)
	Update(ctx context.Context, itemID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, itemID uint) error
}
