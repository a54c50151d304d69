package repository

import (
	"context"
	"errors"

	"github.com/echolist/backend-go/internal/models"
	"gorm.io/gorm"
)

// connectionRepository 用户关系仓库实现
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository 创建用户关系仓库
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建关系记录
func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

// GetByID 根据ID获取关系，不存在时返回 (nil, nil)
func (r *connectionRepository) GetByID(ctx context.Context, connectionID uint) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).Where("connection_id = ?", connectionID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetBetween 获取两个用户之间的关系
// 存储方向由发起方决定，所以两个方向都要查。一对用户最多一条记录；
// 若约束被破坏出现重复，取第一条（既有缺陷的兼容行为，不是特性）。
func (r *connectionRepository) GetBetween(ctx context.Context, userX, userY uint) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Where("(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)",
			userX, userY, userY, userX).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListForUser 列出用户参与的全部关系，可按类型/状态过滤
func (r *connectionRepository) ListForUser(ctx context.Context, userID uint, connType *models.ConnectionType, status *models.ConnectionStatus) ([]models.Connection, error) {
	query := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID)

	if connType != nil {
		query = query.Where("connection_type = ?", *connType)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var connections []models.Connection
	if err := query.Order("connection_id").Find(&connections).Error; err != nil {
		return nil, err
	}
	return connections, nil
}

// Update 更新关系
func (r *connectionRepository) Update(ctx context.Context, connectionID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("connection_id = ?", connectionID).
		Updates(updates).Error
}

// Delete 删除关系
func (r *connectionRepository) Delete(ctx context.Context, connectionID uint) error {
	return r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Delete(&models.Connection{}).Error
}
