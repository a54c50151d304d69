package repository

import (
	"context"
	"errors"

	"github.com/echolist/backend-go/internal/models"
	"gorm.io/gorm"
)

// sectionRepository 分区仓库实现
type sectionRepository struct {
	db *gorm.DB
}

// NewSectionRepository 创建分区仓库
func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建分区
func (r *sectionRepository) Create(ctx context.Context, section *models.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

// GetByID 根据ID获取分区，不存在时返回 (nil, nil)
func (r *sectionRepository) GetByID(ctx context.Context, sectionID uint) (*models.Section, error) {
	var section models.Section
	err := r.db.WithContext(ctx).Where("section_id = ?", sectionID).First(&section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// ListByOwner 列出用户拥有的全部分区
func (r *sectionRepository) ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Section, error) {
	var sections []models.Section
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("section_id").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// Update 更新分区
func (r *sectionRepository) Update(ctx context.Context, sectionID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Section{}).
		Where("section_id = ?", sectionID).
		Updates(updates).Error
}

// Delete 删除分区，级联删除由外键约束完成
func (r *sectionRepository) Delete(ctx context.Context, sectionID uint) error {
	return r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Delete(&models.Section{}).Error
}

// GetAccessRule 获取指定分区对某关系类型的访问规则，不存在返回 (nil, nil)
func (r *sectionRepository) GetAccessRule(ctx context.Context, sectionID uint, connType models.ConnectionType) (*models.SectionAccess, error) {
	var rule models.SectionAccess
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND allowed_connection_type = ?", sectionID, connType).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListAccessRules 列出分区的全部访问规则
func (r *sectionRepository) ListAccessRules(ctx context.Context, sectionID uint) ([]models.SectionAccess, error) {
	var rules []models.SectionAccess
	err := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("section_access_id").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// CreateAccessRule 创建访问规则
func (r *sectionRepository) CreateAccessRule(ctx context.Context, rule *models.SectionAccess) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// UpdateAccessRule 更新访问规则
func (r *sectionRepository) UpdateAccessRule(ctx context.Context, ruleID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.SectionAccess{}).
		Where("section_access_id = ?", ruleID).
		Updates(updates).Error
}
