package repository

import (
	"context"
	"errors"

	"github.com/echolist/backend-go/internal/models"
	"gorm.io/gorm"
)

// itemRepository 条目仓库实现
type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository 创建条目仓库
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建条目
func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID 根据ID获取条目，不存在时返回 (nil, nil)
func (r *itemRepository) GetByID(ctx context.Context, itemID uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListBySection 列出分区内的全部条目
func (r *itemRepository) ListBySection(ctx context.Context, sectionID uint) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("item_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListBySections 批量列出多个分区的条目，首页聚合用
func (r *itemRepository) ListBySections(ctx context.Context, sectionIDs []uint) ([]models.Item, error) {
	if len(sectionIDs) == 0 {
		return []models.Item{}, nil
	}
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("section_id IN ?", sectionIDs).
		Order("item_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update 更新条目
func (r *itemRepository) Update(ctx context.Context, itemID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).
		Where("item_id = ?", itemID).
		Updates(updates).Error
}

// Delete 删除条目
func (r *itemRepository) Delete(ctx context.Context, itemID uint) error {
	return r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Delete(&models.Item{}).Error
}
