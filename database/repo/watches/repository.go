package watches

import (
	"context"

	"github.com/anoixa/watchbox/database"
	"github.com/anoixa/watchbox/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entity = "Watch"

// Repository 收藏记录仓库，所有查询都带 owner 条件
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的记录仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB 返回底层数据库连接
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// ordered 列表排序：未入手在前，价格从高到低
func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("acquired ASC").Order("price DESC").Order("created_at ASC")
}

// ListByOwner 获取用户的全部记录，带品牌
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Watch, error) {
	var watches []models.Watch
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Where("owner_id = ?", ownerID).
		Scopes(ordered).
		Find(&watches).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return watches, nil
}

// GetByID 获取单条记录
func (r *Repository) GetByID(ctx context.Context, ownerID, id string) (*models.Watch, error) {
	var watch models.Watch
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&watch).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return &watch, nil
}

// Create 创建记录并返回带品牌的完整记录
func (r *Repository) Create(ctx context.Context, watch *models.Watch) (*models.Watch, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(watch).Error; err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return r.GetByID(ctx, watch.OwnerID, watch.ID)
}

// Update 部分更新，未命中返回 NotFound
func (r *Repository) Update(ctx context.Context, ownerID, id string, updates map[string]interface{}) (*models.Watch, error) {
	if len(updates) == 0 {
		return r.GetByID(ctx, ownerID, id)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Watch{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, database.TranslateError(result.Error, entity)
	}
	if result.RowsAffected == 0 {
		return nil, database.TranslateError(gorm.ErrRecordNotFound, entity)
	}
	return r.GetByID(ctx, ownerID, id)
}

// ToggleAcquired 单条 UPDATE 翻转入手状态
func (r *Repository) ToggleAcquired(ctx context.Context, ownerID, id string) (*models.Watch, error) {
	return r.Update(ctx, ownerID, id, map[string]interface{}{
		"acquired": gorm.Expr("NOT acquired"),
	})
}

// Delete 删除记录，未命中返回 NotFound
func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Watch{})
	if result.Error != nil {
		return database.TranslateError(result.Error, entity)
	}
	if result.RowsAffected == 0 {
		return database.TranslateError(gorm.ErrRecordNotFound, entity)
	}
	return nil
}

// ListWithImages 分页获取带图片的记录，按 id 游标
func (r *Repository) ListWithImages(ctx context.Context, afterID string, limit int) ([]models.Watch, error) {
	var watches []models.Watch
	err := r.db.WithContext(ctx).
		Where("image_key IS NOT NULL AND image_key <> ''").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&watches).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return watches, nil
}

// ClearImageKeyIfMatch 仅当 image_key 仍为指定值时清空，避免覆盖并发写入
func (r *Repository) ClearImageKeyIfMatch(ctx context.Context, id, key string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Watch{}).
		Where("id = ? AND image_key = ?", id, key).
		Update("image_key", nil)
	if result.Error != nil {
		return false, database.TranslateError(result.Error, entity)
	}
	return result.RowsAffected > 0, nil
}

// CountByOwner 统计用户记录数
func (r *Repository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Watch{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, database.TranslateError(err, entity)
	}
	return count, nil
}
