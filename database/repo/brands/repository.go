package brands

import (
	"context"
	"errors"
	"strings"

	"github.com/anoixa/watchbox/database"
	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/internal/apperr"
	"gorm.io/gorm"
)

const entity = "Brand"

// Repository 品牌仓库，scope 为空串表示全局命名空间
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的品牌仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List 按名称升序列出品牌
func (r *Repository) List(ctx context.Context, scope string) ([]models.Brand, error) {
	var brands []models.Brand
	err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("name ASC").
		Find(&brands).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return brands, nil
}

// FindByName 大小写不敏感精确匹配，不存在时返回 nil, nil
func (r *Repository) FindByName(ctx context.Context, scope, name string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).
		Where("scope = ? AND name_key = ?", scope, models.BrandNameKey(name)).
		First(&brand).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.TranslateError(err, entity)
	}
	return &brand, nil
}

// GetByID 获取品牌
func (r *Repository) GetByID(ctx context.Context, scope, id string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Where("id = ? AND scope = ?", id, scope).First(&brand).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return &brand, nil
}

// Create 创建品牌，同名（忽略大小写）返回 Conflict
func (r *Repository) Create(ctx context.Context, scope, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Brand name is required")
	}

	existing, err := r.FindByName(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("Brand already exists")
	}

	brand := &models.Brand{Name: name, Scope: scope}
	if err := r.db.WithContext(ctx).Create(brand).Error; err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return brand, nil
}

// Rename 重命名品牌，与其它品牌同名时返回 Conflict
func (r *Repository) Rename(ctx context.Context, scope, id, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Brand name is required")
	}

	brand, err := r.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	existing, err := r.FindByName(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, apperr.Conflict("Brand already exists")
	}

	err = r.db.WithContext(ctx).Model(brand).Updates(map[string]interface{}{
		"name":     name,
		"name_key": models.BrandNameKey(name),
	}).Error
	if err != nil {
		return nil, database.TranslateError(err, entity)
	}
	return r.GetByID(ctx, scope, id)
}
