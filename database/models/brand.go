package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Brand 品牌，只增不删
// Scope 为空表示全局命名空间，按用户隔离时为 owner id
type Brand struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	NameKey   string    `gorm:"size:128;not null;uniqueIndex:idx_brand_scope_name,priority:2" json:"-"`
	Scope     string    `gorm:"size:36;not null;uniqueIndex:idx_brand_scope_name,priority:1" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BrandNameKey 品牌名归一化，用于大小写不敏感匹配
func BrandNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Name = strings.TrimSpace(b.Name)
	b.NameKey = BrandNameKey(b.Name)
	return nil
}
