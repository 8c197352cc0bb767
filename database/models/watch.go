package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Watch 收藏记录
// ImageKey 是图片的唯一事实来源，ImageURL 只在读取时由存储 key 推导
type Watch struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   string    `gorm:"size:36;not null;index:idx_watch_owner" json:"owner_id"`
	BrandID   string    `gorm:"size:36;not null;index" json:"brand_id"`
	Brand     Brand     `gorm:"foreignKey:BrandID" json:"brand"`
	Line      string    `gorm:"size:255;not null" json:"model"`
	Reference string    `gorm:"size:128" json:"reference"`
	Price     float64   `gorm:"not null" json:"price"`
	Link      string    `gorm:"size:2048" json:"link"`
	ImageKey  *string   `gorm:"size:512" json:"image_key,omitempty"`
	ImageURL  string    `gorm:"-" json:"image_url,omitempty"`
	Acquired  bool      `gorm:"not null" json:"acquired"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Watch) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// HasImage 是否挂载了图片
func (w *Watch) HasImage() bool {
	return w.ImageKey != nil && *w.ImageKey != ""
}
