package images

import (
	"github.com/anoixa/watchbox/internal/services/images"
)

// Handler 公开图片访问处理器
type Handler struct {
	images *images.Service
}

// NewHandler 创建公开图片处理器
func NewHandler(imagesService *images.Service) *Handler {
	return &Handler{images: imagesService}
}
