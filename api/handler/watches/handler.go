package watches

import (
	"github.com/anoixa/watchbox/internal/services/orchestrator"
	"github.com/anoixa/watchbox/internal/services/records"
)

// Handler 收藏记录处理器
type Handler struct {
	records      *records.Service
	orchestrator *orchestrator.Orchestrator
}

// NewHandler 创建收藏记录处理器
func NewHandler(recordsService *records.Service, orch *orchestrator.Orchestrator) *Handler {
	return &Handler{
		records:      recordsService,
		orchestrator: orch,
	}
}

// saveForm 创建/编辑共用的 multipart 表单
type saveForm struct {
	Brand     string `form:"brand"`
	Model     string `form:"model"`
	Price     string `form:"price"`
	Reference string `form:"reference"`
	Link      string `form:"link"`
	Acquired  bool   `form:"acquired"`

	ImageRemoved bool   `form:"image_removed"`
	CurrentImage string `form:"current_image"`
}
