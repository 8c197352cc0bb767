package brands

import (
	"net/http"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/anoixa/watchbox/internal/services/records"
	"github.com/gin-gonic/gin"
)

// Handler 品牌处理器
type Handler struct {
	records *records.Service
}

// NewHandler 创建品牌处理器
func NewHandler(recordsService *records.Service) *Handler {
	return &Handler{records: recordsService}
}

type brandRequestBody struct {
	Name string `json:"name" binding:"required"`
}

// ListBrands 列出当前命名空间内的品牌
func (h *Handler) ListBrands(c *gin.Context) {
	list, err := h.records.ListBrands(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{
		"brands": list,
		"total":  len(list),
	})
}

// CreateBrand 新建品牌
func (h *Handler) CreateBrand(c *gin.Context) {
	var req brandRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Brand name is required")
		return
	}

	brand, err := h.records.CreateBrand(c.Request.Context(), middleware.GetUserID(c), req.Name)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondCreated(c, "Brand created successfully", brand)
}

// UpdateBrand 重命名品牌
func (h *Handler) UpdateBrand(c *gin.Context) {
	var req brandRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Brand name is required")
		return
	}

	brand, err := h.records.UpdateBrand(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Name)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Brand updated successfully", brand)
}
