package watches

import (
	"net/http"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/gin-gonic/gin"
)

// ToggleAcquired 切换已入手状态
func (h *Handler) ToggleAcquired(c *gin.Context) {
	record, err := h.orchestrator.ToggleAcquired(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, record)
}

// DeleteWatch 删除收藏及其图片
func (h *Handler) DeleteWatch(c *gin.Context) {
	if err := h.orchestrator.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Watch deleted successfully", nil)
}

// RetryImage 为已保存的记录重新上传图片
func (h *Handler) RetryImage(c *gin.Context) {
	image, closeImage, err := openImage(c)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image file")
		return
	}
	defer closeImage()

	if image == nil {
		common.RespondError(c, http.StatusBadRequest, "Image is required")
		return
	}

	record, err := h.orchestrator.RetryImage(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), image)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Image uploaded successfully", record)
}
