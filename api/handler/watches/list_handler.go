package watches

import (
	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/anoixa/watchbox/database/models"
	"github.com/gin-gonic/gin"
)

// ListWatches 列出当前用户的收藏，refresh=true 时绕过缓存
func (h *Handler) ListWatches(c *gin.Context) {
	owner := middleware.GetUserID(c)

	var (
		list []models.Watch
		err  error
	)
	if c.Query("refresh") == "true" {
		list, err = h.records.Refresh(c.Request.Context(), owner)
	} else {
		list, err = h.records.ListRecords(c.Request.Context(), owner)
	}
	if err != nil {
		common.RespondErr(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"watches": list,
		"total":   len(list),
	})
}

// GetWatch 获取单条收藏
func (h *Handler) GetWatch(c *gin.Context) {
	record, err := h.records.GetRecord(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, record)
}
