package stats

import (
	"net/http"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/anoixa/watchbox/internal/services/stats"
	"github.com/gin-gonic/gin"
)

// Handler 统计处理器
type Handler struct {
	stats *stats.Service
}

// NewHandler 创建统计处理器
func NewHandler(statsService *stats.Service) *Handler {
	return &Handler{stats: statsService}
}

type summaryQuery struct {
	Currency        string  `form:"currency"`
	BrandID         string  `form:"brand_id"`
	MinPrice        float64 `form:"min_price"`
	MaxPrice        float64 `form:"max_price"`
	IncludeWishlist bool    `form:"include_wishlist"`
}

// GetSummary 收藏统计
func (h *Handler) GetSummary(c *gin.Context) {
	var q summaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	summary, err := h.stats.Summarize(c.Request.Context(), middleware.GetUserID(c), stats.Filter{
		BrandID:         q.BrandID,
		MinPrice:        q.MinPrice,
		MaxPrice:        q.MaxPrice,
		IncludeWishlist: q.IncludeWishlist,
		Currency:        q.Currency,
	})
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, summary)
}
