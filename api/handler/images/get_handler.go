package images

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/utils"
	"github.com/anoixa/watchbox/utils/pool"
	"github.com/gin-gonic/gin"
)

// GetImage 按存储 key 输出图片，GET /{bucket}/{owner}/{record}/{file}
func (h *Handler) GetImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		common.RespondError(c, http.StatusBadRequest, "Image key is required")
		return
	}

	obj, err := h.images.Open(c.Request.Context(), key)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			common.RespondError(c, http.StatusNotFound, "Image not found")
			return
		}
		log.Printf("[GetImage] Failed to open %s: %v", utils.SanitizeLogMessage(key), err)
		common.RespondErr(c, err)
		return
	}
	defer func() { _ = obj.Body.Close() }()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// key 含时间戳，内容不会变化
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=2592000, immutable")
	if obj.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	c.Status(http.StatusOK)

	if c.Request.Method == http.MethodHead {
		return
	}

	if err := streamImage(c.Writer, obj.Body); err != nil {
		log.Printf("[GetImage] Failed to stream %s: %v", utils.SanitizeLogMessage(key), err)
	}
}

// streamImage 使用共享缓冲区拷贝
func streamImage(w io.Writer, r io.Reader) error {
	bufPtr := pool.Get()
	defer pool.Put(bufPtr)

	_, err := io.CopyBuffer(w, r, *bufPtr)
	if err != nil && !isBrokenPipe(err) && !utils.IsClientDisconnect(err) {
		return err
	}
	return nil
}

// isBrokenPipe 检查是否为断开的连接错误
func isBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
