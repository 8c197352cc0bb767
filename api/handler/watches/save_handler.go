package watches

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/api/middleware"
	"github.com/anoixa/watchbox/internal/services/orchestrator"
	"github.com/gin-gonic/gin"
)

// CreateWatch 新建收藏，可附带 image 文件
func (h *Handler) CreateWatch(c *gin.Context) {
	h.save(c, orchestrator.ModeCreate, "")
}

// UpdateWatch 编辑收藏
func (h *Handler) UpdateWatch(c *gin.Context) {
	h.save(c, orchestrator.ModeUpdate, c.Param("id"))
}

func (h *Handler) save(c *gin.Context, mode orchestrator.Mode, id string) {
	var form saveForm
	if err := c.ShouldBind(&form); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	image, closeImage, err := openImage(c)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid image file")
		return
	}
	defer closeImage()

	result, err := h.orchestrator.Save(c.Request.Context(), orchestrator.SaveRequest{
		Mode:            mode,
		Owner:           middleware.GetUserID(c),
		RecordID:        id,
		Brand:           form.Brand,
		Model:           form.Model,
		Price:           form.Price,
		Reference:       form.Reference,
		Link:            form.Link,
		Acquired:        form.Acquired,
		Image:           image,
		ImageRemoved:    form.ImageRemoved,
		CurrentImageURL: form.CurrentImage,
	})
	if err != nil {
		common.RespondErr(c, err)
		return
	}

	message := "Watch updated successfully"
	if result.Created {
		message = "Watch added successfully"
	}
	if result.Warning != "" {
		message = result.Warning
	}

	if result.Created {
		common.RespondCreated(c, message, result)
		return
	}
	common.RespondSuccessMessage(c, message, result)
}

// openImage 读取可选的 image 文件，未提供时返回 nil
func openImage(c *gin.Context) (io.Reader, func(), error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return file, func() {
		if err := file.Close(); err != nil {
			log.Printf("[Watches] Failed to close uploaded file: %v", err)
		}
	}, nil
}
