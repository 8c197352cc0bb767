package common

import (
	"log"
	"net/http"

	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/utils"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Reason string      `json:"reason,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondCreated sends a 201 response with data.
func RespondCreated(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusCreated, "success", message, data)
}

// RespondSuccessMessage sends a success response with message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, "success", message, data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort sends an error response and aborts the chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	RespondError(c, httpStatus, message)
	c.Abort()
}

// RespondErr 按错误类别映射状态码，内部错误不暴露细节
func RespondErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		RespondError(c, status, "Internal server error")
		return
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		utils.LogIfDevf("[API] %s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, Response{Status: "error", Msg: e.Error(), Reason: e.Reason})
}
