package api

import (
	"net/http"

	"github.com/anoixa/watchbox/api/common"
	"github.com/anoixa/watchbox/internal/services/auth"

	"github.com/gin-gonic/gin"
)

// LoginHandler 登录处理器
type LoginHandler struct {
	authService *auth.Service
}

// NewLoginHandler 创建登录处理器
func NewLoginHandler(authService *auth.Service) *LoginHandler {
	return &LoginHandler{authService: authService}
}

type userAuthRequestBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenExpiry int64  `json:"access_token_expiry"`
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
}

// LoginHandlerFunc user login
func (h *LoginHandler) LoginHandlerFunc(context *gin.Context) {
	if h.authService == nil {
		common.RespondError(context, http.StatusInternalServerError, "Login service not initialized")
		return
	}

	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, "Username and password are required")
		return
	}

	result, err := h.authService.Login(context.Request.Context(), req.Username, req.Password)
	if err != nil {
		common.RespondErr(context, err)
		return
	}

	common.RespondSuccessMessage(context, "Login successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.ExpiresAt.Unix(),
		UserID:            result.User.ID,
		Username:          result.User.Username,
	})
}
