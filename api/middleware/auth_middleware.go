package middleware

import (
	"net/http"
	"strings"

	"github.com/anoixa/watchbox/api/common"
	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// TokenParser 校验令牌并返回用户 id
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// JWTAuth Bearer 令牌认证
func JWTAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No Authorization request header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[1] == "" {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Authorization field format error")
			return
		}
		if parts[0] != "Bearer" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Unsupported authentication scheme")
			return
		}

		userID, err := parser.ParseToken(parts[1])
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// GetUserID 从上下文读取当前用户，未认证时返回空串
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
