package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TriggerAuth 抓取触发端点的令牌认证中间件
type TriggerAuth struct {
	token string
}

// NewTriggerAuth 创建触发认证中间件。token 为空时认证被禁用。
func NewTriggerAuth(token string) *TriggerAuth {
	return &TriggerAuth{token: token}
}

// RequireToken 要求 Bearer 令牌认证
func (m *TriggerAuth) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			c.Abort()
			return
		}

		presented := strings.TrimPrefix(header, "Bearer ")
		if presented == header {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header",
			})
			c.Abort()
			return
		}

		// 常量时间比较，避免令牌被逐字节试探
		if subtle.ConstantTimeCompare([]byte(presented), []byte(m.token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
