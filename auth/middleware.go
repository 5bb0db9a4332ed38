package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 返回 Gin 认证中间件。
// 开发模式显式开启时放行所有请求，不注入 Claims。
func (a *jwtAuth) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.config.DevMode {
			c.Next()
			return
		}

		token, err := a.extractToken(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		claims, err := a.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims 从 Gin Context 获取 Claims
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	return claims.(*Claims), true
}

// Subject 从 Gin Context 获取当前账号标识，未认证时为空串
func Subject(c *gin.Context) string {
	claims, ok := GetClaims(c)
	if !ok {
		return ""
	}
	return claims.Subject
}
