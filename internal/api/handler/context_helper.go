package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shijin-GitH/Leave-Tracker/pkg/response"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxRole)
}

// GetTokenMeta 当前 access token 的 jti 与剩余有效期（缺失时返回零值）
func GetTokenMeta(c *gin.Context) (string, time.Duration) {
	jti := c.GetString(CtxTokenJTI)
	var ttl time.Duration
	if exp, ok := c.Get(CtxTokenExp); ok {
		if t, ok := exp.(time.Time); ok {
			ttl = time.Until(t)
		}
	}
	return jti, ttl
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
