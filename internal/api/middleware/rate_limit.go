package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shijin-GitH/Leave-Tracker/pkg/ratelimit"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/response"
)

// RateLimitStore 分布式限流存储（Redis 滑动窗口实现）
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 速率限制中间件，按 客户端IP + 路由 计数
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// store 为 nil 或出错时回退到进程内限流 fallback；两者都不可用时放行
func RateLimit(store RateLimitStore, fallback *ratelimit.KeyedLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		if !allow(c.Request.Context(), store, fallback, key, limit, window) {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

func allow(ctx context.Context, store RateLimitStore, fallback *ratelimit.KeyedLimiter, key string, limit int, window time.Duration) bool {
	if store != nil {
		allowed, err := store.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed
		}
	}
	if fallback != nil {
		return fallback.Allow(key)
	}
	return true
}
