package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/api/handler"
	"github.com/Shijin-GitH/Leave-Tracker/internal/api/middleware"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/jwt"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/ratelimit"
)

// Deps 路由依赖的可选基础设施；字段为 nil 时对应功能降级
type Deps struct {
	Blacklist      middleware.BlacklistChecker
	RateLimitStore middleware.RateLimitStore
	// LoginLimiter 进程内限流，Redis 不可用时兜底
	LoginLimiter *ratelimit.KeyedLimiter
	// HealthCheck 存储健康检查，nil 时 /health 只返回 ok
	HealthCheck func() error
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, deps Deps, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(); err != nil {
				logger.Warn("健康检查失败", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	loginLimit := middleware.RateLimit(deps.RateLimitStore, deps.LoginLimiter, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	adminOnly := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/refresh", loginLimit, h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, deps.Blacklist))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.POST("/auth/bootstrap-admin", loginLimit, h.Auth.BootstrapAdmin)

			// 科目模块（读所有人，写仅管理员）
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.POST("", adminOnly, h.Subject.CreateSubject)
				subjects.PUT("/:id", adminOnly, h.Subject.UpdateSubject)
				subjects.DELETE("/:id", adminOnly, h.Subject.DeleteSubject)
			}

			// 请假记录模块（Service 层限定本人）
			leaves := authorized.Group("/leaves")
			{
				leaves.GET("", h.Leave.ListLeaves)
				leaves.POST("", h.Leave.CreateLeave)
				leaves.GET("/:id", h.Leave.GetLeave)
				leaves.PUT("/:id", h.Leave.UpdateLeave)
				leaves.DELETE("/:id", h.Leave.DeleteLeave)
				leaves.PUT("/:id/certificate", h.Leave.UploadCertificate)
				leaves.GET("/:id/certificate", h.Leave.DownloadCertificate)
			}

			// 汇总模块
			summary := authorized.Group("/summary")
			{
				summary.GET("", h.Summary.GetSummary)
				summary.GET("/subject", h.Summary.GetSubjectLeaves)
				summary.GET("/percentage", h.Summary.GetPercentage)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/leaves.xlsx", h.Export.ExportExcel)
				export.GET("/leaves.ics", h.Export.ExportCalendar)
			}
		}
	}

	return r, nil
}
