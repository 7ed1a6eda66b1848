package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/api/handler"
	"github.com/Shijin-GitH/Leave-Tracker/internal/api/router"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	"github.com/Shijin-GitH/Leave-Tracker/internal/service"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/database"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/firebase"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/identity"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/jwt"
	applogger "github.com/Shijin-GitH/Leave-Tracker/pkg/logger"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/ratelimit"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("LEAVE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()

	// 3. 初始化 Firebase（身份认证必需，Firestore 存储可选）
	fbApp, err := firebase.NewApp(ctx, &cfg.Firebase, logger)
	if err != nil {
		logger.Fatal("Firebase 初始化失败", zap.Error(err))
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		logger.Fatal("Firebase Auth 初始化失败", zap.Error(err))
	}
	verifier := identity.NewFirebaseVerifier(authClient)

	// 4. 初始化存储
	repo, healthCheck, closeStorage, err := openStorage(ctx, cfg, fbApp, logger)
	if err != nil {
		logger.Fatal("存储初始化失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		deps        service.Deps
		routerDeps  router.Deps
		redisClient io.Closer
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与汇总缓存将不可用", zap.Error(err))
	} else {
		// 仅在连接成功时赋值接口，避免 typed nil
		deps.Blacklist = rdb
		deps.Cache = rdb
		routerDeps.Blacklist = rdb
		routerDeps.RateLimitStore = rdb
		redisClient = rdb
	}

	loginLimiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer loginLimiter.Stop()
	routerDeps.LoginLimiter = loginLimiter
	routerDeps.HealthCheck = healthCheck

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, jwtMgr, verifier, deps, logger)
	h := handler.NewHandler(cfg, svc)

	// 8. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, routerDeps, logger)
	if err != nil {
		logger.Fatal("路由初始化失败", zap.Error(err))
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := closeStorage(); err != nil {
		logger.Error("关闭存储连接失败", zap.Error(err))
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("服务器已关闭")
}

// openStorage 按配置打开存储后端，返回 Repository、健康检查与关闭函数
func openStorage(ctx context.Context, cfg *config.Config, fbApp *firebase.App, logger *zap.Logger) (*repository.Repository, func() error, func() error, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("使用 Firestore 存储")
		return repository.NewFirestoreRepository(client), nil, client.Close, nil

	default:
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		logger.Info("数据库连接成功")

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			return nil, nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
		}

		healthCheck := func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return sqlDB.PingContext(pingCtx)
		}
		return repository.NewRepository(db), healthCheck, sqlDB.Close, nil
	}
}
