package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/Shijin-GitH/Leave-Tracker/config"
)

// App Firebase 应用封装（身份认证 + 可选 Firestore 存储）
type App struct {
	app    *fb.App
	logger *zap.Logger
}

// NewApp 初始化 Firebase 应用
// credentials_file 为空时使用 GOOGLE_APPLICATION_CREDENTIALS 等默认凭据
func NewApp(ctx context.Context, cfg *config.FirebaseConfig, logger *zap.Logger) (*App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *fb.Config
	if cfg.ProjectID != "" {
		fbCfg = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 Firebase 失败: %w", err)
	}

	logger.Info("Firebase 初始化成功",
		zap.String("project_id", cfg.ProjectID),
		zap.Bool("credentials_file", cfg.CredentialsFile != ""),
	)

	return &App{app: app, logger: logger}, nil
}

// Auth 获取 Firebase Authentication 客户端
func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取 Firebase Auth 客户端失败: %w", err)
	}
	return client, nil
}

// Firestore 获取 Firestore 客户端，调用方负责 Close
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取 Firestore 客户端失败: %w", err)
	}
	return client, nil
}
