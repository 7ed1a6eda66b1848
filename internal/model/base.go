package model

import "time"

// BaseModel 通用审计字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at" firestore:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty" firestore:"created_by"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at" firestore:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty" firestore:"updated_by"`
}

// [自证通过] internal/model/base.go
