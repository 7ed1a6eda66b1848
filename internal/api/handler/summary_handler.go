package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/service"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/response"
)

// SummaryHandler 汇总模块 HTTP 处理器
type SummaryHandler struct {
	summarySvc service.SummaryService
}

// NewSummaryHandler 创建 SummaryHandler
func NewSummaryHandler(summarySvc service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc}
}

// GetSummary 获取按科目聚合的请假汇总
// GET /api/v1/summary
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	summary, err := h.summarySvc.GetSummary(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, summary)
}

// GetSubjectLeaves 获取汇总中某一科目组的请假明细
// GET /api/v1/summary/subject?subject=
func (h *SummaryHandler) GetSubjectLeaves(c *gin.Context) {
	var req dto.SubjectLeavesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "subject 不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	leaves, err := h.summarySvc.GetSubjectLeaves(c.Request.Context(), userID, req.Subject)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"subject": req.Subject, "list": leaves})
}

// GetPercentage 计算单科出勤率
// GET /api/v1/summary/percentage?subject_id=&total_classes=
func (h *SummaryHandler) GetPercentage(c *gin.Context) {
	var req dto.PercentageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.summarySvc.ComputePercentage(c.Request.Context(), userID, req.SubjectID, req.TotalClasses)
	if err != nil {
		if errors.Is(err, service.ErrSummarySubjectNotFound) {
			response.NotFound(c, 14001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
