package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
)

// ── 请假模块业务错误 ──

var (
	ErrLeaveNotFound           = errors.New("请假记录不存在")
	ErrLeaveSubjectNotFound    = errors.New("所选科目不存在")
	ErrLeaveInvalidDate        = errors.New("日期格式应为 YYYY-MM-DD")
	ErrLeaveConflict           = errors.New("请假记录已被修改，请刷新后重试")
	ErrCertificateNotDutyLeave = errors.New("仅公假记录可上传证明材料")
	ErrCertificateEmpty        = errors.New("上传文件为空")
	ErrCertificateTooLarge     = errors.New("证明材料超过大小限制")
	ErrCertificateType         = errors.New("证明材料仅支持 pdf/jpg/jpeg/png/doc/docx")
	ErrCertificateNotFound     = errors.New("该记录尚未上传证明材料")
	ErrCertificateCorrupted    = errors.New("证明材料数据损坏")
)

// certificateTypes 允许的扩展名 → 可接受的内容类型（按文件头识别）
var certificateTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// Certificate 证明材料文件
type Certificate struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LeaveService 请假记录业务接口；所有操作限定在 userID 名下
type LeaveService interface {
	Create(ctx context.Context, userID string, req *dto.CreateLeaveRequest) (*dto.LeaveResponse, error)
	List(ctx context.Context, userID string, req *dto.LeaveListRequest) ([]dto.LeaveResponse, int64, error)
	GetByID(ctx context.Context, userID, id string) (*dto.LeaveResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateLeaveRequest) (*dto.LeaveResponse, error)
	Delete(ctx context.Context, userID, id string) error
	// UploadCertificate 上传公假证明，以 data URL 形式保存
	UploadCertificate(ctx context.Context, userID, id, filename string, data []byte) (*dto.LeaveResponse, error)
	DownloadCertificate(ctx context.Context, userID, id string) (*Certificate, error)
}

type leaveService struct {
	repo            *repository.Repository
	cache           SummaryCache
	maxCertBytes    int64
	maxCertURLBytes int
	logger          *zap.Logger
}

// NewLeaveService 创建 LeaveService 实例
func NewLeaveService(cfg *config.Config, repo *repository.Repository, cache SummaryCache, logger *zap.Logger) LeaveService {
	return &leaveService{
		repo:            repo,
		cache:           cache,
		maxCertBytes:    cfg.Upload.MaxCertificateBytes,
		maxCertURLBytes: cfg.MaxCertificateURLBytes(),
		logger:          logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *leaveService) Create(ctx context.Context, userID string, req *dto.CreateLeaveRequest) (*dto.LeaveResponse, error) {
	date, err := parseLeaveDate(req.Date)
	if err != nil {
		return nil, err
	}

	subject, err := s.getSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}

	leave := &model.LeaveRecord{
		UserID:      userID,
		SubjectID:   &subject.SubjectID,
		SubjectName: subject.Name,
		LeaveDate:   date,
		Period:      periodPtr(req.Period),
		DutyLeave:   req.DutyLeave,
		Reason:      strings.TrimSpace(req.Reason),
		Version:     1,
	}
	leave.CreatedBy = &userID
	leave.UpdatedBy = &userID

	if err := s.repo.Leave.Create(ctx, leave); err != nil {
		s.logger.Error("创建请假记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, userID)

	resp := toLeaveResponse(leave, nil)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *leaveService) List(ctx context.Context, userID string, req *dto.LeaveListRequest) ([]dto.LeaveResponse, int64, error) {
	leaves, total, err := s.repo.Leave.ListByUser(ctx, userID, repository.LeaveFilter{
		SubjectID: req.SubjectID,
		DutyOnly:  req.DutyOnly,
		Offset:    req.GetOffset(),
		Limit:     req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("列出请假记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, 0, err
	}
	known := toAttendanceSubjects(subjects)

	result := make([]dto.LeaveResponse, 0, len(leaves))
	for i := range leaves {
		result = append(result, toLeaveResponse(&leaves[i], known))
	}
	return result, total, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *leaveService) GetByID(ctx context.Context, userID, id string) (*dto.LeaveResponse, error) {
	leave, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}

	resp := toLeaveResponse(leave, toAttendanceSubjects(subjects))
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *leaveService) Update(ctx context.Context, userID, id string, req *dto.UpdateLeaveRequest) (*dto.LeaveResponse, error) {
	leave, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.SubjectID != nil && (leave.SubjectID == nil || *req.SubjectID != *leave.SubjectID) {
		subject, err := s.getSubject(ctx, *req.SubjectID)
		if err != nil {
			return nil, err
		}
		leave.SubjectID = &subject.SubjectID
		leave.SubjectName = subject.Name
	}
	if req.Date != nil {
		date, err := parseLeaveDate(*req.Date)
		if err != nil {
			return nil, err
		}
		leave.LeaveDate = date
	}
	if req.Period != nil {
		leave.Period = periodPtr(*req.Period)
	}
	if req.DutyLeave != nil {
		leave.DutyLeave = *req.DutyLeave
		// 证明材料只属于公假，取消公假时一并清除
		if !leave.DutyLeave && leave.HasCertificate() {
			leave.CertificateURL = nil
			s.logger.Info("取消公假，清除证明材料", zap.String("id", id))
		}
	}
	if req.Reason != nil {
		leave.Reason = strings.TrimSpace(*req.Reason)
	}
	leave.Version = req.Version
	leave.UpdatedBy = &userID

	if err := s.repo.Leave.Update(ctx, leave); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrLeaveConflict
		}
		s.logger.Error("更新请假记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, userID)

	resp := toLeaveResponse(leave, nil)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *leaveService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Leave.Delete(ctx, id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return ErrLeaveNotFound
		}
		s.logger.Error("删除请假记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// ────────────────────── Certificate ──────────────────────

func (s *leaveService) UploadCertificate(ctx context.Context, userID, id, filename string, data []byte) (*dto.LeaveResponse, error) {
	leave, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !leave.DutyLeave {
		return nil, ErrCertificateNotDutyLeave
	}

	contentType, err := s.checkCertificate(filename, data)
	if err != nil {
		return nil, err
	}

	prefix := "data:" + contentType + ";base64,"
	if s.maxCertURLBytes > 0 && len(prefix)+base64.StdEncoding.EncodedLen(len(data)) > s.maxCertURLBytes {
		return nil, ErrCertificateTooLarge
	}

	dataURL := prefix + base64.StdEncoding.EncodeToString(data)
	if err := s.repo.Leave.UpdateCertificate(ctx, id, &dataURL, userID); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrLeaveNotFound
		}
		s.logger.Error("保存证明材料失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("证明材料已上传",
		zap.String("id", id),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
	)

	leave.CertificateURL = &dataURL
	leave.Version++
	resp := toLeaveResponse(leave, nil)
	return &resp, nil
}

func (s *leaveService) DownloadCertificate(ctx context.Context, userID, id string) (*Certificate, error) {
	leave, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !leave.HasCertificate() {
		return nil, ErrCertificateNotFound
	}

	contentType, data, err := decodeDataURL(*leave.CertificateURL)
	if err != nil {
		s.logger.Warn("证明材料解码失败", zap.String("id", id), zap.Error(err))
		return nil, ErrCertificateCorrupted
	}

	return &Certificate{
		Filename:    certificateFilename(leave, contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// checkCertificate 校验大小、扩展名与文件头，返回识别出的内容类型
func (s *leaveService) checkCertificate(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrCertificateEmpty
	}
	if s.maxCertBytes > 0 && int64(len(data)) > s.maxCertBytes {
		return "", ErrCertificateTooLarge
	}

	allowed, ok := certificateTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrCertificateType
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), allowed...) {
			return allowed[0], nil
		}
	}
	return "", ErrCertificateType
}

// ── 辅助函数 ──

func (s *leaveService) getOwned(ctx context.Context, userID, id string) (*model.LeaveRecord, error) {
	leave, err := s.repo.Leave.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrLeaveNotFound
		}
		s.logger.Error("查询请假记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	// 他人记录按不存在处理，不暴露记录是否存在
	if leave.UserID != userID {
		return nil, ErrLeaveNotFound
	}
	return leave, nil
}

func (s *leaveService) getSubject(ctx context.Context, id string) (*model.Subject, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrLeaveSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return subject, nil
}

func (s *leaveService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummary(ctx, userID); err != nil {
		s.logger.Warn("清除汇总缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
}

func parseLeaveDate(raw string) (time.Time, error) {
	date, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		return time.Time{}, ErrLeaveInvalidDate
	}
	return date, nil
}

// periodPtr 0 表示未填写（修改时表示清除课节）
func periodPtr(p int) *int {
	if p < dto.MinPeriod || p > dto.MaxPeriod {
		return nil
	}
	return &p
}

func decodeDataURL(raw string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", nil, fmt.Errorf("缺少 data: 前缀")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("缺少数据分隔符")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("仅支持 base64 编码")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64 解码失败: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, data, nil
}

// certificateFilename <科目>_<日期>_duty_leave.<扩展名>
func certificateFilename(leave *model.LeaveRecord, contentType string) string {
	name := fmt.Sprintf("%s_%s_duty_leave", leave.SubjectName, leave.LeaveDate.Format(dto.DateLayout))
	if m := mimetype.Lookup(contentType); m != nil {
		name += m.Extension()
	}
	return name
}

