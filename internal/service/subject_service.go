package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
)

// ── 科目模块业务错误 ──

var (
	ErrSubjectNotFound      = errors.New("科目不存在")
	ErrSubjectNameEmpty     = errors.New("科目名称不能为空")
	ErrSubjectNameDuplicate = errors.New("科目名称已存在")
)

// SubjectService 科目业务接口（写操作仅管理员）
type SubjectService interface {
	List(ctx context.Context) ([]dto.SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error)
	Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	// Delete 删除科目；已有请假记录保留名称快照，此后作为未知科目展示
	Delete(ctx context.Context, id string) error
}

type subjectService struct {
	repo   *repository.Repository
	cache  SummaryCache
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, cache SummaryCache, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *subjectService) List(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, toSubjectResponse(&subjects[i]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *subjectService) GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSubjectResponse(subject)
	return &resp, nil
}

// ────────────────────── Create ──────────────────────

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	name, err := s.checkName(ctx, req.Name, "")
	if err != nil {
		return nil, err
	}

	subject := &model.Subject{Name: name}
	subject.CreatedBy = &callerID
	subject.UpdatedBy = &callerID

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}
	s.bumpVersion(ctx)

	resp := toSubjectResponse(subject)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *subjectService) Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject, err := s.getSubject(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.checkName(ctx, req.Name, id)
	if err != nil {
		return nil, err
	}

	subject.Name = name
	subject.UpdatedBy = &callerID
	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("更新科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.bumpVersion(ctx)

	resp := toSubjectResponse(subject)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *subjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Subject.Delete(ctx, id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("删除科目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.bumpVersion(ctx)
	return nil
}

// ── 辅助函数 ──

func (s *subjectService) getSubject(ctx context.Context, id string) (*model.Subject, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return subject, nil
}

// checkName 去除首尾空白并做忽略大小写的判重
func (s *subjectService) checkName(ctx context.Context, raw, excludeID string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrSubjectNameEmpty
	}
	exists, err := s.repo.Subject.ExistsByName(ctx, name, excludeID)
	if err != nil {
		s.logger.Error("科目判重失败", zap.Error(err))
		return "", err
	}
	if exists {
		return "", ErrSubjectNameDuplicate
	}
	return name, nil
}

// bumpVersion 科目变化后使所有汇总缓存失效
func (s *subjectService) bumpVersion(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpSubjectVersion(ctx); err != nil {
		s.logger.Warn("刷新汇总缓存版本失败", zap.Error(err))
	}
}
