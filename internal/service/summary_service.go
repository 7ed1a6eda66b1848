package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/attendance"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
)

// ── 汇总模块业务错误 ──

var (
	ErrSummarySubjectNotFound = errors.New("科目不存在")
)

// SummaryService 请假汇总与出勤率业务接口
type SummaryService interface {
	// GetSummary 按科目聚合当前用户的全部请假记录
	GetSummary(ctx context.Context, userID string) (*dto.SummaryResponse, error)
	// GetSubjectLeaves 汇总组内的请假明细（按日期倒序）
	GetSubjectLeaves(ctx context.Context, userID, subject string) ([]dto.LeaveResponse, error)
	// ComputePercentage 计算单科出勤率；totalClasses 为原始输入，非法时返回 N/A
	ComputePercentage(ctx context.Context, userID, subjectID, totalClasses string) (*dto.PercentageResponse, error)
}

type summaryService struct {
	repo     *repository.Repository
	cache    SummaryCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSummaryService 创建 SummaryService 实例；cache 可为 nil
func NewSummaryService(cfg *config.Config, repo *repository.Repository, cache SummaryCache, logger *zap.Logger) SummaryService {
	ttl := cfg.Redis.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &summaryService{repo: repo, cache: cache, cacheTTL: ttl, logger: logger}
}

// ────────────────────── GetSummary ──────────────────────

func (s *summaryService) GetSummary(ctx context.Context, userID string) (*dto.SummaryResponse, error) {
	version := s.cacheVersion(ctx, userID)
	if cached := s.readCache(ctx, userID, version); cached != nil {
		return cached, nil
	}

	records, subjects, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	resolved := attendance.ResolveNames(records, subjects)
	summaries := attendance.Summarize(resolved)
	stats := attendance.Overview(resolved, summaries)

	resp := &dto.SummaryResponse{
		Stats: dto.StatsResponse{
			TotalLeaves:     stats.TotalLeaves,
			SubjectCount:    stats.SubjectCount,
			DutyLeaveCount:  stats.DutyLeaveCount,
			MostLeaves:      stats.MostLeaves,
			MostLeavesCount: stats.MostLeavesCount,
		},
		Subjects: make([]dto.SubjectSummaryResponse, 0, len(summaries)),
	}
	for _, sum := range summaries {
		dates := make([]string, len(sum.Dates))
		for i, d := range sum.Dates {
			dates[i] = d.Format(dto.DateLayout)
		}
		resp.Subjects = append(resp.Subjects, dto.SubjectSummaryResponse{
			Subject:        sum.Subject,
			Count:          sum.Count,
			DutyLeaveCount: sum.DutyLeaveCount,
			Dates:          dates,
		})
	}

	s.writeCache(ctx, userID, version, resp)
	return resp, nil
}

// ────────────────────── GetSubjectLeaves ──────────────────────

func (s *summaryService) GetSubjectLeaves(ctx context.Context, userID, subject string) ([]dto.LeaveResponse, error) {
	leaves, _, err := s.repo.Leave.ListByUser(ctx, userID, repository.LeaveFilter{})
	if err != nil {
		s.logger.Error("列出请假记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	subjectList, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, err
	}
	subjects := toAttendanceSubjects(subjectList)

	resolved := attendance.ResolveNames(toAttendanceRecords(leaves), subjects)
	matched := attendance.RecordsWithLabel(resolved, subject)
	attendance.SortByDateDesc(matched)

	byID := make(map[string]int, len(leaves))
	for i := range leaves {
		byID[leaves[i].LeaveID] = i
	}
	result := make([]dto.LeaveResponse, 0, len(matched))
	for _, r := range matched {
		result = append(result, toLeaveResponse(&leaves[byID[r.ID]], subjects))
	}
	return result, nil
}

// ────────────────────── ComputePercentage ──────────────────────

func (s *summaryService) ComputePercentage(ctx context.Context, userID, subjectID, totalClasses string) (*dto.PercentageResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ErrSummarySubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", subjectID), zap.Error(err))
		return nil, err
	}

	records, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	target := attendance.Subject{ID: subject.SubjectID, Name: subject.Name}
	forSubject := attendance.FilterBySubject(records, target)

	// 非法输入按 0 处理，结果为 N/A
	total, _ := attendance.ParseTotalClasses(totalClasses)
	p := attendance.ComputePercentage(total, forSubject)

	return &dto.PercentageResponse{
		Subject:      subject.Name,
		TotalClasses: p.TotalClasses,
		Leaves:       p.Leaves,
		Percentage:   p.String(),
		Status:       string(p.Status),
	}, nil
}

// ── 辅助函数 ──

func (s *summaryService) load(ctx context.Context, userID string) ([]attendance.Record, []attendance.Subject, error) {
	leaves, _, err := s.repo.Leave.ListByUser(ctx, userID, repository.LeaveFilter{})
	if err != nil {
		s.logger.Error("列出请假记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, nil, err
	}
	return toAttendanceRecords(leaves), toAttendanceSubjects(subjects), nil
}

// cacheVersion 缓存不可用时返回空串，本次请求不读写缓存
func (s *summaryService) cacheVersion(ctx context.Context, userID string) string {
	if s.cache == nil {
		return ""
	}
	v, err := s.cache.SummaryVersion(ctx, userID)
	if err != nil {
		s.logger.Warn("读取汇总缓存版本失败", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return v
}

// readCache 缓存不可用或损坏时返回 nil，回源计算
func (s *summaryService) readCache(ctx context.Context, userID, version string) *dto.SummaryResponse {
	if version == "" {
		return nil
	}
	b, err := s.cache.GetSummary(ctx, userID, version)
	if err != nil {
		return nil
	}
	var resp dto.SummaryResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		s.logger.Warn("汇总缓存解析失败", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return &resp
}

// writeCache 以回源前的版本写回，期间若已失效则写入的旧键不会再被读取
func (s *summaryService) writeCache(ctx context.Context, userID, version string, resp *dto.SummaryResponse) {
	if version == "" {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.SetSummary(ctx, userID, version, b, s.cacheTTL); err != nil {
		s.logger.Warn("写入汇总缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
}
