package service

import (
	"context"
	"time"

	"github.com/Shijin-GitH/Leave-Tracker/internal/attendance"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
)

// ── 可选基础设施（Redis），为 nil 时对应功能降级关闭 ──

// TokenBlacklist Token 黑名单
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SummaryCache 请假汇总缓存；读写均携带回源前取得的版本
type SummaryCache interface {
	SummaryVersion(ctx context.Context, userID string) (string, error)
	GetSummary(ctx context.Context, userID, version string) ([]byte, error)
	SetSummary(ctx context.Context, userID, version string, data []byte, ttl time.Duration) error
	InvalidateSummary(ctx context.Context, userID string) error
	BumpSubjectVersion(ctx context.Context) error
}

// ── 模型转换 ──

func toAttendanceRecord(l *model.LeaveRecord) attendance.Record {
	r := attendance.Record{
		ID:        l.LeaveID,
		UserID:    l.UserID,
		Subject:   l.SubjectName,
		Date:      l.LeaveDate,
		DutyLeave: l.DutyLeave,
		Reason:    l.Reason,
	}
	if l.SubjectID != nil {
		r.SubjectID = *l.SubjectID
	}
	if l.Period != nil {
		r.Period = *l.Period
	}
	if l.CertificateURL != nil {
		r.CertificateURL = *l.CertificateURL
	}
	return r
}

func toAttendanceRecords(leaves []model.LeaveRecord) []attendance.Record {
	out := make([]attendance.Record, len(leaves))
	for i := range leaves {
		out[i] = toAttendanceRecord(&leaves[i])
	}
	return out
}

func toAttendanceSubjects(subjects []model.Subject) []attendance.Subject {
	out := make([]attendance.Subject, len(subjects))
	for i, s := range subjects {
		out[i] = attendance.Subject{ID: s.SubjectID, Name: s.Name, CreatedAt: s.CreatedAt}
	}
	return out
}

func toSubjectResponse(s *model.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{
		ID:        s.SubjectID,
		Name:      s.Name,
		CreatedAt: formatTime(s.CreatedAt),
	}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.UserID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

// toLeaveResponse subjects 用于解析科目当前名称；为 nil 时直接使用快照
func toLeaveResponse(l *model.LeaveRecord, subjects []attendance.Subject) dto.LeaveResponse {
	resp := dto.LeaveResponse{
		ID:             l.LeaveID,
		SubjectID:      l.SubjectID,
		Subject:        l.SubjectName,
		SubjectKnown:   true,
		Date:           l.LeaveDate.Format(dto.DateLayout),
		Period:         l.Period,
		DutyLeave:      l.DutyLeave,
		Reason:         l.Reason,
		HasCertificate: l.HasCertificate(),
		Version:        l.Version,
		CreatedAt:      formatTime(l.CreatedAt),
	}
	if subjects != nil {
		res := attendance.MatchSubject(toAttendanceRecord(l), subjects)
		resp.SubjectKnown = res.Known
		if res.Known {
			resp.Subject = res.Subject.Name
		}
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
