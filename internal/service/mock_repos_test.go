package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/identity"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	for _, u := range m.users {
		if u.FirebaseUID == uid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = "sub-" + strings.ToLower(subject.Name)
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	result := make([]model.Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	if _, ok := m.subjects[subject.SubjectID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *subject
	m.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.subjects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.subjects, id)
	return nil
}

func (m *mockSubjectRepo) ExistsByName(_ context.Context, name, excludeID string) (bool, error) {
	for _, s := range m.subjects {
		if s.SubjectID != excludeID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock LeaveRepository ──

type mockLeaveRepo struct {
	leaves map[string]*model.LeaveRecord
	seq    int
}

func newMockLeaveRepo() *mockLeaveRepo {
	return &mockLeaveRepo{leaves: make(map[string]*model.LeaveRecord)}
}

func (m *mockLeaveRepo) Create(_ context.Context, leave *model.LeaveRecord) error {
	if leave.LeaveID == "" {
		m.seq++
		leave.LeaveID = fmt.Sprintf("leave-%d", m.seq)
	}
	if leave.Version == 0 {
		leave.Version = 1
	}
	cp := *leave
	m.leaves[leave.LeaveID] = &cp
	return nil
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id string) (*model.LeaveRecord, error) {
	if l, ok := m.leaves[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLeaveRepo) ListByUser(_ context.Context, userID string, filter repository.LeaveFilter) ([]model.LeaveRecord, int64, error) {
	var result []model.LeaveRecord
	for _, l := range m.leaves {
		if l.UserID != userID {
			continue
		}
		if filter.SubjectID != "" && (l.SubjectID == nil || *l.SubjectID != filter.SubjectID) {
			continue
		}
		if filter.DutyOnly && !l.DutyLeave {
			continue
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].LeaveDate.Equal(result[j].LeaveDate) {
			return result[i].LeaveDate.After(result[j].LeaveDate)
		}
		return result[i].LeaveID < result[j].LeaveID
	})

	total := int64(len(result))
	if filter.Limit > 0 {
		if filter.Offset > len(result) {
			return nil, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[filter.Offset:end]
	}
	return result, total, nil
}

func (m *mockLeaveRepo) Update(_ context.Context, leave *model.LeaveRecord) error {
	cur, ok := m.leaves[leave.LeaveID]
	if !ok || cur.Version != leave.Version {
		return pkgerrors.ErrOptimisticLock
	}
	leave.Version++
	cp := *leave
	m.leaves[leave.LeaveID] = &cp
	return nil
}

func (m *mockLeaveRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.leaves[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.leaves, id)
	return nil
}

func (m *mockLeaveRepo) UpdateCertificate(_ context.Context, id string, certificateURL *string, updatedBy string) error {
	l, ok := m.leaves[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.CertificateURL = certificateURL
	l.UpdatedBy = &updatedBy
	l.Version++
	return nil
}

// ── Mock 缓存 / 黑名单 ──

type mockCache struct {
	data         map[string][]byte
	version      int
	userVersions map[string]int
	invalidated  []string
	gets         int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), userVersions: make(map[string]int)}
}

func (m *mockCache) SummaryVersion(_ context.Context, userID string) (string, error) {
	return fmt.Sprintf("%d.%d", m.version, m.userVersions[userID]), nil
}

func (m *mockCache) GetSummary(_ context.Context, userID, version string) ([]byte, error) {
	m.gets++
	if b, ok := m.data[version+":"+userID]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("cache miss")
}

func (m *mockCache) SetSummary(_ context.Context, userID, version string, data []byte, _ time.Duration) error {
	m.data[version+":"+userID] = data
	return nil
}

func (m *mockCache) InvalidateSummary(_ context.Context, userID string) error {
	m.invalidated = append(m.invalidated, userID)
	m.userVersions[userID]++
	return nil
}

func (m *mockCache) BumpSubjectVersion(_ context.Context) error {
	m.version++
	return nil
}

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── Fake 身份校验 ──

type fakeVerifier struct {
	tokens map[string]*identity.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (*identity.Identity, error) {
	if idToken == "expired" {
		return nil, identity.ErrIDTokenExpired
	}
	if id, ok := f.tokens[idToken]; ok {
		return id, nil
	}
	return nil, identity.ErrIDTokenInvalid
}

// ── 测试辅助 ──

type testRepos struct {
	user    *mockUserRepo
	subject *mockSubjectRepo
	leave   *mockLeaveRepo
}

func newTestRepository() (*repository.Repository, testRepos) {
	r := testRepos{
		user:    newMockUserRepo(),
		subject: newMockSubjectRepo(),
		leave:   newMockLeaveRepo(),
	}
	return &repository.Repository{
		User:    r.user,
		Subject: r.subject,
		Leave:   r.leave,
	}, r
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedLeave 直接写入一条请假记录
func seedLeave(r *mockLeaveRepo, userID string, subject *model.Subject, date string, duty bool) *model.LeaveRecord {
	l := &model.LeaveRecord{
		UserID:      userID,
		SubjectName: subject.Name,
		LeaveDate:   mustDate(date),
		DutyLeave:   duty,
	}
	if subject.SubjectID != "" {
		id := subject.SubjectID
		l.SubjectID = &id
	}
	_ = r.Create(context.Background(), l)
	return l
}
