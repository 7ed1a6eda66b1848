package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/config"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
)

// 最小合法 PDF / PNG 文件头
var (
	samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	samplePNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")
)

func setupTestLeaveService(maxBytes int64) (LeaveService, testRepos, *mockCache) {
	cfg := &config.Config{Upload: config.UploadConfig{MaxCertificateBytes: maxBytes}}
	repo, mocks := newTestRepository()
	_ = mocks.subject.Create(context.Background(), &model.Subject{SubjectID: "sub-maths", Name: "Maths"})
	_ = mocks.subject.Create(context.Background(), &model.Subject{SubjectID: "sub-physics", Name: "Physics"})
	cache := newMockCache()
	return NewLeaveService(cfg, repo, cache, zap.NewNop()), mocks, cache
}

// ── Create ──

func TestLeaveService_Create(t *testing.T) {
	svc, mocks, cache := setupTestLeaveService(1 << 20)

	resp, err := svc.Create(context.Background(), "user-1", &dto.CreateLeaveRequest{
		SubjectID: "sub-maths",
		Date:      "2024-01-05",
		Period:    3,
		DutyLeave: true,
		Reason:    "  sports meet ",
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if resp.Subject != "Maths" || resp.Date != "2024-01-05" || *resp.Period != 3 || resp.Reason != "sports meet" {
		t.Errorf("响应字段错误: %+v", resp)
	}

	stored := mocks.leave.leaves[resp.ID]
	if stored.SubjectName != "Maths" || *stored.SubjectID != "sub-maths" {
		t.Errorf("应保存科目ID与名称快照: %+v", stored)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "user-1" {
		t.Errorf("创建后应清除汇总缓存: %v", cache.invalidated)
	}
}

func TestLeaveService_Create_Errors(t *testing.T) {
	svc, _, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-unknown", Date: "2024-01-05"})
	if !errors.Is(err, ErrLeaveSubjectNotFound) {
		t.Errorf("期望 ErrLeaveSubjectNotFound，实际: %v", err)
	}

	_, err = svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "5 Jan"})
	if !errors.Is(err, ErrLeaveInvalidDate) {
		t.Errorf("期望 ErrLeaveInvalidDate，实际: %v", err)
	}
}

// ── List / Get ──

func TestLeaveService_List_ResolvesRenamedAndDeletedSubjects(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	maths, _ := mocks.subject.GetByID(ctx, "sub-maths")
	seedLeave(mocks.leave, "user-1", maths, "2024-01-05", false)
	seedLeave(mocks.leave, "user-1", &model.Subject{SubjectID: "sub-gone", Name: "Art"}, "2024-01-07", false)
	seedLeave(mocks.leave, "user-2", maths, "2024-01-06", false)

	// 科目改名
	mocks.subject.subjects["sub-maths"].Name = "Mathematics"

	list, total, err := svc.List(ctx, "user-1", &dto.LeaveListRequest{})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("只应返回本人记录，实际 total=%d len=%d", total, len(list))
	}
	// 按日期倒序
	if list[0].Subject != "Art" || list[0].SubjectKnown {
		t.Errorf("已删除科目应保留快照并标记未知: %+v", list[0])
	}
	if list[1].Subject != "Mathematics" || !list[1].SubjectKnown {
		t.Errorf("改名后应显示当前名称: %+v", list[1])
	}
}

func TestLeaveService_List_Filters(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	maths, _ := mocks.subject.GetByID(ctx, "sub-maths")
	physics, _ := mocks.subject.GetByID(ctx, "sub-physics")
	seedLeave(mocks.leave, "user-1", maths, "2024-01-05", true)
	seedLeave(mocks.leave, "user-1", maths, "2024-01-06", false)
	seedLeave(mocks.leave, "user-1", physics, "2024-01-07", true)

	list, total, _ := svc.List(ctx, "user-1", &dto.LeaveListRequest{SubjectID: "sub-maths", DutyOnly: true})
	if total != 1 || len(list) != 1 || list[0].Date != "2024-01-05" {
		t.Errorf("过滤结果错误: total=%d list=%+v", total, list)
	}

	page, total, _ := svc.List(ctx, "user-1", &dto.LeaveListRequest{PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 2}})
	if total != 3 || len(page) != 1 {
		t.Errorf("分页错误: total=%d len=%d", total, len(page))
	}
}

func TestLeaveService_GetByID_OtherUser(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	maths, _ := mocks.subject.GetByID(ctx, "sub-maths")
	l := seedLeave(mocks.leave, "user-2", maths, "2024-01-05", false)

	if _, err := svc.GetByID(ctx, "user-1", l.LeaveID); !errors.Is(err, ErrLeaveNotFound) {
		t.Errorf("他人记录应按不存在处理，实际: %v", err)
	}
	if err := svc.Delete(ctx, "user-1", l.LeaveID); !errors.Is(err, ErrLeaveNotFound) {
		t.Errorf("不能删除他人记录，实际: %v", err)
	}
}

// ── Update ──

func TestLeaveService_Update(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05"})

	subject := "sub-physics"
	date := "2024-02-01"
	duty := true
	updated, err := svc.Update(ctx, "user-1", created.ID, &dto.UpdateLeaveRequest{
		SubjectID: &subject,
		Date:      &date,
		DutyLeave: &duty,
		Version:   created.Version,
	})
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if updated.Subject != "Physics" || updated.Date != "2024-02-01" || !updated.DutyLeave {
		t.Errorf("更新结果错误: %+v", updated)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("version 应递增，实际: %d", updated.Version)
	}
	if mocks.leave.leaves[created.ID].SubjectName != "Physics" {
		t.Error("科目名快照应随科目变更")
	}

	// 使用过期 version
	_, err = svc.Update(ctx, "user-1", created.ID, &dto.UpdateLeaveRequest{DutyLeave: &duty, Version: created.Version})
	if !errors.Is(err, ErrLeaveConflict) {
		t.Errorf("期望 ErrLeaveConflict，实际: %v", err)
	}
}

func TestLeaveService_Update_ClearPeriod(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05", Period: 3})
	if created.Period == nil || *created.Period != 3 {
		t.Fatalf("创建时应保存课节: %+v", created.Period)
	}

	zero := 0
	updated, err := svc.Update(ctx, "user-1", created.ID, &dto.UpdateLeaveRequest{Period: &zero, Version: created.Version})
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if updated.Period != nil || mocks.leave.leaves[created.ID].Period != nil {
		t.Errorf("period=0 应清除课节，实际: %v", updated.Period)
	}
}

func TestLeaveService_Update_DutyOffClearsCertificate(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05", DutyLeave: true})
	uploaded, err := svc.UploadCertificate(ctx, "user-1", created.ID, "letter.pdf", samplePDF)
	if err != nil {
		t.Fatalf("上传应成功: %v", err)
	}

	// 只改原因不影响证明材料
	reason := "NSS camp"
	kept, err := svc.Update(ctx, "user-1", created.ID, &dto.UpdateLeaveRequest{Reason: &reason, Version: uploaded.Version})
	if err != nil || !kept.HasCertificate {
		t.Fatalf("非公假字段的修改应保留证明材料: %+v err=%v", kept, err)
	}

	off := false
	updated, err := svc.Update(ctx, "user-1", created.ID, &dto.UpdateLeaveRequest{DutyLeave: &off, Version: kept.Version})
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if updated.HasCertificate || mocks.leave.leaves[created.ID].CertificateURL != nil {
		t.Error("取消公假后应清除证明材料")
	}
	if _, err := svc.DownloadCertificate(ctx, "user-1", created.ID); !errors.Is(err, ErrCertificateNotFound) {
		t.Errorf("取消公假后下载应返回 ErrCertificateNotFound，实际: %v", err)
	}
}

func TestLeaveService_Delete(t *testing.T) {
	svc, mocks, cache := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05"})
	if err := svc.Delete(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if len(mocks.leave.leaves) != 0 {
		t.Error("记录应被删除")
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("创建与删除都应清除缓存，实际: %d", len(cache.invalidated))
	}
}

// ── Certificate ──

func TestLeaveService_Certificate_RoundTrip(t *testing.T) {
	svc, mocks, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05", DutyLeave: true})

	resp, err := svc.UploadCertificate(ctx, "user-1", created.ID, "letter.PDF", samplePDF)
	if err != nil {
		t.Fatalf("上传应成功: %v", err)
	}
	if !resp.HasCertificate {
		t.Error("响应应标记已上传")
	}
	stored := *mocks.leave.leaves[created.ID].CertificateURL
	if !strings.HasPrefix(stored, "data:application/pdf;base64,") {
		t.Errorf("应以 data URL 保存，实际前缀: %.40s", stored)
	}

	cert, err := svc.DownloadCertificate(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("下载应成功: %v", err)
	}
	if cert.Filename != "Maths_2024-01-05_duty_leave.pdf" {
		t.Errorf("文件名错误: %s", cert.Filename)
	}
	if cert.ContentType != "application/pdf" || !bytes.Equal(cert.Data, samplePDF) {
		t.Error("下载内容应与上传一致")
	}
}

func TestLeaveService_Certificate_PNG(t *testing.T) {
	svc, _, _ := setupTestLeaveService(1 << 20)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-03-10", DutyLeave: true})
	if _, err := svc.UploadCertificate(ctx, "user-1", created.ID, "scan.png", samplePNG); err != nil {
		t.Fatalf("PNG 上传应成功: %v", err)
	}
	cert, err := svc.DownloadCertificate(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("下载应成功: %v", err)
	}
	if cert.Filename != "Maths_2024-03-10_duty_leave.png" {
		t.Errorf("文件名错误: %s", cert.Filename)
	}
}

func TestLeaveService_Certificate_Rejections(t *testing.T) {
	svc, _, _ := setupTestLeaveService(64)
	ctx := context.Background()

	normal, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05"})
	duty, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-06", DutyLeave: true})

	tests := []struct {
		name     string
		id       string
		filename string
		data     []byte
		wantErr  error
	}{
		{"非公假记录", normal.ID, "a.pdf", samplePDF, ErrCertificateNotDutyLeave},
		{"空文件", duty.ID, "a.pdf", nil, ErrCertificateEmpty},
		{"超过大小", duty.ID, "a.pdf", bytes.Repeat([]byte("x"), 65), ErrCertificateTooLarge},
		{"扩展名不支持", duty.ID, "a.exe", samplePNG, ErrCertificateType},
		{"内容与扩展名不符", duty.ID, "a.pdf", samplePNG, ErrCertificateType},
		{"他人记录", "leave-999", "a.pdf", samplePDF, ErrLeaveNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadCertificate(ctx, "user-1", tt.id, tt.filename, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	if _, err := svc.DownloadCertificate(ctx, "user-1", duty.ID); !errors.Is(err, ErrCertificateNotFound) {
		t.Errorf("未上传时下载应返回 ErrCertificateNotFound，实际: %v", err)
	}
}

// paddedPDF 生成指定大小、文件头合法的 PDF
func paddedPDF(size int) []byte {
	return append(bytes.Clone(samplePDF), bytes.Repeat([]byte(" "), size-len(samplePDF))...)
}

func TestLeaveService_Certificate_FirestoreEncodedLimit(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		size    int
		wantErr error
	}{
		{"firestore 编码后未超限", config.StorageDriverFirestore, 700_000, nil},
		{"firestore 编码后超过文档上限", config.StorageDriverFirestore, 1_000_000, ErrCertificateTooLarge},
		{"postgres 不限制编码后大小", config.StorageDriverPostgres, 1_000_000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Storage: config.StorageConfig{Driver: tt.driver},
				Upload:  config.UploadConfig{MaxCertificateBytes: 2 << 20},
			}
			repo, mocks := newTestRepository()
			_ = mocks.subject.Create(context.Background(), &model.Subject{SubjectID: "sub-maths", Name: "Maths"})
			svc := NewLeaveService(cfg, repo, nil, zap.NewNop())
			ctx := context.Background()

			created, _ := svc.Create(ctx, "user-1", &dto.CreateLeaveRequest{SubjectID: "sub-maths", Date: "2024-01-05", DutyLeave: true})
			_, err := svc.UploadCertificate(ctx, "user-1", created.ID, "letter.pdf", paddedPDF(tt.size))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望 %v，实际: %v", tt.wantErr, err)
			}
			if stored := mocks.leave.leaves[created.ID].CertificateURL; (stored != nil) != (tt.wantErr == nil) {
				t.Errorf("存储状态错误: stored=%v", stored != nil)
			}
		})
	}
}

func TestDecodeDataURL(t *testing.T) {
	ct, data, err := decodeDataURL("data:image/png;base64,aGVsbG8=")
	if err != nil || ct != "image/png" || string(data) != "hello" {
		t.Errorf("解码错误: ct=%s data=%q err=%v", ct, data, err)
	}
	for _, bad := range []string{"https://example.com/a.pdf", "data:image/png,hello", "data:image/png;base64,@@@"} {
		if _, _, err := decodeDataURL(bad); err == nil {
			t.Errorf("%q 应解码失败", bad)
		}
	}
}
