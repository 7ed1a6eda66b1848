//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
	"github.com/Shijin-GitH/Leave-Tracker/pkg/database"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=leave_tracker password=leave_tracker_password dbname=leave_tracker_test sslmode=disable TimeZone=UTC"
	}

	// 仅启动 Firestore 模拟器时允许跳过 PostgreSQL 用例
	onlyFirestore := os.Getenv("FIRESTORE_EMULATOR_HOST") != "" && os.Getenv("TEST_DATABASE_DSN") == ""

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		if onlyFirestore {
			fmt.Fprintf(os.Stderr, "跳过 PostgreSQL 集成测试: %v\n", err)
			testDB = nil
			os.Exit(m.Run())
		}
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (user *model.User, subject *model.Subject, cleanup func()) {
	t.Helper()
	if testDB == nil {
		t.Skip("未连接 PostgreSQL")
	}
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	user = &model.User{
		FirebaseUID: fmt.Sprintf("fb-%d", time.Now().UnixNano()),
		Email:       "student@example.com",
		Role:        model.RoleMember,
	}
	if err := repo.User.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	subject = &model.Subject{Name: fmt.Sprintf("Maths-%d", time.Now().UnixNano())}
	if err := repo.Subject.Create(ctx, subject); err != nil {
		t.Fatalf("创建科目失败: %v", err)
	}

	cleanup = func() {
		testDB.Where("user_id = ?", user.UserID).Delete(&model.LeaveRecord{})
		testDB.Where("subject_id = ?", subject.SubjectID).Delete(&model.Subject{})
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
	return
}

func newLeave(user *model.User, subject *model.Subject, day int, duty bool) *model.LeaveRecord {
	return &model.LeaveRecord{
		UserID:      user.UserID,
		SubjectID:   &subject.SubjectID,
		SubjectName: subject.Name,
		LeaveDate:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		DutyLeave:   duty,
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Leave_ConflictDetected(t *testing.T) {
	user, subject, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	leave := newLeave(user, subject, 5, false)
	if err := repo.Leave.Create(ctx, leave); err != nil {
		t.Fatalf("创建请假记录失败: %v", err)
	}

	// 模拟并发：获取两份副本
	copy1, _ := repo.Leave.GetByID(ctx, leave.LeaveID)
	copy2, _ := repo.Leave.GetByID(ctx, leave.LeaveID)

	copy1.Reason = "fever"
	if err := repo.Leave.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	// 第二次更新应失败（version 已过期）
	copy2.DutyLeave = true
	err := repo.Leave.Update(ctx, copy2)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

func TestOptimisticLock_Leave_VersionIncrement(t *testing.T) {
	user, subject, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	leave := newLeave(user, subject, 6, false)
	if err := repo.Leave.Create(ctx, leave); err != nil {
		t.Fatalf("创建请假记录失败: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, _ := repo.Leave.GetByID(ctx, leave.LeaveID)
		if err := repo.Leave.Update(ctx, got); err != nil {
			t.Fatalf("第 %d 次更新失败: %v", i+1, err)
		}
	}

	final, _ := repo.Leave.GetByID(ctx, leave.LeaveID)
	if final.Version != 4 {
		t.Errorf("期望 version=4，得到: %d", final.Version)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: List & Filters
// ═══════════════════════════════════════════════════════════

func TestLeave_ListByUser_OrderAndFilter(t *testing.T) {
	user, subject, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for _, l := range []*model.LeaveRecord{
		newLeave(user, subject, 3, false),
		newLeave(user, subject, 9, true),
		newLeave(user, subject, 1, true),
	} {
		if err := repo.Leave.Create(ctx, l); err != nil {
			t.Fatalf("创建请假记录失败: %v", err)
		}
	}

	all, total, err := repo.Leave.ListByUser(ctx, user.UserID, repository.LeaveFilter{})
	if err != nil {
		t.Fatalf("ListByUser 失败: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("期望 3 条，得到 total=%d len=%d", total, len(all))
	}
	if all[0].LeaveDate.Day() != 9 || all[2].LeaveDate.Day() != 1 {
		t.Errorf("应按日期倒序: %v, %v", all[0].LeaveDate, all[2].LeaveDate)
	}

	duty, total, err := repo.Leave.ListByUser(ctx, user.UserID, repository.LeaveFilter{DutyOnly: true, Limit: 1})
	if err != nil {
		t.Fatalf("ListByUser 失败: %v", err)
	}
	if total != 2 || len(duty) != 1 {
		t.Errorf("期望 total=2 且分页 1 条，得到 total=%d len=%d", total, len(duty))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Subject delete keeps leave snapshot
// ═══════════════════════════════════════════════════════════

func TestSubjectDelete_KeepsLeaveSnapshot(t *testing.T) {
	user, subject, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	leave := newLeave(user, subject, 7, false)
	if err := repo.Leave.Create(ctx, leave); err != nil {
		t.Fatalf("创建请假记录失败: %v", err)
	}

	if err := repo.Subject.Delete(ctx, subject.SubjectID); err != nil {
		t.Fatalf("删除科目失败: %v", err)
	}

	got, err := repo.Leave.GetByID(ctx, leave.LeaveID)
	if err != nil {
		t.Fatalf("科目删除后请假记录应保留: %v", err)
	}
	if got.SubjectName != subject.Name {
		t.Errorf("科目名快照应保留，得到: %s", got.SubjectName)
	}

	exists, err := repo.Subject.ExistsByName(ctx, subject.Name, "")
	if err != nil || exists {
		t.Errorf("删除后不应再存在同名科目: exists=%v err=%v", exists, err)
	}
}
