package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Shijin-GitH/Leave-Tracker/internal/attendance"
	"github.com/Shijin-GitH/Leave-Tracker/internal/dto"
	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	"github.com/Shijin-GitH/Leave-Tracker/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出内容为调用者本人的全部请假记录：
//   - Excel：Sheet「请假记录」逐条列出，Sheet「科目汇总」为按科目聚合结果
//   - 日历：每条记录一个全天 VEVENT
type ExportService interface {
	ExportExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, userID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	sheetLeaves  = "请假记录"
	sheetSummary = "科目汇总"
)

// ═══════════════════════════════════════════════════════════
// ExportExcel 导出请假记录为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	leaves, subjects, err := s.load(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	records := attendance.ResolveNames(toAttendanceRecords(leaves), subjects)
	attendance.SortByDateDesc(records)
	summaries := attendance.Summarize(records)

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(sheetLeaves)
	f.SetActiveSheet(idx)
	f.NewSheet(sheetSummary)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── 请假记录 ──
	headers := []string{"日期", "科目", "课节", "公假", "原因", "证明材料"}
	for i, h := range headers {
		f.SetCellValue(sheetLeaves, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetLeaves, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheetLeaves, "A", "A", 12)
	f.SetColWidth(sheetLeaves, "B", "B", 24)
	f.SetColWidth(sheetLeaves, "E", "E", 40)

	for i, r := range records {
		row := i + 2
		f.SetCellValue(sheetLeaves, cell("A", row), r.Date.Format(dto.DateLayout))
		f.SetCellValue(sheetLeaves, cell("B", row), r.Subject)
		if r.Period > 0 {
			f.SetCellValue(sheetLeaves, cell("C", row), r.Period)
		}
		f.SetCellValue(sheetLeaves, cell("D", row), yesNo(r.DutyLeave))
		f.SetCellValue(sheetLeaves, cell("E", row), r.Reason)
		f.SetCellValue(sheetLeaves, cell("F", row), yesNo(r.CertificateURL != ""))
	}

	// ── 科目汇总 ──
	for i, h := range []string{"科目", "请假次数", "公假次数", "日期"} {
		f.SetCellValue(sheetSummary, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetSummary, "A1", "D1", headerStyle)
	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "D", "D", 60)

	for i, sum := range summaries {
		row := i + 2
		dates := make([]string, len(sum.Dates))
		for j, d := range sum.Dates {
			dates[j] = d.Format(dto.DateLayout)
		}
		f.SetCellValue(sheetSummary, cell("A", row), sum.Subject)
		f.SetCellValue(sheetSummary, cell("B", row), sum.Count)
		f.SetCellValue(sheetSummary, cell("C", row), sum.DutyLeaveCount)
		f.SetCellValue(sheetSummary, cell("D", row), strings.Join(dates, ", "))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("leaves_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出请假记录为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, userID string) ([]byte, string, error) {
	leaves, subjects, err := s.load(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	records := attendance.ResolveNames(toAttendanceRecords(leaves), subjects)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Leave Tracker//Leaves//EN")
	cal.SetXWRCalName("Leaves")

	now := time.Now().UTC()
	for i, r := range records {
		event := cal.AddEvent(r.ID + "@leave-tracker")
		event.SetDtStampTime(now)
		if !leaves[i].UpdatedAt.IsZero() {
			event.SetModifiedAt(leaves[i].UpdatedAt)
		}
		event.SetAllDayStartAt(r.Date)
		event.SetAllDayEndAt(r.Date.AddDate(0, 0, 1))
		event.SetSummary(eventSummary(r))
		if desc := eventDescription(r); desc != "" {
			event.SetDescription(desc)
		}
	}

	filename := fmt.Sprintf("leaves_%s.ics", now.Format("20060102"))
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func (s *exportService) load(ctx context.Context, userID string) ([]model.LeaveRecord, []attendance.Subject, error) {
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
	return leaves, toAttendanceSubjects(subjects), nil
}

func eventSummary(r attendance.Record) string {
	title := "Leave: " + r.Subject
	if r.DutyLeave {
		title = "Duty leave: " + r.Subject
	}
	if r.Period > 0 {
		title += fmt.Sprintf(" (period %d)", r.Period)
	}
	return title
}

func eventDescription(r attendance.Record) string {
	return strings.TrimSpace(r.Reason)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
