package attendance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NotAvailable 总课时无效时的展示值
const NotAvailable = "N/A"

// PercentageStatus 出勤率计算结果类型
type PercentageStatus string

const (
	StatusNotAvailable PercentageStatus = "not_available" // 总课时缺失、非数字或 <= 0
	StatusNormal       PercentageStatus = "normal"
	StatusExceeded     PercentageStatus = "exceeded" // 请假次数超过总课时，比例为负数
)

// Percentage 出勤率计算结果
type Percentage struct {
	Status       PercentageStatus
	Value        float64
	Leaves       int
	TotalClasses float64
}

// String 渲染为展示文本：两位小数加 %，无效时为 "N/A"。
// Exceeded 状态同样输出负数比例，不截断。
func (p Percentage) String() string {
	if p.Status == StatusNotAvailable {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", p.Value)
}

// ParseTotalClasses 解析用户输入的总课时
func ParseTotalClasses(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || !validTotal(n) {
		return 0, false
	}
	return n, true
}

// ComputePercentage 出勤率 = (总课时 - 请假次数) / 总课时 * 100
func ComputePercentage(totalClasses float64, recordsForSubject []Record) Percentage {
	leaves := len(recordsForSubject)
	if !validTotal(totalClasses) {
		return Percentage{Status: StatusNotAvailable, Leaves: leaves}
	}

	p := Percentage{
		Status:       StatusNormal,
		Value:        (totalClasses - float64(leaves)) / totalClasses * 100,
		Leaves:       leaves,
		TotalClasses: totalClasses,
	}
	if float64(leaves) > totalClasses {
		p.Status = StatusExceeded
	}
	return p
}

func validTotal(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0) && n > 0
}
