package dto

// ── 汇总模块 DTO ──

// SubjectSummaryResponse 单科目请假汇总
type SubjectSummaryResponse struct {
	Subject        string   `json:"subject"`
	Count          int      `json:"count"`
	DutyLeaveCount int      `json:"duty_leave_count"`
	Dates          []string `json:"dates"`
}

// StatsResponse 总览统计
type StatsResponse struct {
	TotalLeaves     int    `json:"total_leaves"`
	SubjectCount    int    `json:"subject_count"`
	DutyLeaveCount  int    `json:"duty_leave_count"`
	MostLeaves      string `json:"most_leaves,omitempty"`
	MostLeavesCount int    `json:"most_leaves_count"`
}

// SummaryResponse 汇总页响应
type SummaryResponse struct {
	Stats    StatsResponse            `json:"stats"`
	Subjects []SubjectSummaryResponse `json:"subjects"`
}

// SubjectLeavesRequest 单科目明细查询
type SubjectLeavesRequest struct {
	Subject string `form:"subject" binding:"required"`
}

// PercentageRequest 出勤率查询；total_classes 原样传入，非法值返回 N/A
type PercentageRequest struct {
	SubjectID    string `form:"subject_id"    binding:"required,uuid"`
	TotalClasses string `form:"total_classes"`
}

// PercentageResponse 出勤率响应
type PercentageResponse struct {
	Subject      string  `json:"subject"`
	TotalClasses float64 `json:"total_classes"`
	Leaves       int     `json:"leaves"`
	Percentage   string  `json:"percentage"` // "N/A" 或 "xx.xx%"
	Status       string  `json:"status"`
}
