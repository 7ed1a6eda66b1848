// Package attendance 请假记录聚合与出勤率计算。
//
// 本包为纯函数层：不访问存储、不持有共享状态，可被多个调用方并发使用。
// 输入由 Service 层从存储中读取后传入，输出直接用于展示。
package attendance

import "time"

// Subject 科目
type Subject struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Record 单条请假记录
//
// Subject 为创建时复制的科目名称（历史数据仅有此字段）；
// SubjectID 为科目的不可变标识，旧记录可能为空。
type Record struct {
	ID             string
	UserID         string
	SubjectID      string
	Subject        string
	Date           time.Time
	Period         int // 0 表示未填写，否则 1-6
	DutyLeave      bool
	Reason         string
	CertificateURL string
}

// SubjectSummary 按科目聚合的请假统计（派生视图，不持久化）
type SubjectSummary struct {
	Subject        string
	Count          int
	Dates          []time.Time
	DutyLeaveCount int
}

// Stats 仪表盘总览
type Stats struct {
	TotalLeaves     int
	SubjectCount    int
	DutyLeaveCount  int
	MostLeaves      string // 请假最多的科目，无数据时为空
	MostLeavesCount int
}
