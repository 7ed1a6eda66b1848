package attendance

import (
	"sort"
	"strings"
	"time"
)

// Summarize 按 Subject 字面值分组统计（区分大小写，不做归一化）。
// 结果按 Count 降序；Count 相同时保持首次出现的顺序。
func Summarize(records []Record) []SubjectSummary {
	result := make([]SubjectSummary, 0)
	index := make(map[string]int)

	for _, r := range records {
		i, ok := index[r.Subject]
		if !ok {
			i = len(result)
			index[r.Subject] = i
			result = append(result, SubjectSummary{Subject: r.Subject, Dates: []time.Time{}})
		}
		result[i].Count++
		result[i].Dates = append(result[i].Dates, r.Date)
		if r.DutyLeave {
			result[i].DutyLeaveCount++
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// Overview 计算仪表盘总览。summaries 须为 Summarize 的输出。
func Overview(records []Record, summaries []SubjectSummary) Stats {
	stats := Stats{
		TotalLeaves:  len(records),
		SubjectCount: len(summaries),
	}
	for _, r := range records {
		if r.DutyLeave {
			stats.DutyLeaveCount++
		}
	}
	if len(summaries) > 0 {
		stats.MostLeaves = summaries[0].Subject
		stats.MostLeavesCount = summaries[0].Count
	}
	return stats
}

// RecordsWithLabel 返回 Subject 等于 label 的记录（精确匹配）
func RecordsWithLabel(records []Record, label string) []Record {
	result := make([]Record, 0)
	for _, r := range records {
		if r.Subject == label {
			result = append(result, r)
		}
	}
	return result
}

// SortByDateDesc 按日期倒序排列（原地，稳定）
func SortByDateDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

// SortSubjects 按名称排序（忽略大小写）
func SortSubjects(subjects []Subject) {
	sort.SliceStable(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i].Name) < strings.ToLower(subjects[j].Name)
	})
}
