package attendance

import "strings"

// Resolution 请假记录对应科目的解析结果
// Known=false 表示科目已被删除或改名后无法匹配（未知科目）
type Resolution struct {
	Subject *Subject
	Known   bool
}

// MatchSubject 为记录查找对应科目
//
// 匹配顺序：
//  1. SubjectID 精确匹配
//  2. 旧数据兼容：名称去空白后忽略大小写匹配
//  3. 旧数据兼容：Subject 字段等于科目 ID
func MatchSubject(r Record, subjects []Subject) Resolution {
	if r.SubjectID != "" {
		for i := range subjects {
			if subjects[i].ID == r.SubjectID {
				return Resolution{Subject: &subjects[i], Known: true}
			}
		}
		return Resolution{}
	}

	name := strings.ToLower(strings.TrimSpace(r.Subject))
	for i := range subjects {
		if strings.ToLower(strings.TrimSpace(subjects[i].Name)) == name {
			return Resolution{Subject: &subjects[i], Known: true}
		}
	}
	if r.Subject != "" {
		for i := range subjects {
			if subjects[i].ID == r.Subject {
				return Resolution{Subject: &subjects[i], Known: true}
			}
		}
	}
	return Resolution{}
}

// ResolveNames 返回记录副本：按 SubjectID 匹配到科目的，Subject 替换为科目当前名称，
// 保证科目改名后历史记录仍归入同一组。其余记录保留原有名称。
func ResolveNames(records []Record, subjects []Subject) []Record {
	byID := make(map[string]string, len(subjects))
	for _, s := range subjects {
		byID[s.ID] = s.Name
	}

	out := make([]Record, len(records))
	for i, r := range records {
		if r.SubjectID != "" {
			if name, ok := byID[r.SubjectID]; ok {
				r.Subject = name
			}
		}
		out[i] = r
	}
	return out
}

// FilterBySubject 返回属于 subject 的记录：
// 有 SubjectID 的按 ID 比较，旧记录按名称精确比较。
func FilterBySubject(records []Record, subject Subject) []Record {
	result := make([]Record, 0)
	for _, r := range records {
		if r.SubjectID != "" {
			if r.SubjectID == subject.ID {
				result = append(result, r)
			}
			continue
		}
		if r.Subject == subject.Name {
			result = append(result, r)
		}
	}
	return result
}
