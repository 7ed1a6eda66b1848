package dto

// ── 科目模块 DTO ──

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// UpdateSubjectRequest 重命名科目请求
type UpdateSubjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// SubjectResponse 科目信息响应
type SubjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}
