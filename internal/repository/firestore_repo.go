package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Shijin-GitH/Leave-Tracker/internal/model"
	pkgerrors "github.com/Shijin-GitH/Leave-Tracker/pkg/errors"
)

// Firestore 集合名
const (
	collectionUsers    = "users"
	collectionSubjects = "subjects"
	collectionLeaves   = "leaves"
)

// NewFirestoreRepository 创建基于 Firestore 的 Repository 聚合
// 文档 ID 即业务主键（UUID），与 PostgreSQL 后端保持一致
func NewFirestoreRepository(client *firestore.Client) *Repository {
	return &Repository{
		User:    &fsUserRepo{client: client},
		Subject: &fsSubjectRepo{client: client},
		Leave:   &fsLeaveRepo{client: client},
	}
}

// mapFirestoreErr 将 gRPC NotFound 统一为 ErrNotFound
func mapFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return pkgerrors.ErrNotFound
	}
	return err
}

// ── User ──

type fsUserRepo struct {
	client *firestore.Client
}

func (r *fsUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = model.RoleMember
	}
	_, err := r.client.Collection(collectionUsers).Doc(user.UserID).Create(ctx, user)
	return err
}

func (r *fsUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.client.Collection(collectionUsers).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreErr(err)
	}
	return decodeUser(doc)
}

func (r *fsUserRepo) GetByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	iter := r.client.Collection(collectionUsers).
		Where("firebase_uid", "==", uid).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

func (r *fsUserRepo) Update(ctx context.Context, user *model.User) error {
	_, err := r.client.Collection(collectionUsers).Doc(user.UserID).Update(ctx, []firestore.Update{
		{Path: "email", Value: user.Email},
		{Path: "display_name", Value: user.DisplayName},
		{Path: "role", Value: user.Role},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	return mapFirestoreErr(err)
}

func decodeUser(doc *firestore.DocumentSnapshot) (*model.User, error) {
	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	user.UserID = doc.Ref.ID
	return &user, nil
}

// ── Subject ──

type fsSubjectRepo struct {
	client *firestore.Client
}

func (r *fsSubjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt, subject.UpdatedAt = now, now
	_, err := r.client.Collection(collectionSubjects).Doc(subject.SubjectID).Create(ctx, subject)
	return err
}

func (r *fsSubjectRepo) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	doc, err := r.client.Collection(collectionSubjects).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreErr(err)
	}
	return decodeSubject(doc)
}

// List Firestore 不支持按 LOWER(name) 排序，取回后在内存中排序
func (r *fsSubjectRepo) List(ctx context.Context) ([]model.Subject, error) {
	iter := r.client.Collection(collectionSubjects).Documents(ctx)
	defer iter.Stop()

	var subjects []model.Subject
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		s, err := decodeSubject(doc)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *s)
	}

	sort.SliceStable(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i].Name) < strings.ToLower(subjects[j].Name)
	})
	return subjects, nil
}

func (r *fsSubjectRepo) Update(ctx context.Context, subject *model.Subject) error {
	_, err := r.client.Collection(collectionSubjects).Doc(subject.SubjectID).Update(ctx, []firestore.Update{
		{Path: "name", Value: subject.Name},
		{Path: "updated_by", Value: subject.UpdatedBy},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	return mapFirestoreErr(err)
}

func (r *fsSubjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(collectionSubjects).Doc(id).Delete(ctx, firestore.Exists)
	return mapFirestoreErr(err)
}

func (r *fsSubjectRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	subjects, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range subjects {
		if s.SubjectID != excludeID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func decodeSubject(doc *firestore.DocumentSnapshot) (*model.Subject, error) {
	var subject model.Subject
	if err := doc.DataTo(&subject); err != nil {
		return nil, err
	}
	subject.SubjectID = doc.Ref.ID
	return &subject, nil
}

// ── Leave ──

type fsLeaveRepo struct {
	client *firestore.Client
}

func (r *fsLeaveRepo) Create(ctx context.Context, leave *model.LeaveRecord) error {
	if leave.LeaveID == "" {
		leave.LeaveID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt, leave.UpdatedAt = now, now
	leave.Version = 1
	_, err := r.client.Collection(collectionLeaves).Doc(leave.LeaveID).Create(ctx, leave)
	return err
}

func (r *fsLeaveRepo) GetByID(ctx context.Context, id string) (*model.LeaveRecord, error) {
	doc, err := r.client.Collection(collectionLeaves).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreErr(err)
	}
	return decodeLeave(doc)
}

// ListByUser 过滤在服务端完成，排序与分页在内存中完成（避免复合索引）
func (r *fsLeaveRepo) ListByUser(ctx context.Context, userID string, filter LeaveFilter) ([]model.LeaveRecord, int64, error) {
	q := r.client.Collection(collectionLeaves).Where("user_id", "==", userID)
	if filter.SubjectID != "" {
		q = q.Where("subject_id", "==", filter.SubjectID)
	}
	if filter.DutyOnly {
		q = q.Where("duty_leave", "==", true)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var leaves []model.LeaveRecord
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		l, err := decodeLeave(doc)
		if err != nil {
			return nil, 0, err
		}
		leaves = append(leaves, *l)
	}

	leaves, total := sortAndPage(leaves, filter)
	return leaves, total, nil
}

// sortAndPage 按日期倒序（同日按创建时间倒序）排序后分页，返回分页前总数
func sortAndPage(leaves []model.LeaveRecord, filter LeaveFilter) ([]model.LeaveRecord, int64) {
	sort.SliceStable(leaves, func(i, j int) bool {
		if !leaves[i].LeaveDate.Equal(leaves[j].LeaveDate) {
			return leaves[i].LeaveDate.After(leaves[j].LeaveDate)
		}
		return leaves[i].CreatedAt.After(leaves[j].CreatedAt)
	})

	total := int64(len(leaves))
	if filter.Limit <= 0 {
		return leaves, total
	}
	start := min(max(filter.Offset, 0), len(leaves))
	end := min(start+filter.Limit, len(leaves))
	return leaves[start:end], total
}

func (r *fsLeaveRepo) Update(ctx context.Context, leave *model.LeaveRecord) error {
	ref := r.client.Collection(collectionLeaves).Doc(leave.LeaveID)
	oldVersion := leave.Version

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return mapFirestoreErr(err)
		}
		current, err := decodeLeave(doc)
		if err != nil {
			return err
		}
		if current.Version != oldVersion {
			return pkgerrors.ErrOptimisticLock
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "subject_id", Value: leave.SubjectID},
			{Path: "subject_name", Value: leave.SubjectName},
			{Path: "leave_date", Value: leave.LeaveDate},
			{Path: "period", Value: leave.Period},
			{Path: "duty_leave", Value: leave.DutyLeave},
			{Path: "reason", Value: leave.Reason},
			{Path: "certificate_url", Value: leave.CertificateURL},
			{Path: "updated_by", Value: leave.UpdatedBy},
			{Path: "updated_at", Value: time.Now().UTC()},
			{Path: "version", Value: oldVersion + 1},
		})
	})
	if err != nil {
		return err
	}
	leave.Version = oldVersion + 1
	return nil
}

func (r *fsLeaveRepo) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(collectionLeaves).Doc(id).Delete(ctx, firestore.Exists)
	return mapFirestoreErr(err)
}

func (r *fsLeaveRepo) UpdateCertificate(ctx context.Context, id string, certificateURL *string, updatedBy string) error {
	_, err := r.client.Collection(collectionLeaves).Doc(id).Update(ctx, []firestore.Update{
		{Path: "certificate_url", Value: certificateURL},
		{Path: "updated_by", Value: updatedBy},
		{Path: "updated_at", Value: time.Now().UTC()},
		{Path: "version", Value: firestore.Increment(1)},
	})
	return mapFirestoreErr(err)
}

func decodeLeave(doc *firestore.DocumentSnapshot) (*model.LeaveRecord, error) {
	var leave model.LeaveRecord
	if err := doc.DataTo(&leave); err != nil {
		return nil, err
	}
	leave.LeaveID = doc.Ref.ID
	return &leave, nil
}
