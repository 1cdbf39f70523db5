package repository

import (
	"context"

	"gorm.io/gorm"

	"placement_backend/internal/model"
)

// SubmissionRepository 只提供新增与查询，提交记录写入后不可修改
type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// Create 在同一事务内写入提交及逐题结果，返回新记录 id
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) (uint, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(s).Error
	})
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}

func (r *SubmissionRepository) CountByAssessmentAndUser(ctx context.Context, assessmentID uint, userIdentifier string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("assessment_id = ? AND user_identifier = ?", assessmentID, userIdentifier).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) FindLatestByUser(ctx context.Context, userIdentifier string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_identifier = ?", userIdentifier).
		Order("created_at desc, id desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByIDForUser(ctx context.Context, id uint, userIdentifier string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_identifier = ?", userIdentifier).
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) List(ctx context.Context, page, limit int, level string) ([]model.Submission, int64, error) {
	var ss []model.Submission
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Submission{})
	if level != "" {
		query = query.Where("recommended_level = ?", level)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}
