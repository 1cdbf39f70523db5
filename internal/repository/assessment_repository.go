package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"placement_backend/internal/model"
	"placement_backend/internal/util"
)

// AssessmentRepository 题库读写
type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func withAnswerData(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("AnswerPatterns", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("OrderingItems", func(db *gorm.DB) *gorm.DB { return db.Order("correct_position asc, id asc") }).
		Preload("MatchPairs", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrAssessmentNotFound
	}
	return err
}

// FindActiveByLevel 同一等级有多份启用评估时取 id 最小的
func (r *AssessmentRepository) FindActiveByLevel(ctx context.Context, level string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).
		Where("level = ? AND is_active = ?", level, true).
		Order("id asc").
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AssessmentRepository) FindActiveByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).Where("is_active = ?", true).First(&a, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AssessmentRepository) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AssessmentRepository) ListActive(ctx context.Context) ([]model.Assessment, error) {
	var as []model.Assessment
	err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) ListAssessments(ctx context.Context, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Assessment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("level asc, id asc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

// QuestionIDsFor 只取 id，供选题使用
func (r *AssessmentRepository) QuestionIDsFor(ctx context.Context, assessmentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("assessment_id = ?", assessmentID).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

// QuestionsFor 按 id 升序返回题目及判分所需的全部子数据
func (r *AssessmentRepository) QuestionsFor(ctx context.Context, assessmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := withAnswerData(r.DB.WithContext(ctx)).
		Where("assessment_id = ?", assessmentID).
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) QuestionsByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := withAnswerData(r.DB.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) FindQuestionByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	err := withAnswerData(r.DB.WithContext(ctx)).Preload("HintResources").First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// HintsFor 仅加载提示相关字段
func (r *AssessmentRepository) HintsFor(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Select("id", "text", "explanation", "hint_text", "hint_links").
		Preload("HintResources", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

// CreateAssessment 显式写回零值字段，停用、不限时、不限次数不会被列默认值覆盖。
// Create 会把列默认值回填到 a，所以先记下调用方给出的值
func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	requested := map[string]interface{}{
		"is_active":          a.IsActive,
		"time_limit_seconds": a.TimeLimitSeconds,
		"attempt_limit":      a.AttemptLimit,
	}
	isActive, timeLimit, attempts := a.IsActive, a.TimeLimitSeconds, a.AttemptLimit
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return tx.Model(&model.Assessment{}).
			Where("id = ?", a.ID).
			Updates(requested).Error
	})
	if err != nil {
		return err
	}
	a.IsActive, a.TimeLimitSeconds, a.AttemptLimit = isActive, timeLimit, attempts
	return nil
}

func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Save(a).Error
}

// CreateQuestion 连同选项、模式、排序项、配对与提示资源一并写入
func (r *AssessmentRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// ReplaceQuestion 更新题干并整体替换子数据
func (r *AssessmentRepository) ReplaceQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&model.Choice{}, &model.AnswerPattern{}, &model.OrderingItem{}, &model.MatchPair{}, &model.HintResource{},
		} {
			if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(q).Error
	})
}

func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := withAnswerData(r.DB.WithContext(ctx)).
		Preload("HintResources").
		Where("assessment_id = ?", assessmentID).
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) DeleteQuestion(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Question{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}
