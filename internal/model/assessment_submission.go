package model

const (
	ModeClassic  = "classic"
	ModeAdaptive = "adaptive"
)

// Submission 每次完成测评写入一次，之后只读
// swagger:model Submission
type Submission struct {
	BaseModel
	AssessmentID     uint             `gorm:"index;not null" json:"assessmentId"`
	UserIdentifier   string           `gorm:"size:64;index;not null" json:"userIdentifier"`
	FullName         string           `gorm:"size:200" json:"fullName"`
	Email            string           `gorm:"size:254" json:"email"`
	Mode             string           `gorm:"size:10;default:'adaptive'" json:"mode"`
	Score            float64          `json:"score"`
	TotalWeight      float64          `json:"totalWeight"`
	Ratio            float64          `json:"ratio"`
	DurationSeconds  int              `json:"durationSeconds"`
	RecommendedLevel string           `gorm:"size:8" json:"recommendedLevel"`
	Items            []SubmissionItem `gorm:"foreignKey:SubmissionID" json:"items,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionItem 仅经典模式记录逐题结果
type SubmissionItem struct {
	BaseModel
	SubmissionID     uint    `gorm:"index;not null" json:"submissionId"`
	QuestionID       uint    `gorm:"index;not null" json:"questionId"`
	SelectedChoiceID *uint   `json:"selectedChoiceId,omitempty"`
	UserText         string  `gorm:"type:text" json:"userText"`
	IsCorrect        bool    `json:"isCorrect"`
	GainedScore      float64 `json:"gainedScore"`
}

func (SubmissionItem) TableName() string {
	return "submission_items"
}
