package model

// 每个等级（A1/A2/B1/B2）对应一份启用中的评估
// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title            string     `gorm:"size:200;not null" json:"title"`
	Level            string     `gorm:"size:8;index;not null" json:"level"`
	IsActive         bool       `gorm:"default:true;index" json:"isActive"`
	TimeLimitSeconds int        `gorm:"default:600" json:"timeLimitSeconds"`
	AttemptLimit     int        `gorm:"default:3" json:"attemptLimit"` // 0 表示不限次数
	Questions        []Question `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}
