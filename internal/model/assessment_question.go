package model

import "gorm.io/datatypes"

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionFillBlank    QuestionType = "fill_blank"
	QuestionOrdering     QuestionType = "ordering"
	QuestionMatching     QuestionType = "matching"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionTrueFalse,
		QuestionFillBlank, QuestionOrdering, QuestionMatching:
		return true
	}
	return false
}

type PatternKind string

const (
	PatternExact           PatternKind = "exact"
	PatternCaseInsensitive PatternKind = "icase"
	PatternRegex           PatternKind = "regex"
)

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID   uint           `gorm:"index;not null" json:"assessmentId"`
	Text           string         `gorm:"type:text;not null" json:"text"`
	Type           QuestionType   `gorm:"size:20;not null" json:"type"`
	TargetLevel    string         `gorm:"size:8" json:"targetLevel"`
	Difficulty     string         `gorm:"size:10;default:'medium'" json:"difficulty"` // easy, medium, hard
	Weight         float64        `gorm:"default:1" json:"weight"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	CorrectBoolean *bool          `json:"correctBoolean,omitempty"` // 仅判断题使用
	HintText       string         `gorm:"type:text" json:"hintText"`
	HintLinks      datatypes.JSON `json:"hintLinks,omitempty"` // JSON: []string

	Choices        []Choice        `gorm:"foreignKey:QuestionID" json:"choices,omitempty"`
	AnswerPatterns []AnswerPattern `gorm:"foreignKey:QuestionID" json:"answerPatterns,omitempty"`
	OrderingItems  []OrderingItem  `gorm:"foreignKey:QuestionID" json:"orderingItems,omitempty"`
	MatchPairs     []MatchPair     `gorm:"foreignKey:QuestionID" json:"matchPairs,omitempty"`
	HintResources  []HintResource  `gorm:"foreignKey:QuestionID" json:"hintResources,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

type Choice struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Choice) TableName() string {
	return "choices"
}

type AnswerPattern struct {
	BaseModel
	QuestionID uint        `gorm:"index;not null" json:"questionId"`
	Pattern    string      `gorm:"size:500;not null" json:"pattern"`
	Kind       PatternKind `gorm:"size:10;default:'icase'" json:"kind"`
}

func (AnswerPattern) TableName() string {
	return "answer_patterns"
}

type OrderingItem struct {
	BaseModel
	QuestionID      uint   `gorm:"index;not null" json:"questionId"`
	Text            string `gorm:"size:500;not null" json:"text"`
	CorrectPosition int    `gorm:"not null" json:"correctPosition"` // 从 1 开始
}

func (OrderingItem) TableName() string {
	return "ordering_items"
}

type MatchPair struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	LeftText   string `gorm:"size:255;not null" json:"leftText"`
	RightText  string `gorm:"size:255;not null" json:"rightText"`
}

func (MatchPair) TableName() string {
	return "match_pairs"
}

// HintResource 答错后展示的补救资料
type HintResource struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Title      string `gorm:"size:200" json:"title"`
	URL        string `gorm:"size:500;not null" json:"url"`
	Kind       string `gorm:"size:20;default:'link'" json:"kind"` // link, video, article
}

func (HintResource) TableName() string {
	return "hint_resources"
}
