package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/datatypes"

	"placement_backend/internal/model"
	"placement_backend/internal/placement"
	"placement_backend/internal/repository"
	"placement_backend/internal/util"
)

// AssessmentService 题库维护，供管理端使用
type AssessmentService struct {
	Repo        *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	ladder      func() *placement.Ladder
}

func NewAssessmentService(repo *repository.AssessmentRepository, submissions *repository.SubmissionRepository, ladder func() *placement.Ladder) *AssessmentService {
	return &AssessmentService{Repo: repo, Submissions: submissions, ladder: ladder}
}

type AssessmentRequest struct {
	Title            string `json:"title" binding:"required"`
	Level            string `json:"level" binding:"required"`
	IsActive         *bool  `json:"isActive"`
	TimeLimitSeconds int    `json:"timeLimitSeconds" binding:"min=0"`
	AttemptLimit     int    `json:"attemptLimit" binding:"min=0"` // 0 表示不限次数
}

type ChoiceInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type PatternInput struct {
	Pattern string            `json:"pattern"`
	Kind    model.PatternKind `json:"kind"`
}

type OrderingItemInput struct {
	Text            string `json:"text"`
	CorrectPosition int    `json:"correctPosition"`
}

type MatchPairInput struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type HintResourceInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
}

type QuestionRequest struct {
	AssessmentID   uint                `json:"assessmentId" binding:"required"`
	Text           string              `json:"text" binding:"required"`
	Type           model.QuestionType  `json:"type" binding:"required"`
	TargetLevel    string              `json:"targetLevel"`
	Difficulty     string              `json:"difficulty"`
	Weight         float64             `json:"weight"`
	Explanation    string              `json:"explanation"`
	CorrectBoolean *bool               `json:"correctBoolean"`
	HintText       string              `json:"hintText"`
	HintLinks      []string            `json:"hintLinks"`
	Choices        []ChoiceInput       `json:"choices"`
	Patterns       []PatternInput      `json:"patterns"`
	OrderingItems  []OrderingItemInput `json:"orderingItems"`
	MatchPairs     []MatchPairInput    `json:"matchPairs"`
	HintResources  []HintResourceInput `json:"hintResources"`
}

func invalidQuestion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrInvalidQuestion, fmt.Sprintf(format, args...))
}

func (s *AssessmentService) checkLevel(level string) error {
	if !s.ladder().Contains(placement.Level(level)) {
		return fmt.Errorf("%w: level %q is not configured", util.ErrInvalidAssessment, level)
	}
	return nil
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, req AssessmentRequest) (*model.Assessment, error) {
	if err := s.checkLevel(req.Level); err != nil {
		return nil, err
	}
	a := &model.Assessment{
		Title:            strings.TrimSpace(req.Title),
		Level:            req.Level,
		IsActive:         req.IsActive == nil || *req.IsActive,
		TimeLimitSeconds: req.TimeLimitSeconds,
		AttemptLimit:     req.AttemptLimit,
	}
	if err := s.Repo.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) UpdateAssessment(ctx context.Context, id uint, req AssessmentRequest) (*model.Assessment, error) {
	if err := s.checkLevel(req.Level); err != nil {
		return nil, err
	}
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Title = strings.TrimSpace(req.Title)
	a.Level = req.Level
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	a.TimeLimitSeconds = req.TimeLimitSeconds
	a.AttemptLimit = req.AttemptLimit
	if err := s.Repo.UpdateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) ListAssessments(ctx context.Context, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.ListAssessments(ctx, page, limit)
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *AssessmentService) CreateQuestion(ctx context.Context, req QuestionRequest) (*model.Question, error) {
	if _, err := s.Repo.FindByID(ctx, req.AssessmentID); err != nil {
		return nil, err
	}
	q, err := s.buildQuestion(req)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) ListQuestions(ctx context.Context, assessmentID uint) ([]model.Question, error) {
	return s.Repo.ListQuestions(ctx, assessmentID)
}

func (s *AssessmentService) GetQuestion(ctx context.Context, id uint) (*model.Question, error) {
	return s.Repo.FindQuestionByID(ctx, id)
}

// UpdateQuestion 子数据整体替换
func (s *AssessmentService) UpdateQuestion(ctx context.Context, id uint, req QuestionRequest) (*model.Question, error) {
	old, err := s.Repo.FindQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AssessmentID != old.AssessmentID {
		if _, err := s.Repo.FindByID(ctx, req.AssessmentID); err != nil {
			return nil, err
		}
	}

	q, err := s.buildQuestion(req)
	if err != nil {
		return nil, err
	}
	q.ID = old.ID
	q.CreatedAt = old.CreatedAt
	if err := s.Repo.ReplaceQuestion(ctx, q); err != nil {
		return nil, err
	}
	return s.Repo.FindQuestionByID(ctx, id)
}

func (s *AssessmentService) DeleteQuestion(ctx context.Context, id uint) error {
	return s.Repo.DeleteQuestion(ctx, id)
}

func (s *AssessmentService) ListSubmissions(ctx context.Context, page, limit int, level string) ([]model.Submission, int64, error) {
	if level == "all" {
		level = ""
	}
	return s.Submissions.List(ctx, page, limit, level)
}

// buildQuestion 校验请求并转换为模型，所有题型都必须能被判分
func (s *AssessmentService) buildQuestion(req QuestionRequest) (*model.Question, error) {
	if !req.Type.Valid() {
		return nil, invalidQuestion("unknown type %q", req.Type)
	}
	if req.Weight < 0 {
		return nil, invalidQuestion("weight must be positive")
	}
	if req.Weight == 0 {
		req.Weight = 1
	}
	if req.TargetLevel != "" && !s.ladder().Contains(placement.Level(req.TargetLevel)) {
		return nil, invalidQuestion("target level %q is not configured", req.TargetLevel)
	}

	q := &model.Question{
		AssessmentID: req.AssessmentID,
		Text:         strings.TrimSpace(req.Text),
		Type:         req.Type,
		TargetLevel:  req.TargetLevel,
		Difficulty:   req.Difficulty,
		Weight:       req.Weight,
		Explanation:  req.Explanation,
		HintText:     req.HintText,
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if len(req.HintLinks) > 0 {
		raw, err := json.Marshal(req.HintLinks)
		if err != nil {
			return nil, err
		}
		q.HintLinks = datatypes.JSON(raw)
	}
	for _, h := range req.HintResources {
		if strings.TrimSpace(h.URL) == "" {
			return nil, invalidQuestion("hint resource url is required")
		}
		kind := h.Kind
		if kind == "" {
			kind = "link"
		}
		q.HintResources = append(q.HintResources, model.HintResource{Title: h.Title, URL: strings.TrimSpace(h.URL), Kind: kind})
	}

	switch req.Type {
	case model.QuestionSingleChoice, model.QuestionMultiChoice:
		if len(req.Choices) < 2 {
			return nil, invalidQuestion("at least two choices are required")
		}
		correct := 0
		for _, c := range req.Choices {
			if strings.TrimSpace(c.Text) == "" {
				return nil, invalidQuestion("choice text is required")
			}
			if c.IsCorrect {
				correct++
			}
			q.Choices = append(q.Choices, model.Choice{Text: strings.TrimSpace(c.Text), IsCorrect: c.IsCorrect})
		}
		if req.Type == model.QuestionSingleChoice && correct != 1 {
			return nil, invalidQuestion("single choice needs exactly one correct choice, got %d", correct)
		}

	case model.QuestionTrueFalse:
		if req.CorrectBoolean == nil {
			return nil, invalidQuestion("correctBoolean is required")
		}
		v := *req.CorrectBoolean
		q.CorrectBoolean = &v

	case model.QuestionFillBlank:
		if len(req.Patterns) == 0 {
			return nil, invalidQuestion("at least one answer pattern is required")
		}
		for _, p := range req.Patterns {
			kind := p.Kind
			if kind == "" {
				kind = model.PatternCaseInsensitive
			}
			switch kind {
			case model.PatternExact, model.PatternCaseInsensitive:
			case model.PatternRegex:
				if _, err := regexp.Compile(p.Pattern); err != nil {
					return nil, invalidQuestion("pattern %q: %v", p.Pattern, err)
				}
			default:
				return nil, invalidQuestion("unknown pattern kind %q", p.Kind)
			}
			if p.Pattern == "" {
				return nil, invalidQuestion("empty answer pattern")
			}
			q.AnswerPatterns = append(q.AnswerPatterns, model.AnswerPattern{Pattern: p.Pattern, Kind: kind})
		}

	case model.QuestionOrdering:
		if len(req.OrderingItems) < 2 {
			return nil, invalidQuestion("at least two ordering items are required")
		}
		seen := make(map[int]bool, len(req.OrderingItems))
		for i, it := range req.OrderingItems {
			pos := it.CorrectPosition
			// 未填写位置时按提交顺序
			if pos == 0 {
				pos = i + 1
			}
			if pos < 1 || pos > len(req.OrderingItems) || seen[pos] {
				return nil, invalidQuestion("positions must be a permutation of 1..%d", len(req.OrderingItems))
			}
			seen[pos] = true
			q.OrderingItems = append(q.OrderingItems, model.OrderingItem{Text: strings.TrimSpace(it.Text), CorrectPosition: pos})
		}

	case model.QuestionMatching:
		if len(req.MatchPairs) == 0 {
			return nil, invalidQuestion("at least one pair is required")
		}
		lefts := make(map[string]bool, len(req.MatchPairs))
		for _, p := range req.MatchPairs {
			left, right := strings.TrimSpace(p.Left), strings.TrimSpace(p.Right)
			if left == "" || right == "" {
				return nil, invalidQuestion("pair sides must not be empty")
			}
			if lefts[left] {
				return nil, invalidQuestion("duplicate left item %q", left)
			}
			lefts[left] = true
			q.MatchPairs = append(q.MatchPairs, model.MatchPair{LeftText: left, RightText: right})
		}
	}
	return q, nil
}
