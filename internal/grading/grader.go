package grading

import (
	"errors"
	"fmt"

	"placement_backend/internal/model"
)

var ErrUnsupportedType = errors.New("unsupported question type")

// FromQuestion 由题库模型构造可判分的题目，权重非正时按 1 处理
func FromQuestion(q *model.Question) (Item, error) {
	weight := q.Weight
	if weight <= 0 {
		weight = 1
	}
	b := base{id: q.ID, weight: weight}

	switch q.Type {
	case model.QuestionSingleChoice:
		correct := make(map[uint]bool, len(q.Choices))
		for _, c := range q.Choices {
			correct[c.ID] = c.IsCorrect
		}
		return SingleChoice{base: b, correct: correct}, nil
	case model.QuestionMultiChoice:
		correct := make(map[uint]struct{})
		for _, c := range q.Choices {
			if c.IsCorrect {
				correct[c.ID] = struct{}{}
			}
		}
		return MultiChoice{base: b, correct: correct}, nil
	case model.QuestionTrueFalse:
		return TrueFalse{base: b, answer: q.CorrectBoolean != nil && *q.CorrectBoolean}, nil
	case model.QuestionFillBlank:
		return newFillBlank(b, q.AnswerPatterns), nil
	case model.QuestionOrdering:
		return newOrdering(b, q.OrderingItems), nil
	case model.QuestionMatching:
		return newMatching(b, q.MatchPairs), nil
	}
	return nil, fmt.Errorf("question %d: %w: %q", q.ID, ErrUnsupportedType, q.Type)
}

// Grade 单题判分，题型未知时按 0 分处理
func Grade(q *model.Question, response any) Outcome {
	item, err := FromQuestion(q)
	if err != nil {
		return zero
	}
	return item.Evaluate(response)
}

type ItemResult struct {
	QuestionID uint    `json:"questionId"`
	Weight     float64 `json:"weight"`
	Correct    bool    `json:"correct"`
	Gained     float64 `json:"gained"`
}

// BatchResult 一组题目的汇总
type BatchResult struct {
	Total   float64      `json:"total"`
	Gained  float64      `json:"gained"`
	Ratio   float64      `json:"ratio"`
	Correct int          `json:"correct"`
	Results []ItemResult `json:"results"`
}

// GradeBatch 按 items 顺序逐题判分，responses 中缺失的题目视为未作答
func GradeBatch(items []Item, responses map[uint]any) BatchResult {
	res := BatchResult{Results: make([]ItemResult, 0, len(items))}
	for _, it := range items {
		var out Outcome
		if resp, ok := responses[it.QuestionID()]; ok {
			out = it.Evaluate(resp)
		}
		res.Total += it.Weight()
		res.Gained += out.Gained
		if out.Correct {
			res.Correct++
		}
		res.Results = append(res.Results, ItemResult{
			QuestionID: it.QuestionID(),
			Weight:     it.Weight(),
			Correct:    out.Correct,
			Gained:     out.Gained,
		})
	}
	res.Ratio = Ratio(res.Gained, res.Total)
	return res
}

// Ratio 分母至少为 1，结果截断到 [0, 1]
func Ratio(gained, total float64) float64 {
	denom := total
	if denom < 1 {
		denom = 1
	}
	r := gained / denom
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// ChoiceID 取单选作答中的选项 id，用于记录逐题结果
func ChoiceID(response any) (uint, bool) {
	return parseID(response)
}
