// Package grading 负责逐题判分：六种题型各自携带标准答案并实现 Evaluate。
// 判分永不报错，无法解析的作答一律按 0 分、答错处理。
package grading

import (
	"regexp"
	"sort"
	"strings"

	"placement_backend/internal/model"
)

// Outcome 单题判分结果，Gained 始终落在 [0, Weight] 内
type Outcome struct {
	Correct bool    `json:"correct"`
	Gained  float64 `json:"gained"`
}

var zero = Outcome{}

// Item 是封闭接口，只有本包内的六种题型可以实现
type Item interface {
	QuestionID() uint
	Weight() float64
	Evaluate(response any) Outcome
	sealed()
}

type base struct {
	id     uint
	weight float64
}

func (b base) QuestionID() uint { return b.id }
func (b base) Weight() float64  { return b.weight }
func (base) sealed()            {}

func (b base) binary(ok bool) Outcome {
	if ok {
		return Outcome{Correct: true, Gained: b.weight}
	}
	return zero
}

// SingleChoice 单选
type SingleChoice struct {
	base
	correct map[uint]bool
}

func (q SingleChoice) Evaluate(response any) Outcome {
	id, ok := parseID(response)
	if !ok {
		return zero
	}
	return q.binary(q.correct[id])
}

// MultiChoice 多选，按命中的正确选项比例给部分分
type MultiChoice struct {
	base
	correct map[uint]struct{}
}

func (q MultiChoice) Evaluate(response any) Outcome {
	ids, ok := parseIDList(response)
	if !ok {
		return zero
	}
	selected := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}

	hit := 0
	for id := range selected {
		if _, ok := q.correct[id]; ok {
			hit++
		}
	}

	// 没有正确选项的题目拿不到满分，也不计为答对
	out := Outcome{Correct: len(q.correct) > 0 && hit == len(q.correct) && len(selected) == len(q.correct)}
	if len(q.correct) > 0 {
		out.Gained = q.weight * float64(hit) / float64(len(q.correct))
	}
	return out
}

// TrueFalse 判断题
type TrueFalse struct {
	base
	answer bool
}

func (q TrueFalse) Evaluate(response any) Outcome {
	v, ok := parseBool(response)
	if !ok {
		return zero
	}
	return q.binary(v == q.answer)
}

type pattern struct {
	kind model.PatternKind
	text string
	re   *regexp.Regexp
}

// FillBlank 填空题，依次尝试 exact、icase、regex 三类模式
type FillBlank struct {
	base
	patterns []pattern
}

var kindRank = map[model.PatternKind]int{
	model.PatternExact:           0,
	model.PatternCaseInsensitive: 1,
	model.PatternRegex:           2,
}

func newFillBlank(b base, src []model.AnswerPattern) FillBlank {
	ps := make([]pattern, 0, len(src))
	for _, p := range src {
		kind := p.Kind
		if kind == "" {
			kind = model.PatternCaseInsensitive
		}
		if _, ok := kindRank[kind]; !ok {
			continue
		}
		pt := pattern{kind: kind, text: p.Pattern}
		if kind == model.PatternRegex {
			re, err := regexp.Compile(`^(?:` + p.Pattern + `)$`)
			if err != nil {
				continue
			}
			pt.re = re
		}
		ps = append(ps, pt)
	}
	sort.SliceStable(ps, func(i, j int) bool {
		return kindRank[ps[i].kind] < kindRank[ps[j].kind]
	})
	return FillBlank{base: b, patterns: ps}
}

func (q FillBlank) Evaluate(response any) Outcome {
	text, ok := parseText(response)
	if !ok {
		return zero
	}
	text = strings.TrimSpace(text)
	for _, p := range q.patterns {
		if p.matches(text) {
			return q.binary(true)
		}
	}
	return zero
}

func (p pattern) matches(text string) bool {
	switch p.kind {
	case model.PatternExact:
		return text == p.text
	case model.PatternCaseInsensitive:
		return strings.EqualFold(text, p.text)
	case model.PatternRegex:
		return p.re != nil && p.re.MatchString(text)
	}
	return false
}

// Ordering 排序题，按位置逐一比对给部分分
type Ordering struct {
	base
	sequence []uint
}

func newOrdering(b base, items []model.OrderingItem) Ordering {
	sorted := make([]model.OrderingItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CorrectPosition != sorted[j].CorrectPosition {
			return sorted[i].CorrectPosition < sorted[j].CorrectPosition
		}
		return sorted[i].ID < sorted[j].ID
	})
	seq := make([]uint, len(sorted))
	for i, it := range sorted {
		seq[i] = it.ID
	}
	return Ordering{base: b, sequence: seq}
}

func (q Ordering) Evaluate(response any) Outcome {
	ids, ok := parseIDList(response)
	if !ok || len(q.sequence) == 0 {
		return zero
	}

	matched := 0
	for i := 0; i < len(ids) && i < len(q.sequence); i++ {
		if ids[i] == q.sequence[i] {
			matched++
		}
	}

	return Outcome{
		Correct: matched == len(q.sequence) && len(ids) == len(q.sequence),
		Gained:  q.weight * float64(matched) / float64(len(q.sequence)),
	}
}

// Matching 连线题，左项唯一，重复左项以后出现的为准
type Matching struct {
	base
	pairs map[string]string
}

func newMatching(b base, src []model.MatchPair) Matching {
	pairs := make(map[string]string, len(src))
	for _, p := range src {
		pairs[strings.TrimSpace(p.LeftText)] = strings.TrimSpace(p.RightText)
	}
	return Matching{base: b, pairs: pairs}
}

func (q Matching) Evaluate(response any) Outcome {
	submitted, ok := parseMapping(response)
	if !ok || len(q.pairs) == 0 {
		return zero
	}

	matched := 0
	for left, right := range q.pairs {
		if v, ok := submitted[left]; ok && v == right {
			matched++
		}
	}

	return Outcome{
		Correct: matched == len(q.pairs),
		Gained:  q.weight * float64(matched) / float64(len(q.pairs)),
	}
}
