package placement

import (
	"sort"
	"time"
)

// RoundSummary 每轮只保留汇总信息
type RoundSummary struct {
	Level        Level   `json:"level"`
	Correct      int     `json:"correct"`
	Total        int     `json:"total"`
	RatioPercent int     `json:"ratioPercent"`
	Gained       float64 `json:"gained"`
	Weight       float64 `json:"weight"`
}

type Identity struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (i Identity) Empty() bool {
	return i.FullName == "" && i.Email == ""
}

// State 一次自适应测评的完整状态，每轮以值的形式在调用方与 Controller 之间传递
type State struct {
	CurrentLevel Level            `json:"currentLevel"`
	AskedByLevel map[Level][]uint `json:"askedByLevel"`
	History      []RoundSummary   `json:"history"`
	StartedAt    time.Time        `json:"startedAt"`
	Identity     Identity         `json:"identity"`
	Pending      []uint           `json:"pending,omitempty"`      // 已下发、尚未提交的题目
	SubmissionID uint             `json:"submissionId,omitempty"` // 非零表示已结束并落库
}

// Closed 已写入提交记录的会话不能再提交
func (s State) Closed() bool {
	return s.SubmissionID != 0
}

func (s State) Asked(level Level) map[uint]struct{} {
	ids := s.AskedByLevel[level]
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s State) Visited(level Level) bool {
	for _, r := range s.History {
		if r.Level == level {
			return true
		}
	}
	return false
}

func (s State) Clone() State {
	out := s
	out.AskedByLevel = make(map[Level][]uint, len(s.AskedByLevel))
	for lvl, ids := range s.AskedByLevel {
		out.AskedByLevel[lvl] = append([]uint(nil), ids...)
	}
	out.History = append([]RoundSummary(nil), s.History...)
	out.Pending = append([]uint(nil), s.Pending...)
	return out
}

// markAsked 合并后保持升序去重，集合只增不减
func (s *State) markAsked(level Level, ids []uint) {
	set := s.Asked(level)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	merged := make([]uint, 0, len(set))
	for id := range set {
		merged = append(merged, id)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	if s.AskedByLevel == nil {
		s.AskedByLevel = make(map[Level][]uint)
	}
	s.AskedByLevel[level] = merged
}
