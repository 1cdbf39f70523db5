// Package placement 实现分级测评的核心：等级阶梯、自适应状态机、次数与时长校验以及经典模式计分。
// 包内函数均不做 I/O，由调用方负责读写题库、会话与提交记录。
package placement

import (
	"errors"
	"fmt"
)

type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

var (
	ErrEmptyLadder  = errors.New("level ladder is empty")
	ErrUnknownLevel = errors.New("level is not on the ladder")
)

type Step struct {
	Level     Level
	BatchSize int
}

// Ladder 由低到高排列的等级及每级出题数量
type Ladder struct {
	steps []Step
	index map[Level]int
}

func NewLadder(steps []Step) (*Ladder, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyLadder
	}
	l := &Ladder{
		steps: make([]Step, len(steps)),
		index: make(map[Level]int, len(steps)),
	}
	for i, s := range steps {
		if s.Level == "" {
			return nil, fmt.Errorf("ladder step %d: empty level", i)
		}
		if s.BatchSize <= 0 {
			return nil, fmt.Errorf("ladder step %s: batch size must be positive", s.Level)
		}
		if _, dup := l.index[s.Level]; dup {
			return nil, fmt.Errorf("ladder step %s: duplicate level", s.Level)
		}
		l.steps[i] = s
		l.index[s.Level] = i
	}
	return l, nil
}

// DefaultLadder 等级越高题量越大
func DefaultLadder() *Ladder {
	l, _ := NewLadder([]Step{
		{Level: LevelA1, BatchSize: 5},
		{Level: LevelA2, BatchSize: 7},
		{Level: LevelB1, BatchSize: 9},
		{Level: LevelB2, BatchSize: 12},
	})
	return l
}

func (l *Ladder) Len() int       { return len(l.steps) }
func (l *Ladder) Lowest() Level  { return l.steps[0].Level }
func (l *Ladder) Highest() Level { return l.steps[len(l.steps)-1].Level }

func (l *Ladder) Contains(level Level) bool {
	_, ok := l.index[level]
	return ok
}

func (l *Ladder) Index(level Level) (int, bool) {
	i, ok := l.index[level]
	return i, ok
}

func (l *Ladder) Levels() []Level {
	out := make([]Level, len(l.steps))
	for i, s := range l.steps {
		out[i] = s.Level
	}
	return out
}

func (l *Ladder) BatchSize(level Level) int {
	if i, ok := l.index[level]; ok {
		return l.steps[i].BatchSize
	}
	return 0
}

// Below 返回相邻的低一级，已在最低级时 ok=false
func (l *Ladder) Below(level Level) (Level, bool) {
	i, ok := l.index[level]
	if !ok || i == 0 {
		return "", false
	}
	return l.steps[i-1].Level, true
}

// Above 返回相邻的高一级，已在最高级时 ok=false
func (l *Ladder) Above(level Level) (Level, bool) {
	i, ok := l.index[level]
	if !ok || i == len(l.steps)-1 {
		return "", false
	}
	return l.steps[i+1].Level, true
}
