package placement

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"placement_backend/internal/grading"
)

const (
	DefaultLowThreshold  = 0.3
	DefaultHighThreshold = 0.6
)

var ErrInvalidThresholds = errors.New("thresholds must satisfy 0 <= low <= high <= 1")

type Config struct {
	Ladder  *Ladder
	Low     float64
	High    float64
	Classic []ClassicThreshold
}

func DefaultConfig() Config {
	return Config{
		Ladder: DefaultLadder(),
		Low:    DefaultLowThreshold,
		High:   DefaultHighThreshold,
	}
}

type Decision string

const (
	DecisionMoveDown Decision = "move_down"
	DecisionMoveUp   Decision = "move_up"
	DecisionFinalize Decision = "finalize"
)

// Result 定级结论，分数取最后一轮
type Result struct {
	RecommendedLevel Level   `json:"recommendedLevel"`
	Score            float64 `json:"score"`
	TotalWeight      float64 `json:"totalWeight"`
	Ratio            float64 `json:"ratio"`
	DurationSeconds  int     `json:"durationSeconds"`
}

type Outcome struct {
	Decision Decision     `json:"decision"`
	Level    Level        `json:"level"` // 下一轮等级，结束时为推荐等级
	Round    RoundSummary `json:"round"`
	Result   *Result      `json:"result,omitempty"`
}

func (o Outcome) Finalized() bool {
	return o.Decision == DecisionFinalize
}

// Controller 自适应定级状态机，本身无状态，可并发使用
type Controller struct {
	ladder  *Ladder
	low     float64
	high    float64
	classic []ClassicThreshold
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Ladder == nil {
		return nil, ErrEmptyLadder
	}
	if cfg.Low < 0 || cfg.High > 1 || cfg.Low > cfg.High {
		return nil, ErrInvalidThresholds
	}

	classic := append([]ClassicThreshold(nil), cfg.Classic...)
	if len(classic) == 0 {
		classic = classicFor(cfg.Ladder)
	}
	for _, t := range classic {
		if !cfg.Ladder.Contains(t.Level) {
			return nil, fmt.Errorf("classic threshold %.2f: %w: %s", t.MinRatio, ErrUnknownLevel, t.Level)
		}
	}
	sort.SliceStable(classic, func(i, j int) bool { return classic[i].MinRatio > classic[j].MinRatio })

	return &Controller{
		ladder:  cfg.Ladder,
		low:     cfg.Low,
		high:    cfg.High,
		classic: classic,
	}, nil
}

func (c *Controller) Ladder() *Ladder { return c.ladder }

func (c *Controller) Thresholds() (low, high float64) { return c.low, c.high }

// NewState 从最低等级开始
func (c *Controller) NewState(now time.Time) State {
	return State{
		CurrentLevel: c.ladder.Lowest(),
		AskedByLevel: make(map[Level][]uint),
		StartedAt:    now,
	}
}

// SelectBatch 按 id 升序挑选当前等级未出过的题目；
// 只有当前等级一题未出的都不剩时才从头复用已出过的题
func (c *Controller) SelectBatch(state State, pool []uint) []uint {
	size := c.ladder.BatchSize(state.CurrentLevel)
	if size == 0 || len(pool) == 0 {
		return nil
	}

	ids := uniqueSorted(pool)
	asked := state.Asked(state.CurrentLevel)

	batch := make([]uint, 0, size)
	for _, id := range ids {
		if _, seen := asked[id]; seen {
			continue
		}
		batch = append(batch, id)
		if len(batch) == size {
			return batch
		}
	}
	if len(batch) > 0 {
		return batch
	}

	if len(ids) > size {
		ids = ids[:size]
	}
	return ids
}

// Advance 记录本轮题目并根据得分率决定升级、降级或结束。
// 传入的 state 不会被修改。
func (c *Controller) Advance(state State, asked []uint, batch grading.BatchResult, now time.Time) (State, Outcome, error) {
	cur := state.CurrentLevel
	if !c.ladder.Contains(cur) {
		return state, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownLevel, cur)
	}

	next := state.Clone()
	next.markAsked(cur, asked)
	next.Pending = nil

	ratio := batch.Ratio
	round := RoundSummary{
		Level:        cur,
		Correct:      batch.Correct,
		Total:        len(batch.Results),
		RatioPercent: int(math.Round(ratio * 100)),
		Gained:       batch.Gained,
		Weight:       batch.Total,
	}
	next.History = append(next.History, round)

	decision, level := c.decide(state, cur, ratio)
	out := Outcome{Decision: decision, Level: level, Round: round}
	next.CurrentLevel = level

	if decision == DecisionFinalize {
		out.Result = &Result{
			RecommendedLevel: level,
			Score:            batch.Gained,
			TotalWeight:      batch.Total,
			Ratio:            ratio,
			DurationSeconds:  elapsedSeconds(state.StartedAt, now),
		}
	}
	return next, out, nil
}

func (c *Controller) decide(state State, cur Level, ratio float64) (Decision, Level) {
	switch {
	case ratio < c.low:
		below, ok := c.ladder.Below(cur)
		if !ok {
			return DecisionFinalize, cur
		}
		// 回到已测过的较低等级说明两级之间已分出结果
		if state.Visited(below) {
			return DecisionFinalize, below
		}
		return DecisionMoveDown, below
	case ratio <= c.high:
		return DecisionFinalize, cur
	default:
		above, ok := c.ladder.Above(cur)
		if !ok {
			return DecisionFinalize, cur
		}
		if state.Visited(above) {
			return DecisionFinalize, cur
		}
		return DecisionMoveUp, above
	}
}

func elapsedSeconds(start, now time.Time) int {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / time.Second)
}

func uniqueSorted(ids []uint) []uint {
	out := append([]uint(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}
