package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement_backend/internal/grading"
	"placement_backend/internal/model"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(DefaultConfig())
	require.NoError(t, err)
	return c
}

// batchWithRatio 构造 10 道权重为 1 的题目，其中 correct 道全对
func batchWithRatio(correct int) grading.BatchResult {
	res := grading.BatchResult{Total: 10}
	for i := 0; i < 10; i++ {
		r := grading.ItemResult{QuestionID: uint(i + 1), Weight: 1}
		if i < correct {
			r.Correct = true
			r.Gained = 1
			res.Correct++
		}
		res.Gained += r.Gained
		res.Results = append(res.Results, r)
	}
	res.Ratio = grading.Ratio(res.Gained, res.Total)
	return res
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(Config{})
	assert.ErrorIs(t, err, ErrEmptyLadder)

	_, err = NewController(Config{Ladder: DefaultLadder(), Low: 0.7, High: 0.6})
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	_, err = NewController(Config{
		Ladder:  DefaultLadder(),
		Low:     0.3,
		High:    0.6,
		Classic: []ClassicThreshold{{MinRatio: 0.9, Level: "C1"}},
	})
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNewState(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)

	assert.Equal(t, LevelA1, s.CurrentLevel)
	assert.Empty(t, s.AskedByLevel)
	assert.Empty(t, s.History)
	assert.Equal(t, t0, s.StartedAt)
}

func TestSelectBatch(t *testing.T) {
	c := newTestController(t)
	pool := []uint{9, 3, 1, 7, 5, 2, 8, 4, 6, 3}

	t.Run("fresh state takes lowest ids", func(t *testing.T) {
		s := c.NewState(t0)
		assert.Equal(t, []uint{1, 2, 3, 4, 5}, c.SelectBatch(s, pool))
	})

	t.Run("skips asked ids", func(t *testing.T) {
		s := c.NewState(t0)
		s.AskedByLevel[LevelA1] = []uint{1, 2, 3, 4, 5}
		assert.Equal(t, []uint{6, 7, 8, 9}, c.SelectBatch(s, pool))
	})

	t.Run("asked ids of other levels do not count", func(t *testing.T) {
		s := c.NewState(t0)
		s.AskedByLevel[LevelA2] = []uint{1, 2, 3}
		assert.Equal(t, []uint{1, 2, 3, 4, 5}, c.SelectBatch(s, pool))
	})

	t.Run("exhausted pool reuses first ids", func(t *testing.T) {
		s := c.NewState(t0)
		s.AskedByLevel[LevelA1] = []uint{1, 2, 3, 4, 5, 6, 7, 8, 9}
		assert.Equal(t, []uint{1, 2, 3, 4, 5}, c.SelectBatch(s, pool))
	})

	t.Run("batch size follows level", func(t *testing.T) {
		s := c.NewState(t0)
		s.CurrentLevel = LevelA2
		assert.Len(t, c.SelectBatch(s, pool), 7)
	})

	t.Run("empty pool", func(t *testing.T) {
		assert.Empty(t, c.SelectBatch(c.NewState(t0), nil))
	})
}

func TestSelectBatchNeverRepeatsUntilExhausted(t *testing.T) {
	c := newTestController(t)
	pool := make([]uint, 23)
	for i := range pool {
		pool[i] = uint(100 + i)
	}

	s := c.NewState(t0)
	seen := map[uint]bool{}
	for round := 0; round < 5; round++ {
		batch := c.SelectBatch(s, pool)
		require.NotEmpty(t, batch)
		for _, id := range batch {
			assert.False(t, seen[id], "id %d served twice", id)
			seen[id] = true
		}
		s.markAsked(LevelA1, batch)
	}
	assert.Len(t, seen, 23)

	// 全部出过之后才允许复用
	assert.Equal(t, []uint{100, 101, 102, 103, 104}, c.SelectBatch(s, pool))
}

func TestAdvanceTransitions(t *testing.T) {
	c := newTestController(t)

	tests := []struct {
		name     string
		level    Level
		correct  int
		decision Decision
		next     Level
	}{
		{"floor below low finalizes", LevelA1, 2, DecisionFinalize, LevelA1},
		{"below low moves down", LevelB1, 2, DecisionMoveDown, LevelA2},
		{"exactly low finalizes", LevelA2, 3, DecisionFinalize, LevelA2},
		{"middle band finalizes", LevelB1, 5, DecisionFinalize, LevelB1},
		{"exactly high finalizes", LevelA1, 6, DecisionFinalize, LevelA1},
		{"above high moves up", LevelA1, 7, DecisionMoveUp, LevelA2},
		{"ceiling above high finalizes", LevelB2, 10, DecisionFinalize, LevelB2},
		{"zero at top moves down", LevelB2, 0, DecisionMoveDown, LevelB1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := c.NewState(t0)
			s.CurrentLevel = tc.level

			next, out, err := c.Advance(s, []uint{1, 2}, batchWithRatio(tc.correct), t0.Add(90*time.Second))
			require.NoError(t, err)
			assert.Equal(t, tc.decision, out.Decision)
			assert.Equal(t, tc.next, out.Level)
			assert.Equal(t, tc.next, next.CurrentLevel)
			assert.Equal(t, tc.decision == DecisionFinalize, out.Result != nil)
		})
	}
}

func TestAdvanceRecordsRound(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)
	s.Pending = []uint{4, 2}

	next, out, err := c.Advance(s, []uint{4, 2}, batchWithRatio(7), t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 4}, next.AskedByLevel[LevelA1])
	assert.Empty(t, next.Pending)
	require.Len(t, next.History, 1)
	assert.Equal(t, RoundSummary{Level: LevelA1, Correct: 7, Total: 10, RatioPercent: 70, Gained: 7, Weight: 10}, next.History[0])
	assert.Equal(t, next.History[0], out.Round)
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)
	s.AskedByLevel[LevelA1] = []uint{1}
	s.Pending = []uint{2, 3}

	_, _, err := c.Advance(s, []uint{2, 3}, batchWithRatio(9), t0)
	require.NoError(t, err)

	assert.Equal(t, LevelA1, s.CurrentLevel)
	assert.Equal(t, []uint{1}, s.AskedByLevel[LevelA1])
	assert.Empty(t, s.History)
	assert.Equal(t, []uint{2, 3}, s.Pending)
}

func TestAdvanceAskedSetsOnlyGrow(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)
	s.AskedByLevel[LevelA1] = []uint{1, 2, 3}

	next, _, err := c.Advance(s, []uint{2}, batchWithRatio(5), t0)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, next.AskedByLevel[LevelA1])
}

func TestAdvanceUnknownLevel(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)
	s.CurrentLevel = "C2"

	_, _, err := c.Advance(s, nil, batchWithRatio(5), t0)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestAdvanceFinalResult(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)
	s.CurrentLevel = LevelB1

	_, out, err := c.Advance(s, nil, batchWithRatio(4), t0.Add(125*time.Second+400*time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, Result{
		RecommendedLevel: LevelB1,
		Score:            4,
		TotalWeight:      10,
		Ratio:            0.4,
		DurationSeconds:  125,
	}, *out.Result)
}

func TestAdvanceReversalFinalizesAtLowerLevel(t *testing.T) {
	c := newTestController(t)

	t.Run("up then down", func(t *testing.T) {
		s := c.NewState(t0)
		s, out, err := c.Advance(s, nil, batchWithRatio(8), t0)
		require.NoError(t, err)
		require.Equal(t, DecisionMoveUp, out.Decision)

		_, out, err = c.Advance(s, nil, batchWithRatio(1), t0)
		require.NoError(t, err)
		assert.Equal(t, DecisionFinalize, out.Decision)
		assert.Equal(t, LevelA1, out.Result.RecommendedLevel)
	})

	t.Run("down then up", func(t *testing.T) {
		s := c.NewState(t0)
		s.CurrentLevel = LevelB1
		s, out, err := c.Advance(s, nil, batchWithRatio(1), t0)
		require.NoError(t, err)
		require.Equal(t, DecisionMoveDown, out.Decision)

		_, out, err = c.Advance(s, nil, batchWithRatio(9), t0)
		require.NoError(t, err)
		assert.Equal(t, DecisionFinalize, out.Decision)
		assert.Equal(t, LevelA2, out.Result.RecommendedLevel)
	})
}

func TestAdvanceTerminatesWithinLadderLength(t *testing.T) {
	c := newTestController(t)
	scores := []int{0, 2, 3, 5, 6, 7, 10}

	// 穷举每轮得分组合，任何路径都必须在 Len() 轮内结束
	var walk func(s State, depth int)
	walk = func(s State, depth int) {
		require.LessOrEqual(t, depth, c.Ladder().Len())
		for _, sc := range scores {
			next, out, err := c.Advance(s, nil, batchWithRatio(sc), t0)
			require.NoError(t, err)
			if out.Finalized() {
				assert.True(t, c.Ladder().Contains(out.Result.RecommendedLevel))
				assert.LessOrEqual(t, len(next.History), c.Ladder().Len())
				continue
			}
			walk(next, depth+1)
		}
	}
	walk(c.NewState(t0), 1)
}

func TestConsistentlyLowFinalizesAtLowest(t *testing.T) {
	c := newTestController(t)
	s := c.NewState(t0)

	next, out, err := c.Advance(s, []uint{1, 2, 3, 4, 5}, batchWithRatio(0), t0)
	require.NoError(t, err)
	assert.True(t, out.Finalized())
	assert.Equal(t, LevelA1, out.Result.RecommendedLevel)
	assert.Equal(t, LevelA1, next.CurrentLevel)
	assert.Len(t, next.History, 1)
}

// 端到端：A1 五道等权题只答对一道，得分率 0.2，直接定级 A1
func TestWorkedExampleLowestLevelFinalize(t *testing.T) {
	c := newTestController(t)

	var items []grading.Item
	responses := map[uint]any{}
	yes := true
	for i := uint(1); i <= 5; i++ {
		q := &model.Question{Type: model.QuestionTrueFalse, Weight: 1, CorrectBoolean: &yes}
		q.ID = i
		item, err := grading.FromQuestion(q)
		require.NoError(t, err)
		items = append(items, item)
		responses[i] = i == 1
	}

	s := c.NewState(t0)
	batch := c.SelectBatch(s, []uint{1, 2, 3, 4, 5})
	require.Len(t, batch, 5)

	graded := grading.GradeBatch(items, responses)
	assert.InDelta(t, 0.2, graded.Ratio, 1e-9)

	_, out, err := c.Advance(s, batch, graded, t0.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, out.Finalized())
	assert.Equal(t, LevelA1, out.Result.RecommendedLevel)
	assert.Equal(t, 30, out.Result.DurationSeconds)
	assert.Equal(t, 20, out.Round.RatioPercent)
}
