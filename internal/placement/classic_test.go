package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement_backend/internal/grading"
	"placement_backend/internal/model"
)

func TestClassicLevel(t *testing.T) {
	c := newTestController(t)

	tests := []struct {
		ratio float64
		want  Level
	}{
		{1, LevelB2},
		{0.75, LevelB2},
		{0.74, LevelB1},
		{0.55, LevelB1},
		{0.5, LevelA2},
		{0.35, LevelA2},
		{0.2, LevelA1},
		{0, LevelA1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, c.ClassicLevel(tc.ratio), "ratio %.2f", tc.ratio)
	}
}

func TestClassicLevelUnsortedThresholds(t *testing.T) {
	c, err := NewController(Config{
		Ladder: DefaultLadder(),
		Low:    0.3,
		High:   0.6,
		Classic: []ClassicThreshold{
			{MinRatio: 0.5, Level: LevelA2},
			{MinRatio: 0.9, Level: LevelB1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, LevelB1, c.ClassicLevel(0.95))
	assert.Equal(t, LevelA2, c.ClassicLevel(0.6))
	assert.Equal(t, LevelA1, c.ClassicLevel(0.1), "falls back to lowest level")
}

func TestClassicDefaultsFollowLadder(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		ratio float64
		want  Level
	}{
		{"top of short ladder", []Step{{LevelA1, 2}, {LevelA2, 2}}, 0.9, LevelA2},
		{"bottom of short ladder", []Step{{LevelA1, 2}, {LevelA2, 2}}, 0.1, LevelA1},
		{"lowest level not in defaults", []Step{{LevelB1, 2}, {LevelB2, 2}}, 0.1, LevelB1},
		{"upper ladder keeps B2", []Step{{LevelB1, 2}, {LevelB2, 2}}, 0.8, LevelB2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ladder, err := NewLadder(tc.steps)
			require.NoError(t, err)
			c, err := NewController(Config{Ladder: ladder, Low: 0.3, High: 0.6})
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.ClassicLevel(tc.ratio))
		})
	}
}

func TestScoreClassic(t *testing.T) {
	c := newTestController(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	single := &model.Question{Type: model.QuestionSingleChoice, Weight: 2}
	single.ID = 1
	right := model.Choice{IsCorrect: true}
	right.ID = 11
	wrong := model.Choice{}
	wrong.ID = 12
	single.Choices = []model.Choice{right, wrong}

	fill := &model.Question{
		Type:           model.QuestionFillBlank,
		Weight:         1,
		AnswerPatterns: []model.AnswerPattern{{Pattern: "Hund", Kind: model.PatternCaseInsensitive}},
	}
	fill.ID = 2

	match := &model.Question{
		Type:   model.QuestionMatching,
		Weight: 1,
		MatchPairs: []model.MatchPair{
			{LeftText: "rot", RightText: "red"},
			{LeftText: "blau", RightText: "blue"},
		},
	}
	match.ID = 3

	var items []grading.Item
	for _, q := range []*model.Question{single, fill, match} {
		it, err := grading.FromQuestion(q)
		require.NoError(t, err)
		items = append(items, it)
	}

	res := c.ScoreClassic(items, map[uint]any{
		1: "11",
		2: "hund",
		3: "rot=red\nblau=green",
	}, start, start.Add(4*time.Minute))

	assert.InDelta(t, 3.5, res.Score, 1e-9)
	assert.InDelta(t, 4.0, res.TotalWeight, 1e-9)
	assert.InDelta(t, 0.875, res.Ratio, 1e-9)
	assert.Equal(t, LevelB2, res.RecommendedLevel)
	assert.Equal(t, 240, res.DurationSeconds)
	require.Len(t, res.Batch.Results, 3)
	assert.False(t, res.Batch.Results[2].Correct)
}
