package placement

import (
	"time"

	"placement_backend/internal/grading"
)

type ClassicThreshold struct {
	MinRatio float64 `json:"minRatio"`
	Level    Level   `json:"level"`
}

func DefaultClassicThresholds() []ClassicThreshold {
	return []ClassicThreshold{
		{MinRatio: 0.75, Level: LevelB2},
		{MinRatio: 0.55, Level: LevelB1},
		{MinRatio: 0.35, Level: LevelA2},
		{MinRatio: 0, Level: LevelA1},
	}
}

// classicFor 未配置经典阈值时，只保留默认表中位于阶梯上的等级
func classicFor(l *Ladder) []ClassicThreshold {
	var out []ClassicThreshold
	for _, t := range DefaultClassicThresholds() {
		if l.Contains(t.Level) {
			out = append(out, t)
		}
	}
	return out
}

// ClassicLevel 从高到低找第一个满足的阈值，都不满足时取最低等级
func (c *Controller) ClassicLevel(ratio float64) Level {
	for _, t := range c.classic {
		if ratio >= t.MinRatio {
			return t.Level
		}
	}
	return c.ladder.Lowest()
}

type ClassicResult struct {
	Result
	Batch grading.BatchResult `json:"batch"`
}

// ScoreClassic 经典模式：整卷一次判分，没有等级跳转
func (c *Controller) ScoreClassic(items []grading.Item, responses map[uint]any, start, now time.Time) ClassicResult {
	batch := grading.GradeBatch(items, responses)
	return ClassicResult{
		Result: Result{
			RecommendedLevel: c.ClassicLevel(batch.Ratio),
			Score:            batch.Gained,
			TotalWeight:      batch.Total,
			Ratio:            batch.Ratio,
			DurationSeconds:  elapsedSeconds(start, now),
		},
		Batch: batch,
	}
}
