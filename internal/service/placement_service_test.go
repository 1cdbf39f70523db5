package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"placement_backend/internal/config"
	"placement_backend/internal/model"
	"placement_backend/internal/placement"
	"placement_backend/internal/repository"
	"placement_backend/internal/util"
	"placement_backend/pkg/database"
	"placement_backend/pkg/event"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	db       *gorm.DB
	svc      *PlacementService
	sessions *repository.MemorySessionStore
	events   *recordingPublisher
	clock    time.Time

	// 题目 id -> 正确/错误选项 id
	right map[uint]uint
	wrong map[uint]uint
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "service.db"),
	}, "release")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	ctrl, err := placement.NewController(placement.DefaultConfig())
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		sessions: repository.NewMemorySessionStore(time.Hour),
		events:   &recordingPublisher{},
		clock:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		right:    map[uint]uint{},
		wrong:    map[uint]uint{},
	}
	f.svc = NewPlacementService(
		repository.NewAssessmentRepository(db),
		repository.NewSubmissionRepository(db),
		f.sessions,
		ctrl,
		f.events,
	)
	f.svc.Now = func() time.Time { return f.clock }
	return f
}

// addLevel 建一份只含单选题的评估
func (f *fixture) addLevel(t *testing.T, level string, n, attemptLimit, timeLimit int) *model.Assessment {
	t.Helper()
	a := &model.Assessment{
		Title:            "Test " + level,
		Level:            level,
		IsActive:         true,
		AttemptLimit:     attemptLimit,
		TimeLimitSeconds: timeLimit,
	}
	for i := 0; i < n; i++ {
		a.Questions = append(a.Questions, model.Question{
			Text:    level + " question",
			Type:    model.QuestionSingleChoice,
			Weight:  1,
			Choices: []model.Choice{{Text: "richtig", IsCorrect: true}, {Text: "falsch"}},
		})
	}
	require.NoError(t, f.db.Create(a).Error)
	for _, q := range a.Questions {
		f.right[q.ID] = q.Choices[0].ID
		f.wrong[q.ID] = q.Choices[1].ID
	}
	return a
}

// answers 前 correct 道答对，其余答错；数值与 JSON 解码后的类型一致
func (f *fixture) answers(view *RoundView, correct int) map[uint]any {
	out := make(map[uint]any, len(view.Questions))
	for i, q := range view.Questions {
		if i < correct {
			out[q.ID] = float64(f.right[q.ID])
		} else {
			out[q.ID] = float64(f.wrong[q.ID])
		}
	}
	return out
}

func anon() *util.Actor {
	return &util.Actor{Identifier: "anon-7d2f0b1e-5c1a-4f4e-9a57-1f0c3c8f2a11"}
}

func TestAdaptiveLowestLevelFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, placement.LevelA1, view.Level)
	assert.Equal(t, 1, view.Round)
	assert.True(t, view.NeedIdentity)
	assert.Equal(t, 600, view.RemainingSeconds)
	require.Len(t, view.Questions, 5)
	for _, q := range view.Questions {
		require.Len(t, q.Choices, 2)
	}

	f.clock = f.clock.Add(90 * time.Second)
	out, err := f.svc.SubmitRound(ctx, actor, RoundSubmission{
		FullName: " Erika Muster ",
		Email:    "erika@example.com",
		Answers:  f.answers(view, 1),
	})
	require.NoError(t, err)
	assert.True(t, out.Finalized())
	require.NotNil(t, out.Result)
	assert.Equal(t, placement.LevelA1, out.Result.RecommendedLevel)
	assert.InDelta(t, 0.2, out.Result.Ratio, 1e-9)
	assert.Equal(t, 90, out.Result.DurationSeconds)
	assert.NotZero(t, out.SubmissionID)

	var sub model.Submission
	require.NoError(t, f.db.First(&sub, out.SubmissionID).Error)
	assert.Equal(t, "A1", sub.RecommendedLevel)
	assert.Equal(t, model.ModeAdaptive, sub.Mode)
	assert.Equal(t, "Erika Muster", sub.FullName)
	assert.Equal(t, actor.Identifier, sub.UserIdentifier)
	assert.InDelta(t, 1.0, sub.Score, 1e-9)
	assert.InDelta(t, 5.0, sub.TotalWeight, 1e-9)

	// 会话已清空
	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 5)})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	res, err := f.svc.Result(ctx, actor, 0)
	require.NoError(t, err)
	assert.Equal(t, out.SubmissionID, res.Submission.ID)
	require.Len(t, res.History, 1)
	assert.Equal(t, 20, res.History[0].RatioPercent)
	assert.Equal(t, 1, res.History[0].Correct)

	assert.Equal(t, 1, f.events.count(event.PlacementFinalized))
	assert.Equal(t, 1, f.events.count(event.PlacementRoundGraded))
}

func TestAdaptiveMovesUpThenFinalizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	a2 := f.addLevel(t, "A2", 7, 3, 600)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)

	out, err := f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 5)})
	require.NoError(t, err)
	assert.Equal(t, placement.DecisionMoveUp, out.Decision)
	assert.Equal(t, placement.LevelA2, out.Level)
	assert.Zero(t, out.SubmissionID)

	view, err = f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, placement.LevelA2, view.Level)
	assert.Equal(t, a2.ID, view.AssessmentID)
	assert.Equal(t, 2, view.Round)
	require.Len(t, view.Questions, 7)
	require.Len(t, view.History, 1)

	// 3/7 ≈ 0.43 落在中间区间
	out, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 3)})
	require.NoError(t, err)
	assert.True(t, out.Finalized())
	assert.Equal(t, placement.LevelA2, out.Result.RecommendedLevel)

	var sub model.Submission
	require.NoError(t, f.db.First(&sub, out.SubmissionID).Error)
	assert.Equal(t, a2.ID, sub.AssessmentID)
	assert.Equal(t, "A2", sub.RecommendedLevel)

	res, err := f.svc.Result(ctx, actor, out.SubmissionID)
	require.NoError(t, err)
	assert.Len(t, res.History, 2)
}

func TestCurrentRoundIsStableUntilSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 8, 3, 600)
	actor := anon()

	first, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	second, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, first.Questions, second.Questions)
}

func TestAttemptLimitRejectsNewAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 1, 600)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 0)})
	require.NoError(t, err)

	_, err = f.svc.CurrentRound(ctx, actor)
	assert.ErrorIs(t, err, placement.ErrAttemptLimitReached)

	// 其他作答者不受影响
	_, err = f.svc.CurrentRound(ctx, &util.Actor{Identifier: "user-42"})
	assert.NoError(t, err)
}

func TestTimeLimitDiscardsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 60)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)

	// 恰好等于时限仍可作答
	f.clock = f.clock.Add(60 * time.Second)
	again, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 0, again.RemainingSeconds)

	f.clock = f.clock.Add(time.Second)
	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 5)})
	assert.ErrorIs(t, err, placement.ErrAttemptExpired)

	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 5)})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	restarted, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, placement.LevelA1, restarted.Level)
	assert.Equal(t, 1, restarted.Round)
	assert.Equal(t, 60, restarted.RemainingSeconds)

	var count int64
	require.NoError(t, f.db.Model(&model.Submission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)

	const cb = "test:fail_submissions"
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register(cb, func(tx *gorm.DB) {
		if tx.Statement.Table == "submissions" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	req := RoundSubmission{Answers: f.answers(view, 1)}
	_, err = f.svc.SubmitRound(ctx, actor, req)
	require.Error(t, err)

	var state placement.State
	found, err := f.sessions.Get(ctx, stateKey(actor.Identifier), &state)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, state.Pending, 5)
	assert.Empty(t, state.History)

	require.NoError(t, f.db.Callback().Create().Remove(cb))

	out, err := f.svc.SubmitRound(ctx, actor, req)
	require.NoError(t, err)
	assert.True(t, out.Finalized())
	assert.InDelta(t, 0.2, out.Result.Ratio, 1e-9)
}

// stickySessions 删除总是失败，其余操作照常
type stickySessions struct {
	*repository.MemorySessionStore
}

func (stickySessions) Delete(context.Context, ...string) error {
	return errors.New("connection reset")
}

func TestFinalizeWritesOnceWhenSessionDeleteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	f.svc.Sessions = stickySessions{f.sessions}
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)

	req := RoundSubmission{Answers: f.answers(view, 0)}
	out, err := f.svc.SubmitRound(ctx, actor, req)
	require.NoError(t, err)
	require.True(t, out.Finalized())

	_, err = f.svc.SubmitRound(ctx, actor, req)
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	var count int64
	require.NoError(t, f.db.Model(&model.Submission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 再次开始是一次新的测评
	restarted, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, restarted.Round)
	assert.Empty(t, restarted.History)
}

func TestClassicWritesOnceWhenSessionDeleteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addLevel(t, "A2", 2, 3, 600)
	f.svc.Sessions = stickySessions{f.sessions}
	actor := anon()

	_, err := f.svc.StartClassic(ctx, actor, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitClassic(ctx, actor, RoundSubmission{})
	require.NoError(t, err)

	_, err = f.svc.SubmitClassic(ctx, actor, RoundSubmission{})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	var count int64
	require.NoError(t, f.db.Model(&model.Submission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.svc.StartClassic(ctx, actor, a.ID)
	require.NoError(t, err)
}

func TestRevisitFinalizeRecordsGradedAssessment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	a2 := f.addLevel(t, "A2", 7, 3, 600)
	actor := anon()

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 5)})
	require.NoError(t, err)

	// A2 全错，回到已测过的 A1 直接结束
	view, err = f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	out, err := f.svc.SubmitRound(ctx, actor, RoundSubmission{Answers: f.answers(view, 0)})
	require.NoError(t, err)
	require.True(t, out.Finalized())
	assert.Equal(t, placement.LevelA1, out.Result.RecommendedLevel)

	var sub model.Submission
	require.NoError(t, f.db.First(&sub, out.SubmissionID).Error)
	assert.Equal(t, a2.ID, sub.AssessmentID)
	assert.Equal(t, "A1", sub.RecommendedLevel)
}

func TestMissingAssessmentForLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CurrentRound(context.Background(), anon())
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestAuthenticatedIdentityIsPrefilled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	actor := &util.Actor{Identifier: "user-7", FullName: "Max Mustermann", Email: "max@example.com", Authenticated: true}

	view, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	assert.False(t, view.NeedIdentity)

	out, err := f.svc.SubmitRound(ctx, actor, RoundSubmission{FullName: "ignored", Email: "ignored@example.com", Answers: f.answers(view, 0)})
	require.NoError(t, err)

	var sub model.Submission
	require.NoError(t, f.db.First(&sub, out.SubmissionID).Error)
	assert.Equal(t, "Max Mustermann", sub.FullName)
	assert.Equal(t, "max@example.com", sub.Email)
}

func TestResetAbandonsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	actor := anon()

	_, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reset(ctx, actor))

	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)
}

func TestLevelsFollowLadder(t *testing.T) {
	f := newFixture(t)
	f.addLevel(t, "B1", 1, 3, 600)
	f.addLevel(t, "A1", 1, 3, 600)

	levels, err := f.svc.Levels(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Equal(t, placement.LevelA1, levels[0].Level)
	assert.Equal(t, 5, levels[0].BatchSize)
	assert.Len(t, levels[0].Assessments, 1)
	assert.Empty(t, levels[1].Assessments)
	assert.Len(t, levels[2].Assessments, 1)
}

func TestSetControllerSwapsLadder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)

	ladder, err := placement.NewLadder([]placement.Step{{Level: placement.LevelA1, BatchSize: 2}, {Level: placement.LevelA2, BatchSize: 2}})
	require.NoError(t, err)
	cfg := placement.DefaultConfig()
	cfg.Ladder = ladder
	cfg.Classic = []placement.ClassicThreshold{{MinRatio: 0.5, Level: placement.LevelA2}, {MinRatio: 0, Level: placement.LevelA1}}
	ctrl, err := placement.NewController(cfg)
	require.NoError(t, err)
	f.svc.SetController(ctrl)

	view, err := f.svc.CurrentRound(ctx, anon())
	require.NoError(t, err)
	assert.Len(t, view.Questions, 2)
}

func TestSubmitAfterLevelRemovedFromLadder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addLevel(t, "A1", 5, 3, 600)
	actor := anon()

	_, err := f.svc.CurrentRound(ctx, actor)
	require.NoError(t, err)

	ladder, err := placement.NewLadder([]placement.Step{{Level: placement.LevelA2, BatchSize: 3}})
	require.NoError(t, err)
	cfg := placement.DefaultConfig()
	cfg.Ladder = ladder
	cfg.Classic = []placement.ClassicThreshold{{MinRatio: 0, Level: placement.LevelA2}}
	ctrl, err := placement.NewController(cfg)
	require.NoError(t, err)
	f.svc.SetController(ctrl)

	_, err = f.svc.SubmitRound(ctx, actor, RoundSubmission{})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	var state placement.State
	found, err := f.sessions.Get(ctx, stateKey(actor.Identifier), &state)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClassicFlowWithHints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor := anon()

	a := &model.Assessment{
		Title:            "Einstufung",
		Level:            "B1",
		IsActive:         true,
		AttemptLimit:     2,
		TimeLimitSeconds: 900,
		Questions: []model.Question{
			{Text: "Artikel: ___ Haus", Type: model.QuestionSingleChoice, Weight: 1,
				Choices: []model.Choice{{Text: "der"}, {Text: "das", IsCorrect: true}}},
			{Text: "Ich ___ müde.", Type: model.QuestionFillBlank, Weight: 1,
				AnswerPatterns: []model.AnswerPattern{{Pattern: "bin", Kind: model.PatternExact}},
				HintText:       "Konjugation von sein",
				HintLinks:      datatypes.JSON(`["https://example.com/sein"]`),
				HintResources:  []model.HintResource{{Title: "sein", URL: "https://example.com/video", Kind: "video"}}},
			{Text: "Ordnen", Type: model.QuestionOrdering, Weight: 1,
				OrderingItems: []model.OrderingItem{{Text: "zwei", CorrectPosition: 2}, {Text: "eins", CorrectPosition: 1}}},
		},
	}
	require.NoError(t, f.db.Create(a).Error)
	single, fill, order := a.Questions[0], a.Questions[1], a.Questions[2]

	view, err := f.svc.StartClassic(ctx, actor, a.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.True(t, view.NeedIdentity)
	assert.Equal(t, []OptionView{
		{ID: order.OrderingItems[1].ID, Text: "eins"},
		{ID: order.OrderingItems[0].ID, Text: "zwei"},
	}, view.Questions[2].Items)

	f.clock = f.clock.Add(5 * time.Minute)
	out, err := f.svc.SubmitClassic(ctx, actor, RoundSubmission{
		FullName: "Erika",
		Email:    "erika@example.com",
		Answers: map[uint]any{
			single.ID: float64(single.Choices[1].ID),
			fill.ID:   " Bin ",
			order.ID:  []any{float64(order.OrderingItems[1].ID), float64(order.OrderingItems[0].ID)},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, out.Ratio, 1e-9)
	assert.Equal(t, placement.LevelB1, out.RecommendedLevel)
	assert.Equal(t, 300, out.DurationSeconds)

	var sub model.Submission
	require.NoError(t, f.db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).First(&sub, out.SubmissionID).Error)
	assert.Equal(t, model.ModeClassic, sub.Mode)
	require.Len(t, sub.Items, 3)
	require.NotNil(t, sub.Items[0].SelectedChoiceID)
	assert.Equal(t, single.Choices[1].ID, *sub.Items[0].SelectedChoiceID)
	assert.True(t, sub.Items[0].IsCorrect)
	assert.Equal(t, "Bin", sub.Items[1].UserText)
	assert.False(t, sub.Items[1].IsCorrect)
	assert.True(t, sub.Items[2].IsCorrect)

	res, err := f.svc.Result(ctx, actor, 0)
	require.NoError(t, err)
	require.Len(t, res.Hints, 1)
	hint := res.Hints[0]
	assert.Equal(t, fill.ID, hint.QuestionID)
	assert.Equal(t, "Konjugation von sein", hint.HintText)
	assert.Equal(t, []string{"https://example.com/sein"}, hint.Links)
	require.Len(t, hint.Resources, 1)
	assert.Equal(t, "video", hint.Resources[0].Kind)

	_, err = f.svc.SubmitClassic(ctx, actor, RoundSubmission{})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)
}

func TestClassicAttemptLimitAndUnknownAssessment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addLevel(t, "A2", 2, 1, 600)
	actor := anon()

	_, err := f.svc.StartClassic(ctx, actor, a.ID+100)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)

	_, err = f.svc.StartClassic(ctx, actor, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitClassic(ctx, actor, RoundSubmission{})
	require.NoError(t, err)

	_, err = f.svc.StartClassic(ctx, actor, a.ID)
	assert.ErrorIs(t, err, placement.ErrAttemptLimitReached)
}

func TestResultWithoutSubmission(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Result(context.Background(), anon(), 0)
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"text", "  gehen ", "gehen"},
		{"list", []any{float64(3), float64(1)}, "3,1"},
		{"mapping", map[string]any{"rot": "red", "blau": "blue"}, "blau=blue;rot=red"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.in))
		})
	}
}
