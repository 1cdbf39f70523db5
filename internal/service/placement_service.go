package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement_backend/internal/grading"
	"placement_backend/internal/model"
	"placement_backend/internal/placement"
	"placement_backend/internal/repository"
	"placement_backend/internal/util"
	"placement_backend/pkg/event"
	"placement_backend/pkg/logger"
	"placement_backend/pkg/monitoring"
	"placement_backend/pkg/tracing"
)

func stateKey(uid string) string   { return "placement:" + uid + ":state" }
func classicKey(uid string) string { return "placement:" + uid + ":classic" }
func resultKey(uid string) string  { return "placement:" + uid + ":result" }

// PlacementService 每个请求读取一次会话、调用定级状态机、写回一次
type PlacementService struct {
	Assessments *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	Sessions    repository.SessionStore
	Events      event.Publisher
	Now         func() time.Time

	controller atomic.Value // *placement.Controller
}

func NewPlacementService(
	assessments *repository.AssessmentRepository,
	submissions *repository.SubmissionRepository,
	sessions repository.SessionStore,
	ctrl *placement.Controller,
	events event.Publisher,
) *PlacementService {
	if events == nil {
		events = event.NopPublisher{}
	}
	s := &PlacementService{
		Assessments: assessments,
		Submissions: submissions,
		Sessions:    sessions,
		Events:      events,
		Now:         time.Now,
	}
	s.SetController(ctrl)
	return s
}

// SetController 配置热加载时替换，正在处理的请求仍使用旧实例
func (s *PlacementService) SetController(ctrl *placement.Controller) {
	s.controller.Store(ctrl)
}

func (s *PlacementService) Controller() *placement.Controller {
	return s.controller.Load().(*placement.Controller)
}

// 下发给作答者的题目，不含任何答案信息
type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type QuestionView struct {
	ID         uint               `json:"id"`
	Type       model.QuestionType `json:"type"`
	Text       string             `json:"text"`
	Difficulty string             `json:"difficulty,omitempty"`
	Weight     float64            `json:"weight"`
	Choices    []OptionView       `json:"choices,omitempty"`
	Items      []OptionView       `json:"items,omitempty"`
	Left       []string           `json:"left,omitempty"`
	Right      []string           `json:"right,omitempty"`
}

type RoundView struct {
	Level            placement.Level          `json:"level"`
	AssessmentID     uint                     `json:"assessmentId"`
	Round            int                      `json:"round"`
	TimeLimitSeconds int                      `json:"timeLimitSeconds"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	NeedIdentity     bool                     `json:"needIdentity"`
	Questions        []QuestionView           `json:"questions"`
	History          []placement.RoundSummary `json:"history"`
}

type RoundSubmission struct {
	FullName string       `json:"fullName"`
	Email    string       `json:"email"`
	Answers  map[uint]any `json:"answers"`
}

type RoundOutcome struct {
	placement.Outcome
	SubmissionID uint `json:"submissionId,omitempty"`
}

type ClassicState struct {
	AssessmentID uint               `json:"assessmentId"`
	StartedAt    time.Time          `json:"startedAt"`
	Identity     placement.Identity `json:"identity"`
	SubmissionID uint               `json:"submissionId,omitempty"`
}

type ClassicView struct {
	AssessmentID     uint           `json:"assessmentId"`
	Title            string         `json:"title"`
	Level            string         `json:"level"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	RemainingSeconds int            `json:"remainingSeconds"`
	NeedIdentity     bool           `json:"needIdentity"`
	Questions        []QuestionView `json:"questions"`
}

type ClassicOutcome struct {
	placement.ClassicResult
	SubmissionID uint `json:"submissionId"`
}

// ResultSnapshot 结束时保存，供结果页展示每轮记录
type ResultSnapshot struct {
	SubmissionID uint                     `json:"submissionId"`
	History      []placement.RoundSummary `json:"history"`
}

type HintView struct {
	QuestionID  uint                 `json:"questionId"`
	Text        string               `json:"text"`
	Explanation string               `json:"explanation,omitempty"`
	HintText    string               `json:"hintText,omitempty"`
	Links       []string             `json:"links,omitempty"`
	Resources   []model.HintResource `json:"resources,omitempty"`
}

type ResultView struct {
	Submission *model.Submission        `json:"submission"`
	History    []placement.RoundSummary `json:"history,omitempty"`
	Hints      []HintView               `json:"hints,omitempty"`
}

type LevelView struct {
	Level       placement.Level    `json:"level"`
	BatchSize   int                `json:"batchSize"`
	Assessments []model.Assessment `json:"assessments"`
}

// Levels 按阶梯顺序列出每个等级下启用的评估
func (s *PlacementService) Levels(ctx context.Context) ([]LevelView, error) {
	ladder := s.Controller().Ladder()
	active, err := s.Assessments.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	byLevel := make(map[string][]model.Assessment)
	for _, a := range active {
		byLevel[a.Level] = append(byLevel[a.Level], a)
	}

	views := make([]LevelView, 0, ladder.Len())
	for _, lvl := range ladder.Levels() {
		as := byLevel[string(lvl)]
		if as == nil {
			as = []model.Assessment{}
		}
		views = append(views, LevelView{Level: lvl, BatchSize: ladder.BatchSize(lvl), Assessments: as})
	}
	return views, nil
}

// CurrentRound 开始或继续自适应测评，返回当前这一轮的题目。
// 已下发未提交的题目重复请求时保持不变。
func (s *PlacementService) CurrentRound(ctx context.Context, actor *util.Actor) (*RoundView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PlacementService.CurrentRound")
	defer span.End()

	ctrl := s.Controller()
	now := s.Now()

	state, found, err := s.loadState(ctx, actor.Identifier)
	if err != nil {
		return nil, err
	}
	// 已结束或热加载后等级不在阶梯上时重新开始
	if !found || state.Closed() || !ctrl.Ladder().Contains(state.CurrentLevel) {
		state = ctrl.NewState(now)
	}
	if state.Identity.Empty() && actor.Authenticated {
		state.Identity = placement.Identity{FullName: actor.FullName, Email: actor.Email}
	}
	span.SetAttributes(attribute.String("placement.level", string(state.CurrentLevel)))

	a, err := s.Assessments.FindActiveByLevel(ctx, string(state.CurrentLevel))
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, actor.Identifier, a, state.StartedAt, now, stateKey(actor.Identifier)); err != nil {
		return nil, err
	}

	if len(state.Pending) == 0 {
		pool, err := s.Assessments.QuestionIDsFor(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return nil, util.ErrNoQuestions
		}
		state.Pending = ctrl.SelectBatch(state, pool)
		if err := s.Sessions.Set(ctx, stateKey(actor.Identifier), state); err != nil {
			return nil, err
		}
	}

	questions, err := s.Assessments.QuestionsByIDs(ctx, state.Pending)
	if err != nil {
		return nil, err
	}

	return &RoundView{
		Level:            state.CurrentLevel,
		AssessmentID:     a.ID,
		Round:            len(state.History) + 1,
		TimeLimitSeconds: a.TimeLimitSeconds,
		RemainingSeconds: placement.Remaining(state.StartedAt, now, a.TimeLimitSeconds),
		NeedIdentity:     state.Identity.Empty(),
		Questions:        questionViews(questions),
		History:          state.History,
	}, nil
}

// SubmitRound 对已下发的一轮判分并推进状态，结束时写入一条提交记录。
// 写库失败时会话保持原样，可用相同作答重新提交。
func (s *PlacementService) SubmitRound(ctx context.Context, actor *util.Actor, req RoundSubmission) (*RoundOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PlacementService.SubmitRound")
	defer span.End()

	ctrl := s.Controller()
	now := s.Now()
	uid := actor.Identifier

	state, found, err := s.loadState(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !found || state.Closed() || len(state.Pending) == 0 {
		return nil, util.ErrNoActiveAttempt
	}
	// 热加载移除了当前等级，本次测评作废
	if !ctrl.Ladder().Contains(state.CurrentLevel) {
		if err := s.Sessions.Delete(ctx, stateKey(uid)); err != nil {
			return nil, err
		}
		return nil, util.ErrNoActiveAttempt
	}

	a, err := s.Assessments.FindActiveByLevel(ctx, string(state.CurrentLevel))
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, uid, a, state.StartedAt, now, stateKey(uid)); err != nil {
		return nil, err
	}

	// 第一轮提交时记录身份
	if state.Identity.Empty() {
		state.Identity = captureIdentity(actor, req.FullName, req.Email)
	}

	questions, err := s.Assessments.QuestionsByIDs(ctx, state.Pending)
	if err != nil {
		return nil, err
	}
	batch := grading.GradeBatch(toItems(questions), req.Answers)

	next, out, err := ctrl.Advance(state, state.Pending, batch, now)
	if err != nil {
		return nil, err
	}
	monitoring.ObserveRound(string(out.Round.Level), string(out.Decision), batch.Ratio)
	span.SetAttributes(
		attribute.String("placement.level", string(out.Round.Level)),
		attribute.String("placement.decision", string(out.Decision)),
		attribute.Float64("placement.ratio", batch.Ratio),
	)

	result := &RoundOutcome{Outcome: out}
	if !out.Finalized() {
		if err := s.Sessions.Set(ctx, stateKey(uid), next); err != nil {
			return nil, err
		}
		s.publish(event.PlacementRoundGraded, roundGradedPayload(uid, out))
		return result, nil
	}

	sub := &model.Submission{
		AssessmentID:     a.ID,
		UserIdentifier:   uid,
		FullName:         next.Identity.FullName,
		Email:            next.Identity.Email,
		Mode:             model.ModeAdaptive,
		Score:            out.Result.Score,
		TotalWeight:      out.Result.TotalWeight,
		Ratio:            out.Result.Ratio,
		DurationSeconds:  out.Result.DurationSeconds,
		RecommendedLevel: string(out.Result.RecommendedLevel),
	}
	id, err := s.Submissions.Create(ctx, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record submission")
		return nil, fmt.Errorf("record submission: %w", err)
	}
	result.SubmissionID = id

	closed := next.Clone()
	closed.Pending = nil
	closed.SubmissionID = id
	s.finish(ctx, uid, stateKey(uid), closed, ResultSnapshot{SubmissionID: id, History: next.History})
	monitoring.ObservePlacement(model.ModeAdaptive, sub.RecommendedLevel)
	s.publish(event.PlacementRoundGraded, roundGradedPayload(uid, out))
	s.publish(event.PlacementFinalized, finalizedPayload(sub))
	return result, nil
}

// StartClassic 经典模式：一次下发整份评估
func (s *PlacementService) StartClassic(ctx context.Context, actor *util.Actor, assessmentID uint) (*ClassicView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PlacementService.StartClassic")
	defer span.End()

	now := s.Now()
	uid := actor.Identifier

	a, err := s.Assessments.FindActiveByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	var cs ClassicState
	found, err := s.Sessions.Get(ctx, classicKey(uid), &cs)
	if err != nil {
		return nil, err
	}
	if !found || cs.SubmissionID != 0 || cs.AssessmentID != a.ID {
		cs = ClassicState{AssessmentID: a.ID, StartedAt: now}
	}
	if cs.Identity.Empty() && actor.Authenticated {
		cs.Identity = placement.Identity{FullName: actor.FullName, Email: actor.Email}
	}

	if err := s.guard(ctx, uid, a, cs.StartedAt, now, classicKey(uid)); err != nil {
		return nil, err
	}

	questions, err := s.Assessments.QuestionsFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNoQuestions
	}
	if err := s.Sessions.Set(ctx, classicKey(uid), cs); err != nil {
		return nil, err
	}

	return &ClassicView{
		AssessmentID:     a.ID,
		Title:            a.Title,
		Level:            a.Level,
		TimeLimitSeconds: a.TimeLimitSeconds,
		RemainingSeconds: placement.Remaining(cs.StartedAt, now, a.TimeLimitSeconds),
		NeedIdentity:     cs.Identity.Empty(),
		Questions:        questionViews(questions),
	}, nil
}

// SubmitClassic 整卷判分，逐题写入结果以便展示提示
func (s *PlacementService) SubmitClassic(ctx context.Context, actor *util.Actor, req RoundSubmission) (*ClassicOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PlacementService.SubmitClassic")
	defer span.End()

	now := s.Now()
	uid := actor.Identifier

	var cs ClassicState
	found, err := s.Sessions.Get(ctx, classicKey(uid), &cs)
	if err != nil {
		return nil, err
	}
	if !found || cs.SubmissionID != 0 {
		return nil, util.ErrNoActiveAttempt
	}

	a, err := s.Assessments.FindActiveByID(ctx, cs.AssessmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, uid, a, cs.StartedAt, now, classicKey(uid)); err != nil {
		return nil, err
	}

	questions, err := s.Assessments.QuestionsFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	res := s.Controller().ScoreClassic(toItems(questions), req.Answers, cs.StartedAt, now)

	ident := cs.Identity
	if ident.Empty() {
		ident = captureIdentity(actor, req.FullName, req.Email)
	}

	sub := &model.Submission{
		AssessmentID:     a.ID,
		UserIdentifier:   uid,
		FullName:         ident.FullName,
		Email:            ident.Email,
		Mode:             model.ModeClassic,
		Score:            res.Score,
		TotalWeight:      res.TotalWeight,
		Ratio:            res.Ratio,
		DurationSeconds:  res.DurationSeconds,
		RecommendedLevel: string(res.RecommendedLevel),
		Items:            submissionItems(questions, res.Batch, req.Answers),
	}
	id, err := s.Submissions.Create(ctx, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record submission")
		return nil, fmt.Errorf("record submission: %w", err)
	}

	cs.SubmissionID = id
	s.finish(ctx, uid, classicKey(uid), cs, ResultSnapshot{SubmissionID: id})
	monitoring.ObservePlacement(model.ModeClassic, sub.RecommendedLevel)
	s.publish(event.PlacementFinalized, finalizedPayload(sub))

	return &ClassicOutcome{ClassicResult: res, SubmissionID: id}, nil
}

// Result submissionID 为 0 时取最近一次提交
func (s *PlacementService) Result(ctx context.Context, actor *util.Actor, submissionID uint) (*ResultView, error) {
	var (
		sub *model.Submission
		err error
	)
	if submissionID > 0 {
		sub, err = s.Submissions.FindByIDForUser(ctx, submissionID, actor.Identifier)
	} else {
		sub, err = s.Submissions.FindLatestByUser(ctx, actor.Identifier)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	view := &ResultView{Submission: sub}

	var snap ResultSnapshot
	if ok, err := s.Sessions.Get(ctx, resultKey(actor.Identifier), &snap); err != nil {
		logger.Log.Warn("load result snapshot failed", zap.String("user", actor.Identifier), zap.Error(err))
	} else if ok && snap.SubmissionID == sub.ID {
		view.History = snap.History
	}

	var wrong []uint
	for _, it := range sub.Items {
		if !it.IsCorrect {
			wrong = append(wrong, it.QuestionID)
		}
	}
	if len(wrong) == 0 {
		return view, nil
	}

	qs, err := s.Assessments.HintsFor(ctx, wrong)
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		view.Hints = append(view.Hints, HintView{
			QuestionID:  q.ID,
			Text:        q.Text,
			Explanation: q.Explanation,
			HintText:    q.HintText,
			Links:       hintLinks(q),
			Resources:   q.HintResources,
		})
	}
	return view, nil
}

// Reset 放弃进行中的测评，不影响已提交记录
func (s *PlacementService) Reset(ctx context.Context, actor *util.Actor) error {
	return s.Sessions.Delete(ctx, stateKey(actor.Identifier), classicKey(actor.Identifier))
}

func (s *PlacementService) loadState(ctx context.Context, uid string) (placement.State, bool, error) {
	var state placement.State
	found, err := s.Sessions.Get(ctx, stateKey(uid), &state)
	if err != nil {
		return state, false, err
	}
	return state, found, nil
}

// guard 先检查次数再检查时限，超时会清掉 key 对应的会话
func (s *PlacementService) guard(ctx context.Context, uid string, a *model.Assessment, startedAt, now time.Time, key string) error {
	count, err := s.Submissions.CountByAssessmentAndUser(ctx, a.ID, uid)
	if err != nil {
		return err
	}
	if err := placement.CheckAttempts(count, a.AttemptLimit); err != nil {
		monitoring.ObserveRejected("attempt_limit")
		return err
	}

	if err := placement.CheckTime(startedAt, now, a.TimeLimitSeconds); err != nil {
		if derr := s.Sessions.Delete(ctx, key); derr != nil {
			return derr
		}
		monitoring.ObserveRejected("time_limit")
		logger.Log.Info("placement attempt expired",
			zap.String("user", uid),
			zap.Uint("assessment", a.ID),
		)
		return err
	}
	return nil
}

// finish 提交已落库后清理会话。删除失败时改写为带提交 id 的已结束状态，
// 同一轮不会再次落库
func (s *PlacementService) finish(ctx context.Context, uid, key string, closed interface{}, snap ResultSnapshot) {
	if err := s.Sessions.Delete(ctx, key); err != nil {
		logger.Log.Error("clear placement session failed", zap.String("user", uid), zap.Error(err))
		if err := s.Sessions.Set(ctx, key, closed); err != nil {
			logger.Log.Error("mark placement session closed failed", zap.String("user", uid), zap.Error(err))
		}
	}
	if err := s.Sessions.Set(ctx, resultKey(uid), snap); err != nil {
		logger.Log.Warn("store result snapshot failed", zap.String("user", uid), zap.Error(err))
	}
}

func (s *PlacementService) publish(eventType string, payload interface{}) {
	if err := s.Events.Publish(eventType, payload); err != nil {
		logger.Log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

func captureIdentity(actor *util.Actor, fullName, email string) placement.Identity {
	if actor.Authenticated && (actor.FullName != "" || actor.Email != "") {
		return placement.Identity{FullName: actor.FullName, Email: actor.Email}
	}
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return placement.Identity{}
	}
	return placement.Identity{FullName: fullName, Email: email}
}

// toItems 无法判分的题目跳过并记录日志
func toItems(questions []model.Question) []grading.Item {
	items := make([]grading.Item, 0, len(questions))
	for i := range questions {
		it, err := grading.FromQuestion(&questions[i])
		if err != nil {
			logger.Log.Warn("skip question", zap.Uint("question", questions[i].ID), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	return items
}

func questionViews(questions []model.Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		v := QuestionView{
			ID:         q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Difficulty: q.Difficulty,
			Weight:     q.Weight,
		}
		switch q.Type {
		case model.QuestionSingleChoice, model.QuestionMultiChoice:
			for _, c := range q.Choices {
				v.Choices = append(v.Choices, OptionView{ID: c.ID, Text: c.Text})
			}
		case model.QuestionOrdering:
			// 按文本排序，避免泄露正确顺序
			for _, it := range q.OrderingItems {
				v.Items = append(v.Items, OptionView{ID: it.ID, Text: it.Text})
			}
			sort.SliceStable(v.Items, func(i, j int) bool { return v.Items[i].Text < v.Items[j].Text })
		case model.QuestionMatching:
			for _, p := range q.MatchPairs {
				v.Left = append(v.Left, p.LeftText)
				v.Right = append(v.Right, p.RightText)
			}
			sort.Strings(v.Right)
		}
		views = append(views, v)
	}
	return views
}

func submissionItems(questions []model.Question, batch grading.BatchResult, answers map[uint]any) []model.SubmissionItem {
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	items := make([]model.SubmissionItem, 0, len(batch.Results))
	for _, r := range batch.Results {
		resp, answered := answers[r.QuestionID]
		item := model.SubmissionItem{
			QuestionID:  r.QuestionID,
			IsCorrect:   r.Correct,
			GainedScore: r.Gained,
		}
		if q := byID[r.QuestionID]; q != nil && q.Type == model.QuestionSingleChoice {
			if id, ok := grading.ChoiceID(resp); ok {
				item.SelectedChoiceID = &id
			}
		} else if answered {
			item.UserText = responseText(resp)
		}
		items = append(items, item)
	}
	return items
}

// responseText 作答的可读形式，连线题为 left=right;...
func responseText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, responseText(e))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, strings.TrimSpace(k)+"="+responseText(t[k]))
		}
		return strings.Join(parts, ";")
	}
	return fmt.Sprint(v)
}

func hintLinks(q model.Question) []string {
	if len(q.HintLinks) == 0 {
		return nil
	}
	var links []string
	if err := json.Unmarshal(q.HintLinks, &links); err != nil {
		logger.Log.Warn("invalid hint links", zap.Uint("question", q.ID), zap.Error(err))
		return nil
	}
	return links
}

type roundGraded struct {
	UserIdentifier string             `json:"userIdentifier"`
	Level          placement.Level    `json:"level"`
	Decision       placement.Decision `json:"decision"`
	NextLevel      placement.Level    `json:"nextLevel"`
	RatioPercent   int                `json:"ratioPercent"`
}

func roundGradedPayload(uid string, out placement.Outcome) roundGraded {
	return roundGraded{
		UserIdentifier: uid,
		Level:          out.Round.Level,
		Decision:       out.Decision,
		NextLevel:      out.Level,
		RatioPercent:   out.Round.RatioPercent,
	}
}

type finalized struct {
	SubmissionID     uint    `json:"submissionId"`
	AssessmentID     uint    `json:"assessmentId"`
	UserIdentifier   string  `json:"userIdentifier"`
	FullName         string  `json:"fullName,omitempty"`
	Email            string  `json:"email,omitempty"`
	Mode             string  `json:"mode"`
	RecommendedLevel string  `json:"recommendedLevel"`
	Ratio            float64 `json:"ratio"`
}

func finalizedPayload(sub *model.Submission) finalized {
	return finalized{
		SubmissionID:     sub.ID,
		AssessmentID:     sub.AssessmentID,
		UserIdentifier:   sub.UserIdentifier,
		FullName:         sub.FullName,
		Email:            sub.Email,
		Mode:             sub.Mode,
		RecommendedLevel: sub.RecommendedLevel,
		Ratio:            sub.Ratio,
	}
}
