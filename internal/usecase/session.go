// Package usecase implements the interview orchestration core: scoring,
// metric tracking, adaptive question selection, completion evaluation, and
// the session state machine behind Start, Turn, and End.
package usecase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/domain"
	obsctx "github.com/elevice/ai-interviewer/internal/observability"
)

// sessionLocks serializes turns per session while letting distinct sessions
// proceed in parallel. Entries live for the process lifetime; the set of
// sessions a single instance touches is bounded by the store TTL.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *sessionLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	lk, ok := l.m[id]
	if !ok {
		lk = &sync.Mutex{}
		l.m[id] = lk
	}
	return lk
}

// SessionService owns the interview lifecycle. It holds a ranked list of LLM
// backends; the first healthy one is bound to a session at Start and used for
// every call in that session afterwards.
type SessionService struct {
	engines    []domain.LLMClient
	store      domain.SessionStore
	interviews domain.InterviewRepository
	turns      domain.TurnRepository
	reports    domain.ReportRepository
	events     domain.EventPublisher

	personas   *PersonaCatalog
	scorer     *ScoringEngine
	selector   *MetricSelector
	questions  *QuestionGenerator
	feedback   *FeedbackGenerator
	reporter   *ReportGenerator
	completion CompletionEvaluator
	tracker    MetricTracker

	defaultMaxQuestions int
	locks               sessionLocks
}

// NewSessionService wires the orchestrator. engines must be non-empty and is
// treated as ranked: earlier entries are preferred at session start.
func NewSessionService(
	engines []domain.LLMClient,
	store domain.SessionStore,
	interviews domain.InterviewRepository,
	turns domain.TurnRepository,
	reports domain.ReportRepository,
	events domain.EventPublisher,
	personas *PersonaCatalog,
	scorer *ScoringEngine,
	selector *MetricSelector,
	questions *QuestionGenerator,
	feedback *FeedbackGenerator,
	reporter *ReportGenerator,
	defaultMaxQuestions int,
) *SessionService {
	if defaultMaxQuestions <= 0 {
		defaultMaxQuestions = 10
	}
	return &SessionService{
		engines:             engines,
		store:               store,
		interviews:          interviews,
		turns:               turns,
		reports:             reports,
		events:              events,
		personas:            personas,
		scorer:              scorer,
		selector:            selector,
		questions:           questions,
		feedback:            feedback,
		reporter:            reporter,
		defaultMaxQuestions: defaultMaxQuestions,
	}
}

// StartInput carries the caller-supplied session configuration.
type StartInput struct {
	InterviewType  string
	JobDescription string
	Persona        string
	MaxQuestions   int
	Metrics        []domain.WeightedMetric
}

// StartOutput is returned to the caller after a session is initialized.
type StartOutput struct {
	SessionID     string
	FirstQuestion string
	Stage         domain.Stage
	MaxQuestions  int
}

// TurnInput carries one candidate answer.
type TurnInput struct {
	SessionID       string
	Answer          string
	DurationSeconds *float64
}

// TurnOutput is the result of processing one answer.
type TurnOutput struct {
	SessionID        string
	Feedback         string
	OverallScore     int
	QuestionCount    int
	Stage            domain.Stage
	Complete         bool
	CompletionReason string
	NextQuestion     string
	Summary          string
}

// Start validates configuration, binds an LLM backend, generates the opening
// question, and persists the new session. Configuration problems fail fast;
// generation problems degrade to the canned opening question.
func (s *SessionService) Start(ctx domain.Context, in StartInput) (StartOutput, error) {
	if in.InterviewType == "" {
		return StartOutput{}, fmt.Errorf("op=session.start: %w: interview_type required", domain.ErrInvalidArgument)
	}
	maxQuestions := in.MaxQuestions
	if maxQuestions == 0 {
		maxQuestions = s.defaultMaxQuestions
	}
	if maxQuestions < 1 {
		return StartOutput{}, fmt.Errorf("op=session.start: %w: max_questions must be positive", domain.ErrInvalidArgument)
	}
	metrics, err := validateMetrics(in.Metrics)
	if err != nil {
		return StartOutput{}, fmt.Errorf("op=session.start: %w", err)
	}

	engine, err := s.bindEngine(ctx)
	if err != nil {
		return StartOutput{}, fmt.Errorf("op=session.start: %w", err)
	}

	persona, _ := s.personas.Resolve(in.Persona)
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               uuid.NewString(),
		InterviewType:    in.InterviewType,
		JobDescription:   in.JobDescription,
		Persona:          persona,
		Engine:           engine.Name(),
		Metrics:          metrics,
		MaxQuestions:     maxQuestions,
		Stage:            domain.StageOpening,
		FlatScores:       map[string]float64{},
		GranularScores:   map[string]domain.GranularScore{},
		MetricHistory:    map[string][]float64{},
		WeaknessTracking: map[string]int{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ctx = obsctx.ContextWithSessionID(ctx, sess.ID)
	sess.CurrentQuestion = s.questions.Opening(ctx, engine, sess)
	sess.QuestionCount = 1

	if err := s.interviews.Create(ctx, domain.Interview{
		ID:             sess.ID,
		InterviewType:  sess.InterviewType,
		Persona:        sess.Persona,
		JobDescription: sess.JobDescription,
		MaxQuestions:   sess.MaxQuestions,
		Status:         domain.InterviewActive,
		CreatedAt:      now,
	}); err != nil {
		return StartOutput{}, fmt.Errorf("op=session.start: %w", err)
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return StartOutput{}, fmt.Errorf("op=session.start: %w", err)
	}

	observability.InterviewsStartedTotal.Inc()
	obsctx.LoggerFromContext(ctx).Info("interview started",
		slog.String("session_id", sess.ID),
		slog.String("interview_type", sess.InterviewType),
		slog.String("persona", sess.Persona),
		slog.String("engine", sess.Engine),
		slog.Int("max_questions", sess.MaxQuestions))

	return StartOutput{
		SessionID:     sess.ID,
		FirstQuestion: sess.CurrentQuestion,
		Stage:         sess.Stage,
		MaxQuestions:  sess.MaxQuestions,
	}, nil
}

// validateMetrics normalizes and checks the rubric. An empty slice selects
// the default rubric.
func validateMetrics(metrics []domain.WeightedMetric) ([]domain.WeightedMetric, error) {
	if len(metrics) == 0 {
		return domain.DefaultMetrics(), nil
	}
	out := make([]domain.WeightedMetric, 0, len(metrics))
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: metric name required", domain.ErrInvalidArgument)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("%w: duplicate metric %q", domain.ErrInvalidArgument, m.Name)
		}
		seen[m.Name] = true
		if m.Weight <= 0 || m.Weight > 1 {
			return nil, fmt.Errorf("%w: metric %q weight must be in (0,1]", domain.ErrInvalidArgument, m.Name)
		}
		if m.Threshold == 0 {
			m.Threshold = 75.0
		}
		if m.Threshold < 0 || m.Threshold > 100 {
			return nil, fmt.Errorf("%w: metric %q threshold must be in [0,100]", domain.ErrInvalidArgument, m.Name)
		}
		out = append(out, m)
	}
	return out, nil
}

// bindEngine picks the first healthy backend from the ranked list.
func (s *SessionService) bindEngine(ctx domain.Context) (domain.LLMClient, error) {
	if len(s.engines) == 0 {
		return nil, fmt.Errorf("%w: no LLM backends configured", domain.ErrInternal)
	}
	for _, e := range s.engines {
		if err := e.Healthy(ctx); err == nil {
			return e, nil
		}
		obsctx.LoggerFromContext(ctx).Warn("llm backend unhealthy, trying next",
			slog.String("backend", e.Name()))
	}
	return nil, fmt.Errorf("%w: no healthy LLM backend", domain.ErrInternal)
}

// engineFor resolves the backend bound at Start. A backend that disappeared
// from configuration falls back to the highest-ranked one; content generation
// failures degrade to fallbacks downstream either way.
func (s *SessionService) engineFor(sess *domain.Session) domain.LLMClient {
	for _, e := range s.engines {
		if e.Name() == sess.Engine {
			return e
		}
	}
	return s.engines[0]
}

// Turn processes one candidate answer end to end: score, track, check
// completion, and either generate the next question or finalize the session.
// Turns for the same session are serialized.
func (s *SessionService) Turn(ctx domain.Context, in TurnInput) (TurnOutput, error) {
	if in.SessionID == "" || in.Answer == "" {
		return TurnOutput{}, fmt.Errorf("op=session.turn: %w: session_id and answer required", domain.ErrInvalidArgument)
	}
	lk := s.locks.get(in.SessionID)
	lk.Lock()
	defer lk.Unlock()

	sess, err := s.store.Get(ctx, in.SessionID)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("op=session.turn: %w", err)
	}
	if sess.Complete {
		return TurnOutput{}, fmt.Errorf("op=session.turn: %w", domain.ErrSessionCompleted)
	}

	ctx = obsctx.ContextWithSessionID(ctx, sess.ID)
	lg := obsctx.LoggerFromContext(ctx)
	engine := s.engineFor(sess)
	now := time.Now().UTC()

	res := s.scorer.Score(ctx, engine, sess, in.Answer, in.DurationSeconds)
	s.tracker.Apply(sess, res, now)

	focus := s.tracker.WeakestMetric(sess)
	feedback := res.TurnFeedback
	if line := s.feedback.OneLiner(ctx, engine, sess, focus, in.Answer); line != "" {
		feedback = line
	}

	// Normalized per-dimension contributions recorded on the pair.
	pairMetrics := make(map[string]float64, len(res.RawMetrics))
	for name, raw := range res.RawMetrics {
		pairMetrics[name] = domain.NormalizeScore(raw)
	}
	score := res.OverallScore
	pair := domain.QuestionAnswerPair{
		Question:        sess.CurrentQuestion,
		Answer:          in.Answer,
		AskedAt:         now,
		Score:           &score,
		Metrics:         pairMetrics,
		Feedback:        feedback,
		DurationSeconds: in.DurationSeconds,
	}
	sess.History = append(sess.History, pair)
	s.tracker.RecomputeAverage(sess)
	turnIndex := len(sess.History)

	out := TurnOutput{
		SessionID:    sess.ID,
		Feedback:     feedback,
		OverallScore: res.OverallScore,
	}

	done, reason := s.completion.Evaluate(sess)
	if done {
		_ = s.finalize(ctx, engine, sess, reason, now)
		out.Complete = true
		out.CompletionReason = reason
		out.Summary = sess.Summary
	} else {
		target := s.selector.SelectTarget(sess)
		sess.NextAction = s.selector.NextAction(sess, target)
		sess.QuestionCount++
		sess.Stage = domain.StageForCount(sess.QuestionCount)
		sess.CurrentQuestion = s.questions.Next(ctx, engine, sess)
		out.NextQuestion = sess.CurrentQuestion
	}
	out.QuestionCount = sess.QuestionCount
	out.Stage = sess.Stage

	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		return TurnOutput{}, fmt.Errorf("op=session.turn: %w", err)
	}

	s.persistTurn(ctx, sess, pair, turnIndex)
	s.publishTurn(ctx, sess, turnIndex, &score)

	outcome := "continued"
	if out.Complete {
		outcome = "completed"
	}
	observability.RecordTurn(outcome, res.OverallScore)
	lg.Info("turn processed",
		slog.Int("turn", turnIndex),
		slog.Int("overall_score", res.OverallScore),
		slog.String("stage", string(sess.Stage)),
		slog.Bool("complete", out.Complete),
		slog.Bool("scoring_fallback", res.Fallback))
	return out, nil
}

// finalize moves the session to its terminal state and generates the report.
// Report and summary generation never fail; durable writes are best-effort
// here because the session store remains the source of truth.
func (s *SessionService) finalize(ctx domain.Context, engine domain.LLMClient, sess *domain.Session, reason string, now time.Time) domain.FinalReport {
	lg := obsctx.LoggerFromContext(ctx)

	sess.Complete = true
	sess.CompletionReason = reason
	sess.Stage = domain.StageCompleted
	sess.CurrentQuestion = ""

	report := s.reporter.Generate(ctx, engine, sess, reason, now)
	sess.Summary = report.PerformanceSummary

	if err := s.reports.Store(ctx, report); err != nil {
		lg.Warn("storing final report failed", slog.Any("error", err))
	}
	var avg float64
	if sess.AverageScore != nil {
		avg = *sess.AverageScore
	}
	if err := s.interviews.MarkCompleted(ctx, sess.ID, reason, avg, now); err != nil {
		lg.Warn("marking interview completed failed", slog.Any("error", err))
	}
	if s.events != nil {
		if err := s.events.PublishInterviewCompleted(ctx, domain.CompletedEvent{
			SessionID:        sess.ID,
			CompletionReason: reason,
			TotalQuestions:   sess.QuestionCount,
			AverageScore:     avg,
			EmittedAt:        now,
		}); err != nil {
			lg.Warn("publishing completion event failed", slog.Any("error", err))
		}
	}
	observability.RecordCompletion(reason)
	return report
}

func (s *SessionService) persistTurn(ctx domain.Context, sess *domain.Session, pair domain.QuestionAnswerPair, index int) {
	t := domain.Turn{
		ID:              ulid.Make().String(),
		SessionID:       sess.ID,
		Index:           index,
		Question:        pair.Question,
		Answer:          pair.Answer,
		Score:           pair.Score,
		Metrics:         pair.Metrics,
		Feedback:        pair.Feedback,
		DurationSeconds: pair.DurationSeconds,
		CreatedAt:       pair.AskedAt,
	}
	if err := s.turns.Append(ctx, t); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("appending turn record failed",
			slog.Int("turn", index), slog.Any("error", err))
	}
}

func (s *SessionService) publishTurn(ctx domain.Context, sess *domain.Session, index int, score *int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTurnFinalized(ctx, domain.TurnEvent{
		SessionID:    sess.ID,
		TurnIndex:    index,
		Stage:        sess.Stage,
		OverallScore: score,
		Complete:     sess.Complete,
		EmittedAt:    time.Now().UTC(),
	}); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("publishing turn event failed",
			slog.Int("turn", index), slog.Any("error", err))
	}
}

// End terminates a session on the caller's request and returns the final
// report. Ending an already-completed session is idempotent: the stored
// report is returned and nothing is regenerated.
func (s *SessionService) End(ctx domain.Context, sessionID, reason string) (domain.FinalReport, error) {
	if sessionID == "" {
		return domain.FinalReport{}, fmt.Errorf("op=session.end: %w: session_id required", domain.ErrInvalidArgument)
	}
	lk := s.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("op=session.end: %w", err)
	}
	ctx = obsctx.ContextWithSessionID(ctx, sess.ID)

	if sess.Complete {
		if r, rerr := s.reports.GetBySession(ctx, sess.ID); rerr == nil {
			return r, nil
		}
		// Stored report missing (e.g. a best-effort write failed earlier);
		// regenerate without mutating terminal state.
		engine := s.engineFor(sess)
		report := s.reporter.Generate(ctx, engine, sess, sess.CompletionReason, time.Now().UTC())
		if serr := s.reports.Store(ctx, report); serr != nil {
			obsctx.LoggerFromContext(ctx).Warn("re-storing final report failed", slog.Any("error", serr))
		}
		return report, nil
	}

	if reason == "" {
		reason = ReasonEndedByCaller
	}
	now := time.Now().UTC()
	engine := s.engineFor(sess)
	report := s.finalize(ctx, engine, sess, reason, now)

	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		return domain.FinalReport{}, fmt.Errorf("op=session.end: %w", err)
	}

	obsctx.LoggerFromContext(ctx).Info("interview ended",
		slog.String("reason", reason), slog.Int("questions", sess.QuestionCount))
	return report, nil
}

// Session returns the live session state.
func (s *SessionService) Session(ctx domain.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("op=session.get: %w: session_id required", domain.ErrInvalidArgument)
	}
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=session.get: %w", err)
	}
	return sess, nil
}

// Report returns the stored final report for a session.
func (s *SessionService) Report(ctx domain.Context, sessionID string) (domain.FinalReport, error) {
	if sessionID == "" {
		return domain.FinalReport{}, fmt.Errorf("op=report.get: %w: session_id required", domain.ErrInvalidArgument)
	}
	r, err := s.reports.GetBySession(ctx, sessionID)
	if err != nil {
		return domain.FinalReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	return r, nil
}
