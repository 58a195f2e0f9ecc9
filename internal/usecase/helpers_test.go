package usecase_test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elevice/ai-interviewer/internal/adapter/ai"
	"github.com/elevice/ai-interviewer/internal/domain"
	"github.com/elevice/ai-interviewer/internal/usecase"
)

// fakeLLM lets each test script completions per call.
type fakeLLM struct {
	name       string
	healthyErr error
	completeFn func(system, user string, jsonMode bool) (string, error)
}

func (f *fakeLLM) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeLLM) Healthy(_ domain.Context) error { return f.healthyErr }

func (f *fakeLLM) Complete(_ domain.Context, system, user string, jsonMode bool, _ int) (string, error) {
	if f.completeFn == nil {
		return "", errors.New("no completion scripted")
	}
	return f.completeFn(system, user, jsonMode)
}

// scriptedLLM answers scoring calls with a fixed JSON result and free-text
// calls with a fixed question.
func scriptedLLM(scoringJSON string) *fakeLLM {
	return &fakeLLM{completeFn: func(_, user string, jsonMode bool) (string, error) {
		if jsonMode {
			return scoringJSON, nil
		}
		return "What was the hardest bug you ever fixed?", nil
	}}
}

// goodScoringJSON builds a scoring response covering the default rubric with
// the same raw score everywhere.
func goodScoringJSON(raw float64, overall int) string {
	return fmt.Sprintf(`{
  "overall_score": %d,
  "metrics": {"technical_acumen": %[2]f, "problem_solving": %[2]f, "communication": %[2]f, "experience_relevance": %[2]f},
  "granular_justifications": {"technical_acumen": {"score": %[2]f, "justification": "solid", "strengths": ["depth"], "areas_for_improvement": ["breadth"]}},
  "turn_feedback": "Nice answer.",
  "recommended_follow_up_areas": ["system design"]
}`, overall, raw)
}

type fakeStore struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newFakeStore() *fakeStore { return &fakeStore{m: map[string]*domain.Session{}} }

func (f *fakeStore) Save(_ domain.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.m[s.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ domain.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.m[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) Delete(_ domain.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, id)
	return nil
}

type fakeInterviews struct {
	mu        sync.Mutex
	created   []domain.Interview
	completed map[string]string
}

func newFakeInterviews() *fakeInterviews { return &fakeInterviews{completed: map[string]string{}} }

func (f *fakeInterviews) Create(_ domain.Context, iv domain.Interview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, iv)
	return nil
}

func (f *fakeInterviews) MarkCompleted(_ domain.Context, id, reason string, _ float64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = reason
	return nil
}

func (f *fakeInterviews) Get(_ domain.Context, id string) (domain.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, iv := range f.created {
		if iv.ID == id {
			return iv, nil
		}
	}
	return domain.Interview{}, domain.ErrNotFound
}

type fakeTurns struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func (f *fakeTurns) Append(_ domain.Context, t domain.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, t)
	return nil
}

func (f *fakeTurns) ListBySession(_ domain.Context, sessionID string) ([]domain.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Turn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeReports struct {
	mu sync.Mutex
	m  map[string]domain.FinalReport
	// stores counts Store calls to assert exactly-once semantics.
	stores int
}

func newFakeReports() *fakeReports { return &fakeReports{m: map[string]domain.FinalReport{}} }

func (f *fakeReports) Store(_ domain.Context, r domain.FinalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	f.m[r.SessionID] = r
	return nil
}

func (f *fakeReports) GetBySession(_ domain.Context, sessionID string) (domain.FinalReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.m[sessionID]
	if !ok {
		return domain.FinalReport{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	turnEvs   []domain.TurnEvent
	completed []domain.CompletedEvent
}

func (f *fakeEvents) PublishTurnFinalized(_ domain.Context, ev domain.TurnEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turnEvs = append(f.turnEvs, ev)
	return nil
}

func (f *fakeEvents) PublishInterviewCompleted(_ domain.Context, ev domain.CompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, ev)
	return nil
}

// roughCounter avoids loading a BPE vocabulary in tests.
type roughCounter struct{}

func (roughCounter) Count(text string) int { return len(text) / 4 }

type testEnv struct {
	svc        *usecase.SessionService
	store      *fakeStore
	interviews *fakeInterviews
	turns      *fakeTurns
	reports    *fakeReports
	events     *fakeEvents
}

func newTestEnv(llms ...domain.LLMClient) *testEnv {
	personas, err := usecase.LoadPersonas()
	if err != nil {
		panic(err)
	}
	cleaner := ai.NewResponseCleaner()
	prompts := usecase.NewPromptBuilder(personas, roughCounter{}, 4000)

	env := &testEnv{
		store:      newFakeStore(),
		interviews: newFakeInterviews(),
		turns:      &fakeTurns{},
		reports:    newFakeReports(),
		events:     &fakeEvents{},
	}
	env.svc = usecase.NewSessionService(
		llms,
		env.store,
		env.interviews,
		env.turns,
		env.reports,
		env.events,
		personas,
		usecase.NewScoringEngine(prompts, cleaner),
		usecase.NewMetricSelectorWithSeed(42),
		usecase.NewQuestionGenerator(prompts, cleaner),
		usecase.NewFeedbackGenerator(prompts, cleaner),
		usecase.NewReportGenerator(prompts, cleaner),
		10,
	)
	return env
}
