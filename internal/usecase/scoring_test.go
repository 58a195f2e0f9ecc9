package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevice/ai-interviewer/internal/adapter/ai"
	"github.com/elevice/ai-interviewer/internal/domain"
	"github.com/elevice/ai-interviewer/internal/usecase"
)

func newScoringEngine(t *testing.T) *usecase.ScoringEngine {
	t.Helper()
	personas, err := usecase.LoadPersonas()
	require.NoError(t, err)
	prompts := usecase.NewPromptBuilder(personas, roughCounter{}, 4000)
	return usecase.NewScoringEngine(prompts, ai.NewResponseCleaner())
}

func scoringSession() *domain.Session {
	return &domain.Session{
		ID:              "sess-1",
		InterviewType:   "backend engineer",
		Persona:         "Standard Technical Interviewer",
		Metrics:         domain.DefaultMetrics(),
		CurrentQuestion: "Tell me about a recent project.",
	}
}

func TestScore_ParsesWellFormedResponse(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := scriptedLLM(goodScoringJSON(4.0, 78))

	res := eng.Score(context.Background(), llm, scoringSession(), "I built a payments service.", nil)

	assert.False(t, res.Fallback)
	assert.Equal(t, 78, res.OverallScore)
	assert.InDelta(t, 4.0, res.RawMetrics["technical_acumen"], 1e-9)
	assert.Equal(t, "Nice answer.", res.TurnFeedback)
	assert.Contains(t, res.Granular, "technical_acumen")
}

func TestScore_MarkdownFencedResponse(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := scriptedLLM("```json\n" + goodScoringJSON(3.0, 55) + "\n```")

	res := eng.Score(context.Background(), llm, scoringSession(), "answer", nil)
	assert.False(t, res.Fallback)
	assert.Equal(t, 55, res.OverallScore)
}

func TestScore_FillsMissingDimensions(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := scriptedLLM(`{"overall_score": 65, "metrics": {"technical_acumen": 4.5}, "turn_feedback": "ok"}`)

	res := eng.Score(context.Background(), llm, scoringSession(), "answer", nil)
	require.False(t, res.Fallback)
	assert.InDelta(t, 4.5, res.RawMetrics["technical_acumen"], 1e-9)
	// Skipped dimensions get the neutral raw score.
	assert.InDelta(t, 3.0, res.RawMetrics["communication"], 1e-9)
	assert.Len(t, res.RawMetrics, 4)
}

func TestScore_ClampsOutOfRangeValues(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := scriptedLLM(`{"overall_score": 140, "metrics": {"technical_acumen": 9.0, "communication": 0.1, "problem_solving": 3.0, "experience_relevance": 3.0}}`)

	res := eng.Score(context.Background(), llm, scoringSession(), "answer", nil)
	require.False(t, res.Fallback)
	assert.Equal(t, 100, res.OverallScore)
	assert.InDelta(t, 5.0, res.RawMetrics["technical_acumen"], 1e-9)
	assert.InDelta(t, 1.0, res.RawMetrics["communication"], 1e-9)
}

func TestScore_GenerationErrorFallsBack(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return "", errors.New("upstream exploded")
	}}

	sess := scoringSession()
	res := eng.Score(context.Background(), llm, sess, "answer", nil)

	assert.True(t, res.Fallback)
	assert.Equal(t, 60, res.OverallScore)
	for _, m := range sess.Metrics {
		assert.InDelta(t, 3.0, res.RawMetrics[m.Name], 1e-9, "metric %s", m.Name)
	}
	assert.NotEmpty(t, res.TurnFeedback)
}

func TestScore_UnparseableResponseFallsBack(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	llm := scriptedLLM("I am sorry, I cannot score this answer.")

	res := eng.Score(context.Background(), llm, scoringSession(), "answer", nil)
	assert.True(t, res.Fallback)
	assert.Equal(t, 60, res.OverallScore)
}

func TestScore_MissingRequiredFieldsFallsBack(t *testing.T) {
	t.Parallel()
	eng := newScoringEngine(t)
	// Valid JSON but no overall_score.
	llm := scriptedLLM(`{"metrics": {"technical_acumen": 4.0}}`)

	res := eng.Score(context.Background(), llm, scoringSession(), "answer", nil)
	assert.True(t, res.Fallback)
}

func TestFallbackScoring_Deterministic(t *testing.T) {
	t.Parallel()
	metrics := domain.DefaultMetrics()
	a := usecase.FallbackScoring(metrics)
	b := usecase.FallbackScoring(metrics)
	assert.Equal(t, a.OverallScore, b.OverallScore)
	assert.Equal(t, a.RawMetrics, b.RawMetrics)
	assert.True(t, a.Fallback)
}
