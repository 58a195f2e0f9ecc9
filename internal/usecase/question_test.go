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

func newQuestionGenerator(t *testing.T) *usecase.QuestionGenerator {
	t.Helper()
	personas, err := usecase.LoadPersonas()
	require.NoError(t, err)
	prompts := usecase.NewPromptBuilder(personas, roughCounter{}, 4000)
	return usecase.NewQuestionGenerator(prompts, ai.NewResponseCleaner())
}

func questionSession(stage domain.Stage) *domain.Session {
	return &domain.Session{
		ID:            "sess-1",
		InterviewType: "data engineering",
		Persona:       "Technical Lead",
		Metrics:       domain.DefaultMetrics(),
		Stage:         stage,
		TargetMetric:  "technical_acumen",
		NextAction:    domain.ActionTechnicalDeepDive,
		MaxQuestions:  10,
	}
}

func TestOpening_StripsQuotes(t *testing.T) {
	t.Parallel()
	g := newQuestionGenerator(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return `"Welcome! Tell me about your background."`, nil
	}}
	got := g.Opening(context.Background(), llm, questionSession(domain.StageOpening))
	assert.Equal(t, "Welcome! Tell me about your background.", got)
}

func TestOpening_FallbackOnError(t *testing.T) {
	t.Parallel()
	g := newQuestionGenerator(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return "", errors.New("down")
	}}
	got := g.Opening(context.Background(), llm, questionSession(domain.StageOpening))
	assert.Equal(t, "Tell me about yourself and your experience relevant to this data engineering position.", got)
}

func TestNext_UsesModelOutput(t *testing.T) {
	t.Parallel()
	g := newQuestionGenerator(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return "How do you handle schema evolution in a streaming pipeline?", nil
	}}
	got := g.Next(context.Background(), llm, questionSession(domain.StageTechnical))
	assert.Equal(t, "How do you handle schema evolution in a streaming pipeline?", got)
}

func TestNext_StageFallbacks(t *testing.T) {
	t.Parallel()
	g := newQuestionGenerator(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return "", errors.New("down")
	}}

	cases := []struct {
		stage domain.Stage
		want  string
	}{
		{domain.StageOpening, "Can you tell me about a challenging data engineering project you've worked on recently?"},
		{domain.StageTechnical, "How would you approach designing a scalable system for data engineering?"},
		{domain.StageBehavioral, "Tell me about a time when you had to work with a difficult team member. How did you handle it?"},
		{domain.StageClosing, "Do you have any questions for me about the role or the company?"},
	}
	for _, tc := range cases {
		got := g.Next(context.Background(), llm, questionSession(tc.stage))
		assert.Equal(t, tc.want, got, "stage=%s", tc.stage)
	}
}

func TestNext_EmptyResponseFallsBack(t *testing.T) {
	t.Parallel()
	g := newQuestionGenerator(t)
	llm := &fakeLLM{completeFn: func(_, _ string, _ bool) (string, error) {
		return "   ", nil
	}}
	got := g.Next(context.Background(), llm, questionSession(domain.StageBehavioral))
	assert.Equal(t, "Tell me about a time when you had to work with a difficult team member. How did you handle it?", got)
}
