package usecase

import (
	"fmt"
	"log/slog"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/domain"
	obsctx "github.com/elevice/ai-interviewer/internal/observability"
)

const questionMaxTokens = 300

// QuestionGenerator produces interview questions via free-text LLM calls.
// Generation failures degrade to canned per-stage questions so the interview
// always has something to ask next.
type QuestionGenerator struct {
	prompts *PromptBuilder
	cleaner TextCleaner
}

// NewQuestionGenerator wires a question generator.
func NewQuestionGenerator(prompts *PromptBuilder, cleaner TextCleaner) *QuestionGenerator {
	return &QuestionGenerator{prompts: prompts, cleaner: cleaner}
}

// Opening generates the first question of a session.
func (g *QuestionGenerator) Opening(ctx domain.Context, llm domain.LLMClient, sess *domain.Session) string {
	system, user := g.prompts.OpeningPrompts(sess)
	raw, err := llm.Complete(ctx, system, user, false, questionMaxTokens)
	if err != nil || g.cleaner.CleanText(raw) == "" {
		obsctx.LoggerFromContext(ctx).Warn("opening question generation failed; using fallback",
			slog.String("session_id", sess.ID), slog.Any("error", err))
		observability.RecordFallback("opening_question")
		return fmt.Sprintf("Tell me about yourself and your experience relevant to this %s position.", sess.InterviewType)
	}
	return g.cleaner.CleanText(raw)
}

// Next generates the next adaptive question using the session's current
// target metric and action strategy.
func (g *QuestionGenerator) Next(ctx domain.Context, llm domain.LLMClient, sess *domain.Session) string {
	system, user := g.prompts.QuestionPrompts(sess)
	raw, err := llm.Complete(ctx, system, user, false, questionMaxTokens)
	if err != nil || g.cleaner.CleanText(raw) == "" {
		obsctx.LoggerFromContext(ctx).Warn("question generation failed; using stage fallback",
			slog.String("session_id", sess.ID),
			slog.String("stage", string(sess.Stage)),
			slog.Any("error", err))
		observability.RecordFallback("question")
		return FallbackQuestion(sess.Stage, sess.InterviewType)
	}
	return g.cleaner.CleanText(raw)
}

// FallbackQuestion returns the canned question for a stage.
func FallbackQuestion(stage domain.Stage, interviewType string) string {
	switch stage {
	case domain.StageOpening:
		return fmt.Sprintf("Can you tell me about a challenging %s project you've worked on recently?", interviewType)
	case domain.StageTechnical:
		return fmt.Sprintf("How would you approach designing a scalable system for %s?", interviewType)
	case domain.StageBehavioral:
		return "Tell me about a time when you had to work with a difficult team member. How did you handle it?"
	default:
		return "Do you have any questions for me about the role or the company?"
	}
}
