package usecase

import (
	"log/slog"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/domain"
	obsctx "github.com/elevice/ai-interviewer/internal/observability"
)

const feedbackMaxTokens = 120

// FeedbackGenerator produces the one-sentence coaching line after each
// answer, keyed to the candidate's weakest rubric dimension.
type FeedbackGenerator struct {
	prompts *PromptBuilder
	cleaner TextCleaner
}

// NewFeedbackGenerator wires a feedback generator.
func NewFeedbackGenerator(prompts *PromptBuilder, cleaner TextCleaner) *FeedbackGenerator {
	return &FeedbackGenerator{prompts: prompts, cleaner: cleaner}
}

// OneLiner returns a single coaching sentence, falling back to a canned line
// when generation fails.
func (g *FeedbackGenerator) OneLiner(ctx domain.Context, llm domain.LLMClient, sess *domain.Session, focus, answer string) string {
	system, user := g.prompts.FeedbackPrompts(sess, focus, answer)
	raw, err := llm.Complete(ctx, system, user, false, feedbackMaxTokens)
	if err != nil || g.cleaner.CleanText(raw) == "" {
		obsctx.LoggerFromContext(ctx).Debug("coaching feedback generation failed; using fallback",
			slog.String("session_id", sess.ID), slog.Any("error", err))
		observability.RecordFallback("feedback")
		return fallbackTurnFeedback
	}
	return g.cleaner.CleanText(raw)
}
