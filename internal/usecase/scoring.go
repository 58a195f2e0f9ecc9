package usecase

import (
	"encoding/json"
	"log/slog"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	obsctx "github.com/elevice/ai-interviewer/internal/observability"
	"github.com/elevice/ai-interviewer/internal/domain"
)

// JSONCleaner repairs model output before JSON parsing.
type JSONCleaner interface {
	CleanJSON(response string) string
}

// TextCleaner normalizes free-text model output.
type TextCleaner interface {
	CleanText(response string) string
}

const scoringMaxTokens = 1200

// Neutral fallback content used when scoring cannot be generated.
const (
	fallbackRawScore      = 3.0
	fallbackOverallScore  = 60
	fallbackJustification = "Unable to generate detailed scoring due to a technical error."
	fallbackTurnFeedback  = "Thank you for your response. Please continue with the next question."
)

// ScoringEngine evaluates one answer against the session rubric via a
// strict-JSON LLM call. It never returns an error: any generation or schema
// failure degrades to the deterministic neutral fallback so a turn always
// produces a usable result.
type ScoringEngine struct {
	prompts *PromptBuilder
	cleaner JSONCleaner
}

// NewScoringEngine wires a scoring engine.
func NewScoringEngine(prompts *PromptBuilder, cleaner JSONCleaner) *ScoringEngine {
	return &ScoringEngine{prompts: prompts, cleaner: cleaner}
}

// scoringWire is the JSON contract the model must produce.
type scoringWire struct {
	OverallScore *float64                 `json:"overall_score"`
	Metrics      map[string]float64       `json:"metrics"`
	Granular     map[string]granularWire  `json:"granular_justifications"`
	TurnFeedback string                   `json:"turn_feedback"`
	FollowUp     []string                 `json:"recommended_follow_up_areas"`
}

type granularWire struct {
	Score               float64  `json:"score"`
	Justification       string   `json:"justification"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// Score evaluates the answer with the session's bound backend.
func (e *ScoringEngine) Score(ctx domain.Context, llm domain.LLMClient, sess *domain.Session, answer string, durationSeconds *float64) domain.ScoringResult {
	lg := obsctx.LoggerFromContext(ctx)

	system, user := e.prompts.ScoringPrompts(sess, answer, durationSeconds)
	raw, err := llm.Complete(ctx, system, user, true, scoringMaxTokens)
	if err != nil {
		lg.Warn("scoring generation failed; using neutral fallback",
			slog.String("session_id", sess.ID), slog.Any("error", err))
		observability.RecordFallback("scoring")
		return FallbackScoring(sess.Metrics)
	}

	res, ok := e.parse(raw, sess)
	if !ok {
		lg.Warn("scoring response failed schema validation; using neutral fallback",
			slog.String("session_id", sess.ID))
		observability.RecordFallback("scoring")
		return FallbackScoring(sess.Metrics)
	}
	return res
}

func (e *ScoringEngine) parse(raw string, sess *domain.Session) (domain.ScoringResult, bool) {
	var wire scoringWire
	if err := json.Unmarshal([]byte(e.cleaner.CleanJSON(raw)), &wire); err != nil {
		return domain.ScoringResult{}, false
	}
	if wire.OverallScore == nil || len(wire.Metrics) == 0 {
		return domain.ScoringResult{}, false
	}

	overall := int(*wire.OverallScore)
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	// Clamp raw scores and fill any dimension the model skipped with the
	// neutral value so the tracker always sees the full rubric.
	metrics := make(map[string]float64, len(sess.Metrics))
	for _, m := range sess.Metrics {
		rv, ok := wire.Metrics[m.Name]
		if !ok {
			rv = fallbackRawScore
		}
		if rv < 1 {
			rv = 1
		}
		if rv > 5 {
			rv = 5
		}
		metrics[m.Name] = rv
	}

	granular := make(map[string]domain.GranularScore, len(wire.Granular))
	for name, g := range wire.Granular {
		granular[name] = domain.GranularScore{
			Score:               g.Score,
			Justification:       g.Justification,
			Strengths:           g.Strengths,
			AreasForImprovement: g.AreasForImprovement,
		}
	}

	feedback := wire.TurnFeedback
	if feedback == "" {
		feedback = fallbackTurnFeedback
	}

	return domain.ScoringResult{
		OverallScore:  overall,
		RawMetrics:    metrics,
		Granular:      granular,
		TurnFeedback:  feedback,
		FollowUpAreas: wire.FollowUp,
	}, true
}

// FallbackScoring builds the deterministic neutral result: every dimension at
// the midpoint raw score and a neutral overall score.
func FallbackScoring(metrics []domain.WeightedMetric) domain.ScoringResult {
	raw := make(map[string]float64, len(metrics))
	granular := make(map[string]domain.GranularScore, len(metrics))
	for _, m := range metrics {
		raw[m.Name] = fallbackRawScore
		granular[m.Name] = domain.GranularScore{
			Score:         fallbackRawScore,
			Justification: fallbackJustification,
			Strengths:     []string{"Response provided"},
		}
	}
	return domain.ScoringResult{
		OverallScore: fallbackOverallScore,
		RawMetrics:   raw,
		Granular:     granular,
		TurnFeedback: fallbackTurnFeedback,
		Fallback:     true,
	}
}
