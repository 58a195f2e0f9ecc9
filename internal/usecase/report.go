package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/domain"
	obsctx "github.com/elevice/ai-interviewer/internal/observability"
)

const reportMaxTokens = 1500

// ReportGenerator produces the structured final report for a terminal
// session. Like scoring, it never fails: LLM or schema errors degrade to a
// deterministic report derived from the tracked scores.
type ReportGenerator struct {
	prompts *PromptBuilder
	cleaner JSONCleaner
}

// NewReportGenerator wires a report generator.
func NewReportGenerator(prompts *PromptBuilder, cleaner JSONCleaner) *ReportGenerator {
	return &ReportGenerator{prompts: prompts, cleaner: cleaner}
}

type reportWire struct {
	PerformanceSummary   string   `json:"performance_summary"`
	KeyStrengths         []string `json:"key_strengths"`
	AreasForImprovement  []string `json:"areas_for_improvement"`
	Recommendations      []string `json:"improvement_recommendations"`
	OverallAssessment    string   `json:"overall_assessment"`
	ConfidenceScore      *int     `json:"confidence_score"`
	HiringRecommendation string   `json:"hiring_recommendation"`
}

// Generate builds the final report for the session.
func (g *ReportGenerator) Generate(ctx domain.Context, llm domain.LLMClient, sess *domain.Session, reason string, at time.Time) domain.FinalReport {
	base := g.skeleton(sess, reason, at)

	system, user := g.prompts.ReportPrompts(sess, reason)
	raw, err := llm.Complete(ctx, system, user, true, reportMaxTokens)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("report generation failed; using derived fallback",
			slog.String("session_id", sess.ID), slog.Any("error", err))
		observability.RecordFallback("report")
		return g.fallback(base, sess)
	}

	var wire reportWire
	if uerr := json.Unmarshal([]byte(g.cleaner.CleanJSON(raw)), &wire); uerr != nil ||
		wire.PerformanceSummary == "" || !validAssessment(wire.OverallAssessment) {
		obsctx.LoggerFromContext(ctx).Warn("report response failed schema validation; using derived fallback",
			slog.String("session_id", sess.ID))
		observability.RecordFallback("report")
		return g.fallback(base, sess)
	}

	base.PerformanceSummary = wire.PerformanceSummary
	base.KeyStrengths = wire.KeyStrengths
	base.AreasForImprovement = wire.AreasForImprovement
	base.Recommendations = wire.Recommendations
	base.OverallAssessment = wire.OverallAssessment
	if wire.ConfidenceScore != nil && *wire.ConfidenceScore >= 0 && *wire.ConfidenceScore <= 100 {
		base.ConfidenceScore = *wire.ConfidenceScore
	}
	base.HiringRecommendation = wire.HiringRecommendation
	return base
}

func validAssessment(a string) bool {
	switch a {
	case domain.AssessmentRecommended, domain.AssessmentBorderline, domain.AssessmentNotRecommended:
		return true
	}
	return false
}

func (g *ReportGenerator) skeleton(sess *domain.Session, reason string, at time.Time) domain.FinalReport {
	var avg float64
	if sess.AverageScore != nil {
		avg = *sess.AverageScore
	}
	scores := make(map[string]float64, len(sess.FlatScores))
	for _, m := range sess.Metrics {
		if v, ok := sess.FlatScores[m.Name]; ok {
			scores[m.Name] = v
		}
	}
	return domain.FinalReport{
		SessionID:        sess.ID,
		CompletionReason: reason,
		TotalQuestions:   sess.QuestionCount,
		AverageScore:     avg,
		MetricScores:     scores,
		GeneratedAt:      at,
	}
}

// fallback derives a report from tracked scores alone.
func (g *ReportGenerator) fallback(base domain.FinalReport, sess *domain.Session) domain.FinalReport {
	avg := base.AverageScore
	base.PerformanceSummary = fmt.Sprintf(
		"The candidate answered %d questions with an average score of %.0f out of 100.",
		base.TotalQuestions, avg)

	for _, m := range sess.Metrics {
		v, ok := sess.FlatScores[m.Name]
		if !ok {
			continue
		}
		if v >= m.Threshold {
			base.KeyStrengths = append(base.KeyStrengths, m.Name)
		} else {
			base.AreasForImprovement = append(base.AreasForImprovement, m.Name)
			base.Recommendations = append(base.Recommendations,
				fmt.Sprintf("Practice questions that exercise %s.", m.Name))
		}
	}

	if avg < 70 {
		base.OverallAssessment = domain.AssessmentBorderline
	} else {
		base.OverallAssessment = domain.AssessmentRecommended
	}
	conf := int(avg)
	if conf > 85 {
		conf = 85
	}
	if conf < 0 {
		conf = 0
	}
	base.ConfidenceScore = conf
	base.HiringRecommendation = "Review the per-dimension scores before making a decision."
	return base
}
