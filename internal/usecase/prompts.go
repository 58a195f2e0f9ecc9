package usecase

import (
	"fmt"
	"strings"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// TokenCounter estimates token counts so history can be trimmed to a budget.
type TokenCounter interface {
	Count(text string) int
}

// PromptBuilder renders the prompts for scoring, question generation,
// coaching feedback, and the final report. Conversation history is trimmed
// from the oldest exchange down until it fits HistoryBudget tokens.
type PromptBuilder struct {
	Personas      *PersonaCatalog
	Tokens        TokenCounter
	HistoryBudget int
}

// NewPromptBuilder wires a prompt builder.
func NewPromptBuilder(personas *PersonaCatalog, tokens TokenCounter, historyBudget int) *PromptBuilder {
	if historyBudget <= 0 {
		historyBudget = 3000
	}
	return &PromptBuilder{Personas: personas, Tokens: tokens, HistoryBudget: historyBudget}
}

func (b *PromptBuilder) personaStyle(sess *domain.Session) string {
	_, style := b.Personas.Resolve(sess.Persona)
	return style
}

// historyBlock renders the newest exchanges that fit the token budget,
// oldest-first so the model reads the conversation in order.
func (b *PromptBuilder) historyBlock(sess *domain.Session) string {
	if len(sess.History) == 0 {
		return "(no previous exchanges)"
	}
	rendered := make([]string, 0, len(sess.History))
	total := 0
	for i := len(sess.History) - 1; i >= 0; i-- {
		p := sess.History[i]
		entry := fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, p.Question, i+1, p.Answer)
		cost := b.Tokens.Count(entry)
		if total+cost > b.HistoryBudget && len(rendered) > 0 {
			break
		}
		rendered = append(rendered, entry)
		total += cost
	}
	// rendered is newest-first; reverse into chronological order.
	for i, j := 0, len(rendered)-1; i < j; i, j = i+1, j-1 {
		rendered[i], rendered[j] = rendered[j], rendered[i]
	}
	return strings.Join(rendered, "\n\n")
}

func paceContext(answer string, durationSeconds *float64) string {
	if durationSeconds == nil || *durationSeconds <= 0 {
		return ""
	}
	words := len(strings.Fields(answer))
	wpm := float64(words) / *durationSeconds * 60
	label := "a comfortable"
	switch {
	case wpm < 100:
		label = "a slow"
	case wpm > 160:
		label = "a fast"
	}
	return fmt.Sprintf("The candidate spoke at %s pace (%.0f words per minute).", label, wpm)
}

func metricList(metrics []domain.WeightedMetric) string {
	var sb strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&sb, "- %s (weight %.2f)\n", m.Name, m.Weight)
	}
	return sb.String()
}

// ScoringPrompts renders the strict-JSON evaluation request for one answer.
func (b *PromptBuilder) ScoringPrompts(sess *domain.Session, answer string, durationSeconds *float64) (system, user string) {
	system = fmt.Sprintf(`%s

You are evaluating a candidate's answer in a %s interview. Score every rubric
dimension on a 1 to 5 scale. Respond with a single JSON object and nothing
else, using exactly this shape:
{
  "overall_score": <integer 0-100>,
  "metrics": {"<metric_name>": <float 1-5>, ...},
  "granular_justifications": {"<metric_name>": {"score": <float 1-5>, "justification": "...", "strengths": ["..."], "areas_for_improvement": ["..."]}, ...},
  "turn_feedback": "<one short paragraph addressed to the candidate>",
  "recommended_follow_up_areas": ["..."]
}
Rubric dimensions:
%s`, b.personaStyle(sess), sess.InterviewType, metricList(sess.Metrics))

	var sb strings.Builder
	if sess.JobDescription != "" {
		fmt.Fprintf(&sb, "Job description:\n%s\n\n", sess.JobDescription)
	}
	fmt.Fprintf(&sb, "Conversation so far:\n%s\n\n", b.historyBlock(sess))
	fmt.Fprintf(&sb, "Current question:\n%s\n\nCandidate answer:\n%s\n", sess.CurrentQuestion, answer)
	if pace := paceContext(answer, durationSeconds); pace != "" {
		fmt.Fprintf(&sb, "\n%s\n", pace)
	}
	return system, sb.String()
}

// OpeningPrompts renders the request for the first question of a session.
func (b *PromptBuilder) OpeningPrompts(sess *domain.Session) (system, user string) {
	system = fmt.Sprintf(`%s

You are opening a %s interview. Ask one welcoming first question that invites
the candidate to introduce themselves and their relevant experience. Reply
with the question text only.`, b.personaStyle(sess), sess.InterviewType)

	var sb strings.Builder
	if sess.JobDescription != "" {
		fmt.Fprintf(&sb, "Job description:\n%s\n\n", sess.JobDescription)
	}
	sb.WriteString("Generate the opening question.")
	return system, sb.String()
}

var actionDirectives = map[string]string{
	domain.ActionTechnicalDeepDive: "Ask a technical deep-dive question that tests depth of knowledge.",
	domain.ActionProblemSolving:    "Pose a problem-solving scenario and ask how the candidate would work through it.",
	domain.ActionBehavioral:        "Ask a behavioral question about a concrete past experience.",
	domain.ActionSystemDesign:      "Ask a system design question appropriate for the role.",
	domain.ActionClosing:           "Ask a closing question that wraps up the interview.",
	domain.ActionStandardFlow:      "Continue the natural flow of the interview with the next question.",
}

// QuestionPrompts renders the request for the next adaptive question.
func (b *PromptBuilder) QuestionPrompts(sess *domain.Session) (system, user string) {
	directive := actionDirectives[sess.NextAction]
	if directive == "" {
		directive = actionDirectives[domain.ActionStandardFlow]
	}
	system = fmt.Sprintf(`%s

You are conducting a %s interview, currently in the %s stage. %s Target the
%q dimension without naming it to the candidate. Ask exactly one question and
reply with the question text only.`,
		b.personaStyle(sess), sess.InterviewType, sess.Stage, directive, sess.TargetMetric)

	var sb strings.Builder
	if sess.JobDescription != "" {
		fmt.Fprintf(&sb, "Job description:\n%s\n\n", sess.JobDescription)
	}
	fmt.Fprintf(&sb, "Conversation so far:\n%s\n\nGenerate the next question.", b.historyBlock(sess))
	return system, sb.String()
}

// FeedbackPrompts renders the one-sentence coaching feedback request.
func (b *PromptBuilder) FeedbackPrompts(sess *domain.Session, focus, answer string) (system, user string) {
	system = fmt.Sprintf(`%s

You are giving the candidate one sentence of real-time coaching after their
answer. Be encouraging and specific. Reply with a single sentence only.`,
		b.personaStyle(sess))

	user = fmt.Sprintf("The candidate's weakest area so far is %q.\n\nTheir latest answer:\n%s\n\nGive one sentence of coaching feedback.", focus, answer)
	return system, user
}

// ReportPrompts renders the final report request over the whole transcript.
func (b *PromptBuilder) ReportPrompts(sess *domain.Session, reason string) (system, user string) {
	system = fmt.Sprintf(`You are writing the final report for a completed %s interview. Respond with
a single JSON object and nothing else, using exactly this shape:
{
  "performance_summary": "<2-4 sentence narrative>",
  "key_strengths": ["..."],
  "areas_for_improvement": ["..."],
  "improvement_recommendations": ["..."],
  "overall_assessment": "Recommended" | "Borderline - Needs Follow-up" | "Not Recommended",
  "confidence_score": <integer 0-100>,
  "hiring_recommendation": "<one sentence>"
}`, sess.InterviewType)

	var sb strings.Builder
	sb.WriteString("Write the final report for this interview.\n\n")
	fmt.Fprintf(&sb, "Completion reason: %s\n", reason)
	if sess.AverageScore != nil {
		fmt.Fprintf(&sb, "Average per-turn score: %.1f\n", *sess.AverageScore)
	}
	if len(sess.FlatScores) > 0 {
		sb.WriteString("Per-dimension scores (0-100):\n")
		for _, m := range sess.Metrics {
			if v, ok := sess.FlatScores[m.Name]; ok {
				fmt.Fprintf(&sb, "- %s: %.1f\n", m.Name, v)
			}
		}
	}
	fmt.Fprintf(&sb, "\nTranscript:\n%s\n", b.historyBlock(sess))
	return system, sb.String()
}
