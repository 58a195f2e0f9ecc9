// Package stub implements a deterministic LLM client for development and
// tests so the service runs without upstream credentials.
package stub

import (
	"strings"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// Client returns canned completions. JSON-mode calls get a neutral scoring
// object covering the default rubric; free-text calls get a generic question.
type Client struct{}

// New constructs the stub client.
func New() *Client { return &Client{} }

// Name identifies the backend.
func (c *Client) Name() string { return "stub" }

// Healthy always succeeds.
func (c *Client) Healthy(_ domain.Context) error { return nil }

// Complete returns deterministic content. The userPrompt is inspected only to
// distinguish report requests from scoring requests.
func (c *Client) Complete(_ domain.Context, _, userPrompt string, jsonMode bool, _ int) (string, error) {
	if !jsonMode {
		return "Can you walk me through a recent project you are proud of?", nil
	}
	if strings.Contains(strings.ToLower(userPrompt), "final report") {
		return `{
  "performance_summary": "The candidate gave consistent answers across the interview.",
  "key_strengths": ["Clear communication"],
  "areas_for_improvement": ["More depth on system design"],
  "improvement_recommendations": ["Practice architecture walkthroughs"],
  "overall_assessment": "Borderline - Needs Follow-up",
  "confidence_score": 60,
  "hiring_recommendation": "Proceed to a follow-up technical round."
}`, nil
	}
	return `{
  "overall_score": 70,
  "metrics": {"technical_acumen": 3.5, "problem_solving": 3.5, "communication": 4.0, "experience_relevance": 3.5},
  "granular_justifications": {
    "technical_acumen": {"score": 3.5, "justification": "Reasonable depth.", "strengths": ["Concrete examples"], "areas_for_improvement": ["More detail on trade-offs"]}
  },
  "turn_feedback": "Good answer; consider quantifying the impact.",
  "recommended_follow_up_areas": ["system design"]
}`, nil
}
