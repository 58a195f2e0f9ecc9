// Package domain contains core entities, sentinel errors, and ports for the
// interview orchestration service.
package domain

import (
	"context"
	"errors"
	"time"
)

// Context is an alias to the standard context.Context for brevity in ports.
type Context = context.Context

// Sentinel errors used across the service. Adapters map these to transport
// codes; usecases wrap them with op= prefixes.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrGeneration        = errors.New("generation failed")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limited")
	ErrInternal          = errors.New("internal error")
)

// Stage identifies where the interview currently is. Stages are derived from
// the number of questions asked, never stored independently of it, except for
// the terminal Completed stage.
type Stage string

// Interview stages in progression order.
const (
	StageOpening    Stage = "opening"
	StageTechnical  Stage = "technical"
	StageBehavioral Stage = "behavioral"
	StageClosing    Stage = "closing"
	StageCompleted  Stage = "completed"
)

// StageForCount maps a question count onto the stage progression.
func StageForCount(questionCount int) Stage {
	switch {
	case questionCount <= 2:
		return StageOpening
	case questionCount <= 6:
		return StageTechnical
	case questionCount <= 8:
		return StageBehavioral
	default:
		return StageClosing
	}
}

// Interviewer action strategies produced by the metric selector.
const (
	ActionTechnicalDeepDive = "ask_technical_deep_dive"
	ActionProblemSolving    = "ask_problem_solving"
	ActionBehavioral        = "ask_behavioral_question"
	ActionSystemDesign      = "ask_system_design"
	ActionClosing           = "ask_closing_question"
	ActionStandardFlow      = "continue_standard_flow"
)

// WeightedMetric is one rubric dimension the interview evaluates.
// Weight is the metric's share of the composite rubric (0..1); Threshold is
// the normalized score treated as good enough for that dimension.
type WeightedMetric struct {
	Name         string   `json:"name" yaml:"name"`
	Weight       float64  `json:"weight" yaml:"weight"`
	Threshold    float64  `json:"threshold" yaml:"threshold"`
	CurrentScore *float64 `json:"current_score,omitempty" yaml:"-"`
}

// DefaultMetrics returns the rubric used when the caller supplies none.
func DefaultMetrics() []WeightedMetric {
	return []WeightedMetric{
		{Name: "technical_acumen", Weight: 0.35, Threshold: 75.0},
		{Name: "problem_solving", Weight: 0.25, Threshold: 70.0},
		{Name: "communication", Weight: 0.20, Threshold: 80.0},
		{Name: "experience_relevance", Weight: 0.20, Threshold: 70.0},
	}
}

// GranularScore is the latest detailed assessment of a single metric.
type GranularScore struct {
	Score               float64   `json:"score"`
	Justification       string    `json:"justification"`
	Strengths           []string  `json:"strengths,omitempty"`
	AreasForImprovement []string  `json:"areas_for_improvement,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// QuestionAnswerPair is one exchange in the interview transcript.
// Score and Metrics are attached after scoring; DurationSeconds is optional
// and only present when the caller reported how long the answer took.
type QuestionAnswerPair struct {
	Question        string             `json:"question"`
	Answer          string             `json:"answer"`
	AskedAt         time.Time          `json:"asked_at"`
	Score           *int               `json:"score,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Feedback        string             `json:"feedback,omitempty"`
	DurationSeconds *float64           `json:"duration_seconds,omitempty"`
}

// Session is the full mutable state of one interview. It is owned by the
// session store between turns; the orchestrator mutates it only inside
// Start, Turn, and End.
type Session struct {
	ID             string           `json:"id"`
	InterviewType  string           `json:"interview_type"`
	JobDescription string           `json:"job_description,omitempty"`
	Persona        string           `json:"persona"`
	Engine         string           `json:"engine"`
	Metrics        []WeightedMetric `json:"metrics"`
	MaxQuestions   int              `json:"max_questions"`

	Stage            Stage                    `json:"stage"`
	CurrentQuestion  string                   `json:"current_question"`
	QuestionCount    int                      `json:"question_count"`
	Complete         bool                     `json:"complete"`
	CompletionReason string                   `json:"completion_reason,omitempty"`
	AverageScore     *float64                 `json:"average_score,omitempty"`
	History          []QuestionAnswerPair     `json:"history"`
	FlatScores       map[string]float64       `json:"flat_scores"`
	GranularScores   map[string]GranularScore `json:"granular_scores"`
	MetricHistory    map[string][]float64     `json:"metric_history"`
	WeaknessTracking map[string]int           `json:"weakness_tracking"`
	TargetMetric     string                   `json:"target_metric,omitempty"`
	NextAction       string                   `json:"next_action,omitempty"`
	Summary          string                   `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetricNames returns the configured rubric dimension names in order.
func (s *Session) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for _, m := range s.Metrics {
		names = append(names, m.Name)
	}
	return names
}

// ScoringResult is the outcome of evaluating a single answer. RawMetrics are
// on the model's 1..5 scale; normalization to 0..100 happens in the tracker.
type ScoringResult struct {
	OverallScore  int                      `json:"overall_score"`
	RawMetrics    map[string]float64       `json:"metrics"`
	Granular      map[string]GranularScore `json:"granular_justifications"`
	TurnFeedback  string                   `json:"turn_feedback"`
	FollowUpAreas []string                 `json:"recommended_follow_up_areas,omitempty"`
	Fallback      bool                     `json:"-"`
}

// NormalizeScore maps a raw 1..5 rubric score onto the 0..100 scale used for
// tracking and completion decisions. Out-of-range inputs are clamped.
func NormalizeScore(raw float64) float64 {
	if raw < 1 {
		raw = 1
	}
	if raw > 5 {
		raw = 5
	}
	return (raw - 1) / 4 * 100
}

// FinalReport is the structured outcome document produced when an interview
// completes or is ended by the caller.
type FinalReport struct {
	SessionID            string             `json:"session_id"`
	CompletionReason     string             `json:"completion_reason"`
	TotalQuestions       int                `json:"total_questions"`
	AverageScore         float64            `json:"average_score"`
	MetricScores         map[string]float64 `json:"metric_scores"`
	PerformanceSummary   string             `json:"performance_summary"`
	KeyStrengths         []string           `json:"key_strengths"`
	AreasForImprovement  []string           `json:"areas_for_improvement"`
	Recommendations      []string           `json:"improvement_recommendations"`
	OverallAssessment    string             `json:"overall_assessment"`
	ConfidenceScore      int                `json:"confidence_score"`
	HiringRecommendation string             `json:"hiring_recommendation"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// Overall assessment values emitted in final reports.
const (
	AssessmentRecommended    = "Recommended"
	AssessmentBorderline     = "Borderline - Needs Follow-up"
	AssessmentNotRecommended = "Not Recommended"
)

// Turn is the persisted record of one finalized exchange.
type Turn struct {
	ID              string             `json:"id"`
	SessionID       string             `json:"session_id"`
	Index           int                `json:"index"`
	Question        string             `json:"question"`
	Answer          string             `json:"answer"`
	Score           *int               `json:"score,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Feedback        string             `json:"feedback,omitempty"`
	DurationSeconds *float64           `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Interview is the durable summary row for a session.
type Interview struct {
	ID               string     `json:"id"`
	InterviewType    string     `json:"interview_type"`
	Persona          string     `json:"persona"`
	JobDescription   string     `json:"job_description,omitempty"`
	MaxQuestions     int        `json:"max_questions"`
	Status           string     `json:"status"`
	CompletionReason string     `json:"completion_reason,omitempty"`
	AverageScore     *float64   `json:"average_score,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Interview status values.
const (
	InterviewActive    = "active"
	InterviewCompleted = "completed"
)

// TurnEvent is published after every finalized exchange.
type TurnEvent struct {
	SessionID    string    `json:"session_id"`
	TurnIndex    int       `json:"turn_index"`
	Stage        Stage     `json:"stage"`
	OverallScore *int      `json:"overall_score,omitempty"`
	Complete     bool      `json:"complete"`
	EmittedAt    time.Time `json:"emitted_at"`
}

// CompletedEvent is published once when an interview reaches a terminal state.
type CompletedEvent struct {
	SessionID        string    `json:"session_id"`
	CompletionReason string    `json:"completion_reason"`
	TotalQuestions   int       `json:"total_questions"`
	AverageScore     float64   `json:"average_score"`
	EmittedAt        time.Time `json:"emitted_at"`
}

// LLMClient is the port for a chat-completion backend. Implementations must
// honor ctx deadlines and return ErrUpstreamTimeout / ErrUpstreamRateLimit /
// ErrGeneration wrapped errors so callers can decide on fallbacks.
type LLMClient interface {
	// Complete returns the model's text for the given prompts. When jsonMode
	// is true the response is expected to be a single JSON object.
	Complete(ctx Context, systemPrompt, userPrompt string, jsonMode bool, maxTokens int) (string, error)
	// Name identifies the backend so sessions can re-resolve it across turns.
	Name() string
	// Healthy reports whether the backend is usable right now.
	Healthy(ctx Context) error
}

// SessionStore holds live session state between turns.
type SessionStore interface {
	Save(ctx Context, s *Session) error
	Get(ctx Context, id string) (*Session, error)
	Delete(ctx Context, id string) error
}

// InterviewRepository persists durable interview summary rows.
type InterviewRepository interface {
	Create(ctx Context, iv Interview) error
	MarkCompleted(ctx Context, id, reason string, averageScore float64, at time.Time) error
	Get(ctx Context, id string) (Interview, error)
}

// TurnRepository appends finalized exchanges in order.
type TurnRepository interface {
	Append(ctx Context, t Turn) error
	ListBySession(ctx Context, sessionID string) ([]Turn, error)
}

// ReportRepository stores the final report exactly once per session.
type ReportRepository interface {
	Store(ctx Context, r FinalReport) error
	GetBySession(ctx Context, sessionID string) (FinalReport, error)
}

// EventPublisher emits interview lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishTurnFinalized(ctx Context, ev TurnEvent) error
	PublishInterviewCompleted(ctx Context, ev CompletedEvent) error
}
