package usecase

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// MetricSelector chooses which rubric dimension the next question targets.
// Selection is a single weighted random draw biased toward weak dimensions,
// with decay for dimensions that have already been probed repeatedly.
type MetricSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMetricSelector creates a selector seeded from the clock.
func NewMetricSelector() *MetricSelector {
	return NewMetricSelectorWithSeed(time.Now().UnixNano())
}

// NewMetricSelectorWithSeed creates a selector with a fixed seed, for tests.
func NewMetricSelectorWithSeed(seed int64) *MetricSelector {
	return &MetricSelector{rng: rand.New(rand.NewSource(seed))}
}

// selectionWeight maps a flat score band onto a draw weight. Unscored
// dimensions count as zero and land in the heaviest band.
func selectionWeight(score float64) float64 {
	switch {
	case score <= 20:
		return 10.0
	case score <= 40:
		return 5.0
	case score <= 60:
		return 2.0
	case score <= 80:
		return 0.5
	default:
		return 0.1
	}
}

// probeDecay shrinks a dimension's weight after it has been targeted more
// than twice, so the interview does not fixate on one weakness.
const probeDecay = 0.3

// SelectTarget picks the dimension the next question should probe and
// increments its weakness tracking counter. Before any answer has been
// scored the first configured dimension is chosen deterministically.
func (s *MetricSelector) SelectTarget(sess *domain.Session) string {
	if len(sess.Metrics) == 0 {
		return ""
	}
	if sess.WeaknessTracking == nil {
		sess.WeaknessTracking = make(map[string]int)
	}

	var target string
	if len(sess.FlatScores) == 0 {
		target = sess.Metrics[0].Name
	} else {
		names := make([]string, len(sess.Metrics))
		weights := make([]float64, len(sess.Metrics))
		var total float64
		for i, m := range sess.Metrics {
			w := selectionWeight(sess.FlatScores[m.Name])
			if sess.WeaknessTracking[m.Name] > 2 {
				w *= probeDecay
			}
			names[i] = m.Name
			weights[i] = w
			total += w
		}
		target = s.draw(names, weights, total)
	}

	sess.WeaknessTracking[target]++
	sess.TargetMetric = target
	return target
}

func (s *MetricSelector) draw(names []string, weights []float64, total float64) string {
	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	for i, w := range weights {
		r -= w
		if r < 0 {
			return names[i]
		}
	}
	return names[len(names)-1]
}

// actionStrategies maps rubric dimensions onto question strategies.
var actionStrategies = map[string]string{
	"technical_acumen":     domain.ActionTechnicalDeepDive,
	"problem_solving":      domain.ActionProblemSolving,
	"communication":        domain.ActionBehavioral,
	"experience_relevance": domain.ActionBehavioral,
	"leadership":           domain.ActionBehavioral,
	"system_design":        domain.ActionSystemDesign,
	"coding_skills":        domain.ActionTechnicalDeepDive,
}

// NextAction derives the question strategy for the selected target, applying
// the stage and end-of-interview overrides.
func (s *MetricSelector) NextAction(sess *domain.Session, target string) string {
	// Wind down when within two questions of the cap.
	if sess.QuestionCount >= sess.MaxQuestions-2 {
		return domain.ActionClosing
	}
	// Early questions stay on the standard script.
	if sess.Stage == domain.StageOpening && sess.QuestionCount <= 2 {
		return domain.ActionStandardFlow
	}

	action, ok := actionStrategies[target]
	if !ok {
		action = domain.ActionStandardFlow
	}
	// Senior roles get system design instead of a plain deep dive.
	if target == "technical_acumen" && strings.Contains(strings.ToLower(sess.InterviewType), "senior") {
		action = domain.ActionSystemDesign
	}
	return action
}
