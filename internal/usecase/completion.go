package usecase

import (
	"github.com/elevice/ai-interviewer/internal/domain"
)

// Completion reasons, in evaluation priority order.
const (
	ReasonMaxQuestions    = "maximum questions reached"
	ReasonRubricSaturated = "all rubric targets achieved"
	ReasonStagnation      = "no improvement after repeated targeting"
	ReasonChronicPoor     = "consistently low performance"
	ReasonEndedByCaller   = "ended by caller"
)

// Completion thresholds.
const (
	saturationScore      = 75.0
	saturationMinTurns   = 4
	stagnationWindow     = 3
	stagnationSpread     = 5.0
	stagnationMinProbes  = 3
	stagnationShare      = 0.5
	chronicPoorScore     = 30.0
	chronicPoorMinTurns  = 4
	chronicPoorShare     = 0.6
)

// CompletionEvaluator decides whether an interview should end after a turn.
// Rules are checked in fixed priority order; the first match wins.
type CompletionEvaluator struct{}

// Evaluate returns whether the session is done and why.
func (CompletionEvaluator) Evaluate(sess *domain.Session) (bool, string) {
	if sess.QuestionCount >= sess.MaxQuestions {
		return true, ReasonMaxQuestions
	}
	if rubricSaturated(sess) {
		return true, ReasonRubricSaturated
	}
	if stagnated(sess) {
		return true, ReasonStagnation
	}
	if chronicPoor(sess) {
		return true, ReasonChronicPoor
	}
	return false, ""
}

// rubricSaturated: every configured dimension has been scored and sits at or
// above the saturation bar, after a minimum number of questions.
func rubricSaturated(sess *domain.Session) bool {
	if sess.QuestionCount < saturationMinTurns || len(sess.Metrics) == 0 {
		return false
	}
	for _, m := range sess.Metrics {
		v, ok := sess.FlatScores[m.Name]
		if !ok || v < saturationScore {
			return false
		}
	}
	return true
}

// stagnated: at least half the dimensions have been probed repeatedly with no
// movement in their recent history.
func stagnated(sess *domain.Session) bool {
	if len(sess.Metrics) == 0 {
		return false
	}
	stagnant := 0
	for _, m := range sess.Metrics {
		hist := sess.MetricHistory[m.Name]
		if len(hist) < stagnationWindow || sess.WeaknessTracking[m.Name] < stagnationMinProbes {
			continue
		}
		recent := hist[len(hist)-stagnationWindow:]
		lo, hi := recent[0], recent[0]
		for _, v := range recent[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo < stagnationSpread {
			stagnant++
		}
	}
	return float64(stagnant) >= stagnationShare*float64(len(sess.Metrics))
}

// chronicPoor: everything has been scored, enough questions have been asked,
// and most dimensions remain far below the bar.
func chronicPoor(sess *domain.Session) bool {
	if sess.QuestionCount < chronicPoorMinTurns || len(sess.Metrics) == 0 {
		return false
	}
	poor := 0
	for _, m := range sess.Metrics {
		v, ok := sess.FlatScores[m.Name]
		if !ok {
			return false
		}
		if v < chronicPoorScore {
			poor++
		}
	}
	return float64(poor) >= chronicPoorShare*float64(len(sess.Metrics))
}
