package usecase

import (
	"time"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// MetricTracker folds scoring results into session state. Flat scores hold
// the latest normalized value per dimension, metric history is append-only,
// and granular justifications are overwritten wholesale.
type MetricTracker struct{}

// Apply records one scoring result. Only dimensions configured on the session
// rubric are tracked; anything else the model invented is dropped.
func (MetricTracker) Apply(sess *domain.Session, res domain.ScoringResult, at time.Time) {
	if sess.FlatScores == nil {
		sess.FlatScores = make(map[string]float64)
	}
	if sess.MetricHistory == nil {
		sess.MetricHistory = make(map[string][]float64)
	}
	if sess.GranularScores == nil {
		sess.GranularScores = make(map[string]domain.GranularScore)
	}

	for i := range sess.Metrics {
		name := sess.Metrics[i].Name
		raw, ok := res.RawMetrics[name]
		if !ok {
			continue
		}
		norm := domain.NormalizeScore(raw)
		sess.FlatScores[name] = norm
		sess.MetricHistory[name] = append(sess.MetricHistory[name], norm)
		cur := norm
		sess.Metrics[i].CurrentScore = &cur

		if g, ok := res.Granular[name]; ok {
			g.UpdatedAt = at
			sess.GranularScores[name] = g
		}
	}
}

// RecomputeAverage refreshes the session average as the mean of per-turn
// overall scores. Turns without a score (none today) are skipped.
func (MetricTracker) RecomputeAverage(sess *domain.Session) {
	var sum float64
	var n int
	for _, p := range sess.History {
		if p.Score != nil {
			sum += float64(*p.Score)
			n++
		}
	}
	if n == 0 {
		sess.AverageScore = nil
		return
	}
	avg := sum / float64(n)
	sess.AverageScore = &avg
}

// WeakestMetric returns the dimension with the lowest flat score, used as the
// coaching focus. Returns the first configured dimension when nothing has
// been scored yet.
func (MetricTracker) WeakestMetric(sess *domain.Session) string {
	if len(sess.Metrics) == 0 {
		return ""
	}
	weakest := ""
	lowest := 0.0
	for _, m := range sess.Metrics {
		v, ok := sess.FlatScores[m.Name]
		if !ok {
			continue
		}
		if weakest == "" || v < lowest {
			weakest = m.Name
			lowest = v
		}
	}
	if weakest == "" {
		return sess.Metrics[0].Name
	}
	return weakest
}
