package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevice/ai-interviewer/internal/domain"
)

func TestStageForCount(t *testing.T) {
	t.Parallel()
	cases := []struct {
		count int
		want  domain.Stage
	}{
		{0, domain.StageOpening},
		{1, domain.StageOpening},
		{2, domain.StageOpening},
		{3, domain.StageTechnical},
		{6, domain.StageTechnical},
		{7, domain.StageBehavioral},
		{8, domain.StageBehavioral},
		{9, domain.StageClosing},
		{25, domain.StageClosing},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.StageForCount(tc.count), "count=%d", tc.count)
	}
}

func TestNormalizeScore(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.0, domain.NormalizeScore(1.0), 1e-9)
	assert.InDelta(t, 50.0, domain.NormalizeScore(3.0), 1e-9)
	assert.InDelta(t, 100.0, domain.NormalizeScore(5.0), 1e-9)
	assert.InDelta(t, 62.5, domain.NormalizeScore(3.5), 1e-9)
	// Clamped outside the rubric range.
	assert.InDelta(t, 0.0, domain.NormalizeScore(0.2), 1e-9)
	assert.InDelta(t, 100.0, domain.NormalizeScore(9.0), 1e-9)
}

func TestDefaultMetrics(t *testing.T) {
	t.Parallel()
	ms := domain.DefaultMetrics()
	require.Len(t, ms, 4)

	var totalWeight float64
	for _, m := range ms {
		totalWeight += m.Weight
	}
	assert.InDelta(t, 1.0, totalWeight, 1e-9)
	assert.Equal(t, "technical_acumen", ms[0].Name)
}

func TestSessionMetricNames(t *testing.T) {
	t.Parallel()
	s := &domain.Session{Metrics: domain.DefaultMetrics()}
	names := s.MetricNames()
	assert.Equal(t, []string{"technical_acumen", "problem_solving", "communication", "experience_relevance"}, names)
}
