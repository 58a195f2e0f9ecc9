package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elevice/ai-interviewer/internal/adapter/ai"
)

func TestTokenCounter_Count(t *testing.T) {
	t.Parallel()
	tc := ai.NewTokenCounter()

	assert.Equal(t, 0, tc.Count(""))
	assert.Greater(t, tc.Count("short"), 0)

	long := tc.Count("Tell me about a time you had to debug a production incident under pressure.")
	short := tc.Count("Tell me.")
	assert.Greater(t, long, short)
}
