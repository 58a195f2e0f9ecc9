package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevice/ai-interviewer/internal/adapter/repo/postgres"
	"github.com/elevice/ai-interviewer/internal/domain"
)

func TestTurnRepo_Append(t *testing.T) {
	t.Parallel()
	pool := &poolStub{}
	repo := postgres.NewTurnRepo(pool)

	score := 68
	turn := domain.Turn{
		ID:        "01HTURN",
		SessionID: "sess-1",
		Index:     1,
		Question:  "Tell me about a project.",
		Answer:    "I built a billing system.",
		Score:     &score,
		Metrics:   map[string]float64{"technical_acumen": 62.5},
		Feedback:  "Good detail.",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Append(context.Background(), turn))
	assert.Contains(t, pool.lastSQL, "INSERT INTO turns")

	// Metrics serialized as JSON.
	var metrics map[string]float64
	require.NoError(t, json.Unmarshal(pool.lastArgs[6].([]byte), &metrics))
	assert.InDelta(t, 62.5, metrics["technical_acumen"], 1e-9)

	pool.execErr = assert.AnError
	err := repo.Append(context.Background(), turn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=turn.append")
}

func TestTurnRepo_ListBySession(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	makeRow := func(id string, index int) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			*(dest[1].(*string)) = "sess-1"
			*(dest[2].(*int)) = index
			*(dest[3].(*string)) = "q"
			*(dest[4].(*string)) = "a"
			score := 60
			*(dest[5].(**int)) = &score
			*(dest[6].(*[]byte)) = []byte(`{"communication": 50}`)
			*(dest[7].(*string)) = "fine"
			*(dest[8].(**float64)) = nil
			*(dest[9].(*time.Time)) = now
			return nil
		}
	}
	pool := &poolStub{rows: &rowsStub{rows: []func(dest ...any) error{
		makeRow("t1", 1),
		makeRow("t2", 2),
	}}}
	repo := postgres.NewTurnRepo(pool)

	turns, err := repo.ListBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 1, turns[0].Index)
	assert.Equal(t, 2, turns[1].Index)
	assert.InDelta(t, 50.0, turns[0].Metrics["communication"], 1e-9)
}

func TestTurnRepo_ListQueryError(t *testing.T) {
	t.Parallel()
	pool := &poolStub{queryErr: assert.AnError}
	repo := postgres.NewTurnRepo(pool)

	_, err := repo.ListBySession(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=turn.list")
}
