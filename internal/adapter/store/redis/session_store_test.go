package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeredis "github.com/elevice/ai-interviewer/internal/adapter/store/redis"
	"github.com/elevice/ai-interviewer/internal/domain"
)

func newStore(t *testing.T, ttl time.Duration) (*storeredis.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storeredis.NewSessionStore(rdb, ttl), mr
}

func sampleSession() *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	avg := 68.0
	return &domain.Session{
		ID:            "sess-1",
		InterviewType: "backend engineer",
		Persona:       "Technical Lead",
		Engine:        "primary",
		Metrics:       domain.DefaultMetrics(),
		MaxQuestions:  10,
		Stage:         domain.StageTechnical,
		QuestionCount: 3,
		AverageScore:  &avg,
		FlatScores:    map[string]float64{"technical_acumen": 62.5},
		MetricHistory: map[string][]float64{"technical_acumen": {50, 62.5}},
		WeaknessTracking: map[string]int{
			"technical_acumen": 1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	want := sampleSession()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Stage, got.Stage)
	assert.Equal(t, want.QuestionCount, got.QuestionCount)
	require.NotNil(t, got.AverageScore)
	assert.InDelta(t, 68.0, *got.AverageScore, 1e-9)
	assert.Equal(t, want.FlatScores, got.FlatScores)
	assert.Equal(t, want.MetricHistory, got.MetricHistory)
}

func TestSessionStore_GetMissing(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t, time.Hour)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_TTLRefreshedOnSave(t *testing.T) {
	t.Parallel()
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))

	// Half the TTL passes, then a save resets it.
	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Save(ctx, sess))
	mr.FastForward(45 * time.Second)

	_, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)

	// With no further saves the session eventually expires.
	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Idempotent.
	require.NoError(t, store.Delete(ctx, sess.ID))
}

func TestSessionStore_Ping(t *testing.T) {
	t.Parallel()
	store, mr := newStore(t, time.Hour)
	require.NoError(t, store.Ping(context.Background()))
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
