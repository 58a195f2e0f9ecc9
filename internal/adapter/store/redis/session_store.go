// Package redis implements the live session store on Redis. Sessions are
// stored as JSON under a TTL; the TTL is refreshed on every save so active
// interviews never expire mid-conversation.
package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/elevice/ai-interviewer/internal/domain"
)

const keyPrefix = "interview:session:"

// SessionStore implements domain.SessionStore.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore wires a session store. A non-positive ttl disables expiry.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Save marshals the session and resets its TTL.
func (s *SessionStore) Save(ctx domain.Context, sess *domain.Session) error {
	tr := otel.Tracer("store.redis")
	ctx, span := tr.Start(ctx, "session.save", trace.WithAttributes())
	defer span.End()

	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("op=session_store.save: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=session_store.save: %w", err)
	}
	return nil
}

// Get loads a session by id.
func (s *SessionStore) Get(ctx domain.Context, id string) (*domain.Session, error) {
	tr := otel.Tracer("store.redis")
	ctx, span := tr.Start(ctx, "session.get")
	defer span.End()

	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("op=session_store.get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("op=session_store.get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("op=session_store.get: decode: %w", err)
	}
	return &sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx domain.Context, id string) error {
	tr := otel.Tracer("store.redis")
	ctx, span := tr.Start(ctx, "session.delete")
	defer span.End()

	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("op=session_store.delete: %w", err)
	}
	return nil
}

// Ping reports store connectivity for readiness checks.
func (s *SessionStore) Ping(ctx domain.Context) error {
	return s.rdb.Ping(ctx).Err()
}
