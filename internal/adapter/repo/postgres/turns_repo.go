package postgres

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// TurnRepo appends and lists finalized exchanges. Per-dimension scores are
// stored as JSONB since the rubric is configurable per session.
type TurnRepo struct{ Pool PgxPool }

// NewTurnRepo constructs a TurnRepo with the given pool.
func NewTurnRepo(p PgxPool) *TurnRepo { return &TurnRepo{Pool: p} }

// Append inserts one finalized turn.
func (r *TurnRepo) Append(ctx domain.Context, t domain.Turn) error {
	tracer := otel.Tracer("repo.turns")
	ctx, span := tracer.Start(ctx, "turns.Append")
	defer span.End()

	metrics, err := json.Marshal(t.Metrics)
	if err != nil {
		return fmt.Errorf("op=turn.append: encode metrics: %w", err)
	}
	q := `INSERT INTO turns (id, session_id, turn_index, question, answer, score, metrics, feedback, duration_seconds, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.Pool.Exec(ctx, q, t.ID, t.SessionID, t.Index, t.Question, t.Answer, t.Score, metrics, t.Feedback, t.DurationSeconds, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("op=turn.append: %w", err)
	}
	return nil
}

// ListBySession returns a session's turns in ask order.
func (r *TurnRepo) ListBySession(ctx domain.Context, sessionID string) ([]domain.Turn, error) {
	tracer := otel.Tracer("repo.turns")
	ctx, span := tracer.Start(ctx, "turns.ListBySession")
	defer span.End()

	q := `SELECT id, session_id, turn_index, question, answer, score, metrics, COALESCE(feedback,''), duration_seconds, created_at
	      FROM turns WHERE session_id=$1 ORDER BY turn_index ASC`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=turn.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var metrics []byte
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Index, &t.Question, &t.Answer, &t.Score, &metrics, &t.Feedback, &t.DurationSeconds, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=turn.list: scan: %w", err)
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &t.Metrics); err != nil {
				return nil, fmt.Errorf("op=turn.list: decode metrics: %w", err)
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=turn.list: %w", err)
	}
	return out, nil
}
