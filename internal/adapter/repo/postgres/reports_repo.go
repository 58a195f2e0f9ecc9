package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// ReportRepo stores final reports, one per session. The report body is kept
// as JSONB; the insert is idempotent so a retried finalization never
// overwrites an existing report.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Store inserts the report if none exists for the session yet.
func (r *ReportRepo) Store(ctx domain.Context, rep domain.FinalReport) error {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Store")
	defer span.End()

	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("op=report.store: encode: %w", err)
	}
	q := `INSERT INTO reports (session_id, body, created_at) VALUES ($1,$2,$3)
	      ON CONFLICT (session_id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, rep.SessionID, body, rep.GeneratedAt); err != nil {
		return fmt.Errorf("op=report.store: %w", err)
	}
	return nil
}

// GetBySession loads the report for a session.
func (r *ReportRepo) GetBySession(ctx domain.Context, sessionID string) (domain.FinalReport, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.GetBySession")
	defer span.End()

	q := `SELECT body FROM reports WHERE session_id=$1`
	var body []byte
	if err := r.Pool.QueryRow(ctx, q, sessionID).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FinalReport{}, fmt.Errorf("op=report.get: %w", domain.ErrNotFound)
		}
		return domain.FinalReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	var rep domain.FinalReport
	if err := json.Unmarshal(body, &rep); err != nil {
		return domain.FinalReport{}, fmt.Errorf("op=report.get: decode: %w", err)
	}
	return rep, nil
}
