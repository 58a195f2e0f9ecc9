package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/elevice/ai-interviewer/internal/domain"
)

// InterviewRepo persists interview summary rows.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

// Create inserts a new interview row.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()

	q := `INSERT INTO interviews (id, interview_type, persona, job_description, max_questions, status, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, iv.ID, iv.InterviewType, iv.Persona, iv.JobDescription, iv.MaxQuestions, iv.Status, iv.CreatedAt)
	if err != nil {
		return fmt.Errorf("op=interview.create: %w", err)
	}
	return nil
}

// MarkCompleted moves an interview to its terminal status.
func (r *InterviewRepo) MarkCompleted(ctx domain.Context, id, reason string, averageScore float64, at time.Time) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.MarkCompleted")
	defer span.End()

	q := `UPDATE interviews SET status=$2, completion_reason=$3, average_score=$4, completed_at=$5 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, domain.InterviewCompleted, reason, averageScore, at)
	if err != nil {
		return fmt.Errorf("op=interview.mark_completed: %w", err)
	}
	return nil
}

// Get loads an interview by id.
func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()

	q := `SELECT id, interview_type, persona, COALESCE(job_description,''), max_questions, status,
	             COALESCE(completion_reason,''), average_score, created_at, completed_at
	      FROM interviews WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var iv domain.Interview
	if err := row.Scan(&iv.ID, &iv.InterviewType, &iv.Persona, &iv.JobDescription, &iv.MaxQuestions,
		&iv.Status, &iv.CompletionReason, &iv.AverageScore, &iv.CreatedAt, &iv.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return iv, nil
}
