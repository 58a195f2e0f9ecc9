package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/elevice/ai-interviewer/internal/config"
	"github.com/elevice/ai-interviewer/internal/domain"
	"github.com/elevice/ai-interviewer/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Sessions   *usecase.SessionService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, sessions *usecase.SessionService, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Sessions: sessions, DBCheck: dbCheck, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type metricRequest struct {
	Name      string  `json:"name" validate:"required"`
	Weight    float64 `json:"weight" validate:"gt=0,lte=1"`
	Threshold float64 `json:"threshold" validate:"gte=0,lte=100"`
}

type startRequest struct {
	InterviewType  string          `json:"interview_type" validate:"required,max=200"`
	JobDescription string          `json:"job_description" validate:"max=5000"`
	Persona        string          `json:"persona" validate:"max=100"`
	MaxQuestions   int             `json:"max_questions" validate:"gte=0,lte=50"`
	Metrics        []metricRequest `json:"metrics" validate:"omitempty,max=10,dive"`
}

type turnRequest struct {
	Answer          string   `json:"answer" validate:"required,max=20000"`
	DurationSeconds *float64 `json:"duration_seconds" validate:"omitempty,gt=0"`
}

type endRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// StartHandler creates a new interview session.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		in := usecase.StartInput{
			InterviewType:  req.InterviewType,
			JobDescription: req.JobDescription,
			Persona:        req.Persona,
			MaxQuestions:   req.MaxQuestions,
		}
		for _, m := range req.Metrics {
			in.Metrics = append(in.Metrics, domain.WeightedMetric{
				Name:      m.Name,
				Weight:    m.Weight,
				Threshold: m.Threshold,
			})
		}
		out, err := s.Sessions.Start(r.Context(), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id":     out.SessionID,
			"first_question": out.FirstQuestion,
			"stage":          out.Stage,
			"max_questions":  out.MaxQuestions,
		})
	}
}

// TurnHandler processes one candidate answer.
func (s *Server) TurnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		var req turnRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		out, err := s.Sessions.Turn(r.Context(), usecase.TurnInput{
			SessionID:       id,
			Answer:          req.Answer,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := map[string]any{
			"session_id":     out.SessionID,
			"feedback":       out.Feedback,
			"overall_score":  out.OverallScore,
			"question_count": out.QuestionCount,
			"stage":          out.Stage,
			"complete":       out.Complete,
		}
		if out.Complete {
			resp["completion_reason"] = out.CompletionReason
			resp["summary"] = out.Summary
		} else {
			resp["next_question"] = out.NextQuestion
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// EndHandler finalizes a session on the caller's request.
func (s *Server) EndHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		var req endRequest
		if r.ContentLength > 0 {
			if !decodeAndValidate(w, r, &req) {
				return
			}
		}
		report, err := s.Sessions.End(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// SessionHandler returns the live session state.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		sess, err := s.Sessions.Session(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// ReportHandler returns the stored final report.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		report, err := s.Sessions.Report(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ReadyzHandler probes the session store and the database.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
