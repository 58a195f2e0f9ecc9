// Command server starts the AI interviewer HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	ai "github.com/elevice/ai-interviewer/internal/adapter/ai"
	"github.com/elevice/ai-interviewer/internal/adapter/ai/openrouter"
	"github.com/elevice/ai-interviewer/internal/adapter/ai/stub"
	httpserver "github.com/elevice/ai-interviewer/internal/adapter/httpserver"
	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/adapter/queue/redpanda"
	"github.com/elevice/ai-interviewer/internal/adapter/repo/postgres"
	redisstore "github.com/elevice/ai-interviewer/internal/adapter/store/redis"
	"github.com/elevice/ai-interviewer/internal/app"
	"github.com/elevice/ai-interviewer/internal/config"
	"github.com/elevice/ai-interviewer/internal/domain"
	"github.com/elevice/ai-interviewer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	interviewRepo := postgres.NewInterviewRepo(pool)
	turnRepo := postgres.NewTurnRepo(pool)
	reportRepo := postgres.NewReportRepo(pool)

	// Session store (Redis)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	sessionStore := redisstore.NewSessionStore(rdb, cfg.SessionTTL)

	// Event publisher (Redpanda producer)
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close event producer", slog.Any("error", err))
		}
	}()

	// LLM backends, ranked. The stub keeps dev environments working without
	// upstream credentials.
	var engines []domain.LLMClient
	if cfg.OpenRouterAPIKey != "" {
		engines = append(engines, openrouter.New(cfg, openrouter.Options{
			Name:    "openrouter",
			BaseURL: cfg.OpenRouterBaseURL,
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.OpenRouterModel,
			Referer: cfg.OpenRouterReferer,
			Title:   cfg.OpenRouterTitle,
		}))
	}
	if cfg.SecondaryEnabled() {
		engines = append(engines, openrouter.New(cfg, openrouter.Options{
			Name:    "secondary",
			BaseURL: cfg.SecondaryBaseURL,
			APIKey:  cfg.SecondaryAPIKey,
			Model:   cfg.SecondaryModel,
		}))
	}
	if len(engines) == 0 {
		if cfg.IsProd() {
			slog.Error("no LLM backend configured")
			os.Exit(1)
		}
		slog.Warn("no LLM backend configured; using deterministic stub")
		engines = append(engines, stub.New())
	}

	// Prompt plumbing and interview components
	personas, err := usecase.LoadPersonas()
	if err != nil {
		slog.Error("persona catalog load failed", slog.Any("error", err))
		os.Exit(1)
	}
	cleaner := ai.NewResponseCleaner()
	prompts := usecase.NewPromptBuilder(personas, ai.NewTokenCounter(), cfg.PromptHistoryTokenBudget)

	sessions := usecase.NewSessionService(
		engines,
		sessionStore,
		interviewRepo,
		turnRepo,
		reportRepo,
		producer,
		personas,
		usecase.NewScoringEngine(prompts, cleaner),
		usecase.NewMetricSelector(),
		usecase.NewQuestionGenerator(prompts, cleaner),
		usecase.NewFeedbackGenerator(prompts, cleaner),
		usecase.NewReportGenerator(prompts, cleaner),
		cfg.DefaultMaxQuestions,
	)

	// Readiness checks
	dbCheck, storeCheck := app.BuildReadinessChecks(pool, sessionStore)

	// HTTP server
	srv := httpserver.NewServer(cfg, sessions, dbCheck, storeCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
