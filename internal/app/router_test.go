package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/elevice/ai-interviewer/internal/adapter/httpserver"
	"github.com/elevice/ai-interviewer/internal/config"
)

func TestParseOrigins(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"*"}, ParseOrigins(""))
	assert.Equal(t, []string{"*"}, ParseOrigins("*"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"},
		ParseOrigins(" https://a.example, https://b.example "))
	assert.Equal(t, []string{"*"}, ParseOrigins(" , "))
}

func TestBuildRouterHealthAndHeaders(t *testing.T) {
	t.Parallel()
	cfg := config.Config{CORSAllowOrigins: "*", RateLimitPerMin: 60}
	h := BuildRouter(cfg, &httpserver.Server{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestBuildRouterMetricsEndpoint(t *testing.T) {
	t.Parallel()
	cfg := config.Config{CORSAllowOrigins: "*", RateLimitPerMin: 60}
	h := BuildRouter(cfg, &httpserver.Server{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestBuildReadinessChecks(t *testing.T) {
	t.Parallel()
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial failed") })

	dbCheck, storeCheck := BuildReadinessChecks(ok, down)
	require.NoError(t, dbCheck(context.Background()))
	require.Error(t, storeCheck(context.Background()))

	dbCheck, storeCheck = BuildReadinessChecks(nil, nil)
	require.Error(t, dbCheck(context.Background()))
	require.Error(t, storeCheck(context.Background()))
}
