package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/config"
)

func TestSetupLogger(t *testing.T) {
	cfg := config.Config{AppEnv: "dev", OTELServiceName: "ai-interviewer"}
	lg := observability.SetupLogger(cfg)
	require.NotNil(t, lg)
	assert.True(t, lg.Enabled(t.Context(), -4)) // debug enabled in dev
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := observability.SetupTracing(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	h := observability.HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/interviews", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRecorders(t *testing.T) {
	// Recording helpers must not panic on boundary values.
	observability.RecordLLMRequest("openrouter", "ok", 120*time.Millisecond)
	observability.RecordFallback("scoring")
	observability.RecordTurn("continued", 60)
	observability.RecordTurn("completed", -1)
	observability.RecordCompletion("maximum questions reached")
}
