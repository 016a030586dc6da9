package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTransitions(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())

	m.SetError("upstream down")
	assert.False(t, m.Healthy())

	snap := m.Snapshot()
	assert.Equal(t, false, snap["is_healthy"])
	assert.Equal(t, "upstream down", snap["last_error"])

	m.SetLastRun()
	assert.True(t, m.Healthy())
	assert.Equal(t, true, m.Snapshot()["is_healthy"])
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.ArticlesFetched.Add(3)
	m.RunsTotal.WithLabelValues("ok").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "brief_articles_fetched_total 3")
	assert.Contains(t, body, `brief_pipeline_runs_total{status="ok"} 1`)
}
