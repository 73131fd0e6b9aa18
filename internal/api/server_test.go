package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "surf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(NewServer(st, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]any
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestPrioritiesEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	var body prioritiesResponse
	resp := getJSON(t, srv.URL+"/api/priorities", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotNil(t, body.Items)
	assert.Empty(t, body.Items)
	assert.Zero(t, body.TotalAnalyzed)
}

func TestPrioritiesWithResults(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)

	id, err := st.InsertFeedback(ctx, models.FeedbackRecord{RawText: "login broken", Source: "email"})
	require.NoError(t, err)
	_, err = st.SavePrioritizedOutput(ctx, models.PriorityItem{
		FeedbackID: id, Rank: 1, Title: "Login broken on Safari",
		Category: models.CategoryBug, Score: 9.1, Team: "Engineering",
		ActionPlan: models.ActionPlan{
			ImmediateAction: "hotfix",
			Timeline:        "1 week",
			SuccessMetric:   "login success rate",
			Dependencies:    "none",
		},
		PreMortemForecast: "~$135K ARR exposure",
	})
	require.NoError(t, err)
	require.NoError(t, st.SaveRunSummary(ctx, models.RunSummary{
		ID: "run-1", TotalAnalyzed: 8, TotalRiskEstimate: "$300K over 90 days",
	}))

	var body prioritiesResponse
	resp := getJSON(t, srv.URL+"/api/priorities", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Login broken on Safari", body.Items[0].Title)
	assert.Equal(t, "hotfix", body.Items[0].ActionPlan.ImmediateAction)
	assert.Equal(t, 8, body.TotalAnalyzed)
	assert.Equal(t, "$300K over 90 days", body.TotalRiskEstimate)
	assert.NotEmpty(t, body.GeneratedAt)
}

func TestStatsEndpoint(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)

	id, err := st.InsertFeedback(ctx, models.FeedbackRecord{RawText: "login broken", Source: "email"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateItemScore(ctx, id, models.CategoryBug, 9.0))
	_, err = st.InsertFeedback(ctx, models.FeedbackRecord{RawText: "dark mode please", Source: "chat"})
	require.NoError(t, err)

	var stats models.Stats
	resp := getJSON(t, srv.URL+"/api/stats", &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, stats.TotalFeedback)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.ByCategory[models.CategoryBug])
	assert.Equal(t, 1, stats.ByPriority["critical"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/priorities", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/priorities", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
