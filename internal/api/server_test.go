package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/monitor"
)

type stubRunner struct {
	results map[string]feed.RoundResult
}

func (r *stubRunner) RunRound(_ context.Context, sources map[string]feed.Descriptor, _ int) map[string]feed.RoundResult {
	out := make(map[string]feed.RoundResult, len(sources))
	for key := range sources {
		out[key] = r.results[key]
	}
	return out
}

type stubRefresher struct{ calls int }

func (r *stubRefresher) RefreshAll(context.Context) { r.calls++ }

func newTestServer(t *testing.T) (*Server, *stubRefresher) {
	t.Helper()
	runner := &stubRunner{results: map[string]feed.RoundResult{
		"bulletin": {Items: []feed.Item{
			{Title: "Storm warning", Timestamp: time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)},
		}},
		"alerts": {Items: []feed.Item{
			{Title: "Tornado Warning", Region: "Texas", Bucket: "Tornado Warning",
				Timestamp: time.Date(2026, 8, 10, 7, 0, 0, 0, time.UTC)},
		}},
	}}
	session := monitor.NewSession(monitor.Config{
		Sources: []feed.Descriptor{
			{Key: "bulletin", Kind: feed.KindScalar, Type: "bulletin", Label: "Bulletin", URL: "https://example.org/b"},
			{Key: "alerts", Kind: feed.KindKeyed, Type: "alerts_api", Label: "Alerts", URL: "https://example.org/a"},
		},
		Runner: runner,
	})
	session.RefreshAll(context.Background())

	refresher := &stubRefresher{}
	return NewServer(session, refresher, prometheus.NewRegistry(), zaptest.NewLogger(t)), refresher
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ready")
}

func TestListFeeds(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/feeds/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Feeds []struct {
			Key   string `json:"key"`
			Kind  string `json:"kind"`
			Total int    `json:"total"`
			New   int    `json:"new"`
			Open  bool   `json:"open"`
		} `json:"feeds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Feeds, 2)
	require.Equal(t, "bulletin", resp.Feeds[0].Key)
	require.Equal(t, 1, resp.Feeds[0].Total)
	require.Equal(t, 1, resp.Feeds[0].New, "everything is new before any commit")
	require.False(t, resp.Feeds[0].Open)
}

func TestGetFeed(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/feeds/alerts/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Key       string         `json:"key"`
		PerSubKey map[string]int `json:"new_per_subkey"`
		Items     []struct {
			Title  string `json:"title"`
			Region string `json:"region"`
			New    bool   `json:"new"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "alerts", detail.Key)
	require.Len(t, detail.Items, 1)
	require.Equal(t, "Texas", detail.Items[0].Region)
	require.True(t, detail.Items[0].New, "uncommitted items are flagged new")
	require.Equal(t, 1, detail.PerSubKey["Texas|Tornado Warning"])

	// Marking the feed seen clears the per-item flags.
	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/alerts/seen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, s, http.MethodGet, "/v1/feeds/alerts/", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.False(t, detail.Items[0].New)

	rec = doRequest(t, s, http.MethodGet, "/v1/feeds/nope/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenCloseSeen(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	// Keyed sources require a sub-key in the body.
	rec := doRequest(t, s, http.MethodPost, "/v1/feeds/alerts/open", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/alerts/open", `{"subkey":"Texas|Tornado Warning"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/feeds/alerts/", "")
	require.Contains(t, rec.Body.String(), `"open":true`)

	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/alerts/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/feeds/alerts/", "")
	require.Contains(t, rec.Body.String(), `"open":false`)

	// Scalar sources open without a body.
	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/bulletin/open", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/bulletin/seen", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/feeds/nope/open", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	s, refresher := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, refresher.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "feedwatch_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	session := monitor.NewSession(monitor.Config{Runner: &stubRunner{}})
	s := NewServer(session, nil, reg, zaptest.NewLogger(t))

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "feedwatch_test_total 1")
}
