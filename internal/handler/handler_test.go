package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/repo-recommender/server/internal/github"
	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
	"github.com/ahmednasr/repo-recommender/server/internal/service"
)

type stubSearcher struct {
	repos []models.Repository
	err   error
	last  github.SearchQuery
}

func (s *stubSearcher) SearchRepositories(_ context.Context, q github.SearchQuery) ([]models.Repository, error) {
	s.last = q
	return s.repos, s.err
}

type stubStore struct {
	blob []byte
}

func (s *stubStore) Name() string { return "stub" }

func (s *stubStore) Save(_ context.Context, _ string, blob []byte) error {
	s.blob = blob
	return nil
}

func (s *stubStore) Load(_ context.Context) ([]byte, error) {
	if s.blob == nil {
		return nil, goerr.Wrap(recommender.ErrNotFound, "nothing saved")
	}
	return s.blob, nil
}

func (s *stubStore) Ping(_ context.Context) error { return nil }

type stubBreaker string

func (b stubBreaker) State() string { return string(b) }

var candidates = []models.Repository{
	{Name: "gin", Description: "http web framework", URL: "https://github.com/gin-gonic/gin", Stars: 80000, Language: "Go", Topics: []string{"go", "http"}},
	{Name: "echo", Description: "minimalist web framework", URL: "https://github.com/labstack/echo", Stars: 30000, Language: "Go", Topics: []string{"go", "web"}},
	{Name: "chi", Description: "lightweight router", URL: "https://github.com/go-chi/chi", Stars: 18000, Language: "Go", Topics: []string{"go", "router"}},
	{Name: "mux", Description: "request router and dispatcher", URL: "https://github.com/gorilla/mux", Stars: 20000, Language: "Go", Topics: []string{"go", "router"}},
}

type fixture struct {
	search *stubSearcher
	store  *stubStore
	do     func(method, target, body string) (int, map[string]any)
	raw    func(method, target, body string) (int, []byte)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	search := &stubSearcher{repos: candidates}
	store := &stubStore{}
	learner := recommender.New(recommender.Config{ExplorationRate: 0, Seed: 1})
	svc := service.NewRecommendService(search, learner, store, service.Options{TopN: 3, DefaultMinStars: 10})
	app := NewApp(AppConfig{}, svc, stubBreaker("closed"))

	raw := func(method, target, body string) (int, []byte) {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, data
	}
	do := func(method, target, body string) (int, map[string]any) {
		status, data := raw(method, target, body)
		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out), string(data))
		return status, out
	}
	return fixture{search: search, store: store, do: do, raw: raw}
}

func TestRoot(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Project Recommender API is running", body["message"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "closed", body["upstream"])
	assert.Equal(t, "linear", body["model"])
}

func TestRecommend(t *testing.T) {
	f := newFixture(t)

	status, data := f.raw(http.MethodGet, "/recommend?tags=go,web", "")
	require.Equal(t, http.StatusOK, status, string(data))

	var repos []models.Repository
	require.NoError(t, json.Unmarshal(data, &repos))
	assert.Len(t, repos, 3)
	assert.Equal(t, "stars:>=10 topic:go topic:web", f.search.last.String())
}

func TestRecommend_TrailingSlashAndParams(t *testing.T) {
	f := newFixture(t)

	status, data := f.raw(http.MethodGet, "/recommend/?tags=go&min_stars=0&max_stars=100000&n=10", "")
	require.Equal(t, http.StatusOK, status, string(data))

	var repos []models.Repository
	require.NoError(t, json.Unmarshal(data, &repos))
	assert.Len(t, repos, len(candidates))
	assert.Equal(t, "stars:0..100000 topic:go", f.search.last.String())
}

func TestRecommend_BadRequests(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{
		"/recommend",
		"/recommend?tags=%20,%20",
		"/recommend?tags=go&n=abc",
		"/recommend?tags=go&n=1000",
		"/recommend?tags=go&min_stars=-1",
	} {
		status, body := f.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.Equal(t, "invalid_argument", body["error"], target)
	}
}

func TestRecommend_UpstreamUnavailable(t *testing.T) {
	f := newFixture(t)
	f.search.err = goerr.Wrap(recommender.ErrUpstreamUnavailable, "github down")

	status, body := f.do(http.MethodGet, "/recommend?tags=go", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "upstream_unavailable", body["error"])
}

func TestFeedback(t *testing.T) {
	f := newFixture(t)
	status, _ := f.raw(http.MethodGet, "/recommend?tags=go", "")
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(http.MethodPost, "/feedback",
		`{"project_url":"https://github.com/gin-gonic/gin","feedback":"like"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "like", body["feedback"])
	assert.Equal(t, 1.0, body["reward"])
	assert.Greater(t, body["score_after"].(float64), body["score_before"].(float64))
}

func TestFeedback_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"malformed body", "/feedback", `{"project_url":`, http.StatusBadRequest, "invalid_argument"},
		{"missing url", "/feedback", `{"feedback":"like"}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown label", "/feedback", `{"project_url":"https://github.com/gin-gonic/gin","feedback":"love"}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown project", "/feedback", `{"project_url":"https://github.com/nobody/nothing","feedback":"like"}`, http.StatusNotFound, "not_found"},
		{"unknown after re-search", "/feedback?tags=go", `{"project_url":"https://github.com/nobody/nothing","feedback":"like"}`, http.StatusNotFound, "not_found"},
		{"non-numeric min_stars", "/feedback?tags=go&min_stars=abc", `{"project_url":"https://github.com/gin-gonic/gin","feedback":"like"}`, http.StatusBadRequest, "invalid_argument"},
		{"non-numeric max_stars", "/feedback?tags=go&max_stars=lots", `{"project_url":"https://github.com/gin-gonic/gin","feedback":"like"}`, http.StatusBadRequest, "invalid_argument"},
		{"negative min_stars", "/feedback?tags=go&min_stars=-1", `{"project_url":"https://github.com/gin-gonic/gin","feedback":"like"}`, http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestFeedback_ResearchWithTags(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(http.MethodPost, "/feedback/?tags=go",
		`{"project_url":"https://github.com/go-chi/chi","feedback":"dislike"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 0.0, body["reward"])
}

func TestFeedback_QueryBoundsReachSearch(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(http.MethodPost, "/feedback?tags=go&min_stars=0&max_stars=50000",
		`{"project_url":"https://github.com/labstack/echo","feedback":"maybe"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "stars:0..50000 topic:go", f.search.last.String())
}

func TestFeedback_SupersededSearch(t *testing.T) {
	f := newFixture(t)
	status, _ := f.raw(http.MethodGet, "/recommend?tags=go", "")
	require.Equal(t, http.StatusOK, status)

	f.search.repos = []models.Repository{
		{Name: "flask", Description: "python micro framework", URL: "https://github.com/pallets/flask", Stars: 60000, Language: "Python", Topics: []string{"python"}},
	}
	status, _ = f.raw(http.MethodGet, "/recommend?tags=python", "")
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(http.MethodPost, "/feedback",
		`{"project_url":"https://github.com/gin-gonic/gin","feedback":"like"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestModelEndpoints(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(http.MethodPost, "/load-model", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	status, _ = f.raw(http.MethodGet, "/recommend?tags=go", "")
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(http.MethodPost, "/save-model", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Model saved successfully", body["message"])
	assert.NotEmpty(t, f.store.blob)

	status, _ = f.do(http.MethodPost, "/reset-model", "")
	assert.Equal(t, http.StatusOK, status)
	_, body = f.do(http.MethodGet, "/model", "")
	assert.Equal(t, 0.0, body["cached_features"])

	status, body = f.do(http.MethodPost, "/load-model/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Model loaded successfully", body["message"])

	_, body = f.do(http.MethodGet, "/model", "")
	assert.Equal(t, float64(len(candidates)), body["cached_features"])
	assert.Equal(t, "linear", body["kind"])
}

func TestLoadModel_Corrupt(t *testing.T) {
	f := newFixture(t)
	f.store.blob = []byte(`{"version": 99}`)

	status, body := f.do(http.MethodPost, "/load-model", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "corrupt_model", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	status, data := f.raw(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "recommender_exploration_rate")
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestCORS(t *testing.T) {
	search := &stubSearcher{}
	svc := service.NewRecommendService(search, recommender.New(recommender.Config{Seed: 1}), &stubStore{}, service.Options{})
	app := NewApp(AppConfig{}, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
