package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

type fakeEngine struct {
	mu          sync.Mutex
	calls       map[string]int
	lastLimit   int
	lastDomain  string
	lastLang    string
	missingData bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{calls: make(map[string]int)}
}

func (f *fakeEngine) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeEngine) Search(_ context.Context, query, domain string, limit int) (*executor.SearchResult, error) {
	f.mu.Lock()
	f.calls["search"]++
	f.lastLimit, f.lastDomain = limit, domain
	f.mu.Unlock()

	if domain == "styles" {
		return nil, fmt.Errorf("resolving: %w", apperrors.ErrUnknownDomain)
	}
	if domain == "" {
		domain = config.DomainResource
	}
	if f.missingData {
		return &executor.SearchResult{Domain: domain, Query: query, Error: "missing data: file not found: categories.csv"}, nil
	}
	return &executor.SearchResult{
		Domain: domain,
		Query:  query,
		Count:  1,
		Results: []corpus.Record{{
			Fields: []corpus.Field{{Name: "Title", Value: "Effective Go"}, {Name: "URL", Value: "https://go.dev/doc/effective_go"}},
			Score:  2.5,
		}},
	}, nil
}

func (f *fakeEngine) SearchContent(_ context.Context, query, language string, limit int) (*executor.ContentSearchResult, error) {
	f.mu.Lock()
	f.calls["content"]++
	f.lastLimit, f.lastLang = limit, language
	f.mu.Unlock()
	return &executor.ContentSearchResult{
		Domain:   executor.DomainContent,
		Query:    query,
		Language: language,
		Count:    1,
		Results:  []corpus.ContentResult{{Title: "Error handling", Category: "Languages", URL: "https://example.com", File: "go.md", Relevance: 1.1}},
	}, nil
}

func (f *fakeEngine) Recommend(ctx context.Context, query, language string, resourceLimit, contentLimit int) (*executor.Recommendation, error) {
	res, _ := f.Search(ctx, query+" "+language, config.DomainResource, resourceLimit)
	content, _ := f.SearchContent(ctx, query, language, contentLimit)
	f.mu.Lock()
	f.calls["recommend"]++
	f.mu.Unlock()
	return &executor.Recommendation{Query: query, Language: language, Resources: res, Content: content}, nil
}

func (f *fakeEngine) Domains() corpus.Domains {
	return corpus.DomainsFromConfig(config.Default().Domains)
}

type testServer struct {
	engine    *fakeEngine
	cache     *cache.QueryCache
	collector *analytics.Collector
	mux       *http.ServeMux
}

func newTestServer(t *testing.T, withCache bool) *testServer {
	t.Helper()
	ts := &testServer{
		engine:    newFakeEngine(),
		collector: analytics.NewCollector(analytics.NewAggregator(100), nil, nil),
		mux:       http.NewServeMux(),
	}
	if withCache {
		ts.cache = cache.New(nil, config.RedisConfig{CacheTTL: time.Minute, LocalSize: 16}, nil)
	}
	h := New(ts.engine, ts.cache, ts.collector, Limits{Default: 5, Content: 3, Max: 50})
	h.Routes(ts.mux)
	return ts
}

func (ts *testServer) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearch_ReturnsResultsAndTracks(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/v1/search?q=idiomatic+go&domain=Resource")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "resource", body["domain"])
	assert.Equal(t, "idiomatic go", body["query"])
	assert.Equal(t, 5, ts.engine.lastLimit)
	assert.Equal(t, "resource", ts.engine.lastDomain)

	stats := ts.collector.Aggregator().Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.SearchesByDomain["resource"])
}

func TestSearch_Validation(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest},
		{"blank query", "/api/v1/search?q=+++", http.StatusBadRequest},
		{"bad limit", "/api/v1/search?q=go&limit=abc", http.StatusBadRequest},
		{"zero limit", "/api/v1/search?q=go&limit=0", http.StatusBadRequest},
		{"unknown domain", "/api/v1/search?q=go&domain=styles", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSearch_LimitCappedAtMax(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(http.MethodGet, "/api/v1/search?q=go&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, ts.engine.lastLimit)
}

func TestSearch_MissingDataIsNotAnHTTPError(t *testing.T) {
	ts := newTestServer(t, true)
	ts.engine.missingData = true

	for i := 0; i < 2; i++ {
		rec := ts.do(http.MethodGet, "/api/v1/search?q=testing&domain=category")
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "missing data")
		assert.NotContains(t, body, "results")
	}
	assert.Equal(t, 2, ts.engine.count("search"))
	assert.Equal(t, int64(2), ts.collector.Aggregator().Stats().MissingDataCount)
}

func TestSearch_CachedResponses(t *testing.T) {
	ts := newTestServer(t, true)

	first := ts.do(http.MethodGet, "/api/v1/search?q=go")
	second := ts.do(http.MethodGet, "/api/v1/search?q=go")
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, ts.engine.count("search"))

	stats := ts.collector.Aggregator().Stats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)

	rec := ts.do(http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	ts.do(http.MethodGet, "/api/v1/search?q=go")
	assert.Equal(t, 2, ts.engine.count("search"))
}

func TestSearchContent(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/v1/content?q=errors&lang=Go")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ts.engine.lastLimit)
	assert.Equal(t, "Go", ts.engine.lastLang)

	var res executor.ContentSearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "content", res.Domain)
	assert.Equal(t, "Go", res.Language)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Error handling", res.Results[0].Title)
}

func TestRecommend(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/v1/recommend?q=error+handling&lang=go")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error handling", body["query"])
	assert.Equal(t, "go", body["language"])
	assert.Contains(t, body, "resources")
	assert.Contains(t, body, "content")

	stats := ts.collector.Aggregator().Stats()
	assert.Equal(t, int64(1), stats.SearchesByDomain["recommend"])
}

func TestListDomains(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/v1/domains")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Domains []domainInfo `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Domains, 3)
	assert.Equal(t, "category", body.Domains[0].Name)
	assert.Equal(t, "language", body.Domains[1].Name)
	assert.Equal(t, "resource", body.Domains[2].Name)
	assert.Equal(t, "resources.csv", body.Domains[2].File)
}

func TestCacheEndpoints_Disabled(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheStats(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(http.MethodGet, "/api/v1/search?q=go")
	ts.do(http.MethodGet, "/api/v1/search?q=go")

	rec := ts.do(http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "local", body["backend"])
	assert.Equal(t, 1.0, body["hits"])
	assert.Equal(t, 1.0, body["misses"])
	assert.Equal(t, "50.0%", body["hit_rate"])
}

func TestRoutes_MethodMismatch(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(http.MethodPost, "/api/v1/search?q=go")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
