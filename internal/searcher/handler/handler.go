// Package handler exposes the query pipeline over HTTP for service mode.
// Responses are the same JSON objects the CLI prints with --json.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/middleware"
)

const (
	kindSearch    = "search"
	kindContent   = "content"
	kindRecommend = "recommend"
)

// SearchEngine is the query pipeline the handler serves.
type SearchEngine interface {
	Search(ctx context.Context, query, domain string, limit int) (*executor.SearchResult, error)
	SearchContent(ctx context.Context, query, language string, limit int) (*executor.ContentSearchResult, error)
	Recommend(ctx context.Context, query, language string, resourceLimit, contentLimit int) (*executor.Recommendation, error)
	Domains() corpus.Domains
}

// Limits are the result caps applied when a request does not name one.
type Limits struct {
	Default int
	Content int
	Max     int
}

type Handler struct {
	engine    SearchEngine
	cache     *cache.QueryCache
	collector *analytics.Collector
	limits    Limits
	logger    *slog.Logger
}

// New creates a handler. queryCache and collector may be nil.
func New(engine SearchEngine, queryCache *cache.QueryCache, collector *analytics.Collector, limits Limits) *Handler {
	return &Handler{
		engine:    engine,
		cache:     queryCache,
		collector: collector,
		limits:    limits,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/content", h.SearchContent)
	mux.HandleFunc("GET /api/v1/recommend", h.Recommend)
	mux.HandleFunc("GET /api/v1/domains", h.ListDomains)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&domain=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	query, err := requireQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := h.parseLimit(r, h.limits.Default)
	if err != nil {
		h.writeError(w, err)
		return
	}
	domain := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("domain")))

	key := cache.Key{Kind: kindSearch, Domain: domain, Query: query, Limit: limit}
	result, hit, err := compute(ctx, h.cache, key, func() (*executor.SearchResult, error) {
		return h.engine.Search(ctx, query, domain, limit)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("search failed", "query", query, "domain", domain, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.SearchEvent{
		Type:     analytics.EventSearch,
		Domain:   result.Domain,
		Query:    query,
		Returned: result.Count,
		CacheHit: hit,
		Error:    result.Error,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// SearchContent serves GET /api/v1/content?q=&lang=&limit=.
func (h *Handler) SearchContent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	query, err := requireQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := h.parseLimit(r, h.limits.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))

	key := cache.Key{Kind: kindContent, Query: query, Language: lang, Limit: limit}
	result, hit, err := compute(ctx, h.cache, key, func() (*executor.ContentSearchResult, error) {
		return h.engine.SearchContent(ctx, query, lang, limit)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("content search failed", "query", query, "lang", lang, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.SearchEvent{
		Type:     analytics.EventContentSearch,
		Domain:   executor.DomainContent,
		Query:    query,
		Language: lang,
		Returned: result.Count,
		CacheHit: hit,
		Error:    result.Error,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// Recommend serves GET /api/v1/recommend?q=&lang=.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	query, err := requireQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))

	key := cache.Key{Kind: kindRecommend, Query: query, Language: lang}
	rec, hit, err := compute(ctx, h.cache, key, func() (*executor.Recommendation, error) {
		return h.engine.Recommend(ctx, query, lang, h.limits.Default, h.limits.Content)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("recommend failed", "query", query, "lang", lang, "error", err)
		h.writeError(w, err)
		return
	}

	event := analytics.SearchEvent{
		Type:     analytics.EventRecommend,
		Domain:   "recommend",
		Query:    query,
		Language: lang,
		CacheHit: hit,
	}
	if rec.Resources != nil {
		event.Returned += rec.Resources.Count
		event.Error = rec.Resources.Error
	}
	if rec.Content != nil {
		event.Returned += rec.Content.Count
		if event.Error == "" {
			event.Error = rec.Content.Error
		}
	}
	h.track(ctx, event, start)
	h.writeJSON(w, http.StatusOK, rec)
}

type domainInfo struct {
	Name         string   `json:"name"`
	File         string   `json:"file"`
	SearchFields []string `json:"search_fields"`
	OutputFields []string `json:"output_fields"`
	Keywords     []string `json:"keywords,omitempty"`
}

// ListDomains serves GET /api/v1/domains.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains := h.engine.Domains()
	out := make([]domainInfo, 0, len(domains))
	for _, name := range domains.Names() {
		d := domains[name]
		out = append(out, domainInfo{
			Name:         d.Name,
			File:         d.File,
			SearchFields: d.SearchFields,
			OutputFields: d.OutputFields,
			Keywords:     d.Keywords,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"domains": out})
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  h.cache.Backend(),
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func compute[T any](ctx context.Context, c *cache.QueryCache, key cache.Key, fn func() (*T, error)) (*T, bool, error) {
	if c == nil {
		res, err := fn()
		return res, false, err
	}
	return cache.GetOrCompute(ctx, c, key, fn)
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent, start time.Time) {
	event.LatencyMs = time.Since(start).Milliseconds()
	logger.FromContext(ctx).Info("query served",
		"type", event.Type,
		"domain", event.Domain,
		"query", event.Query,
		"returned", event.Returned,
		"cache_hit", event.CacheHit,
		"latency_ms", event.LatencyMs,
	)
	if h.collector == nil {
		return
	}
	event.Terms = tokenizer.Tokenize(event.Query)
	event.Source = "http"
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

func requireQuery(r *http.Request) (string, error) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}
	return query, nil
}

func (h *Handler) parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	if h.limits.Max > 0 && limit > h.limits.Max {
		limit = h.limits.Max
	}
	return limit, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
