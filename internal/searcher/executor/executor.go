// Package executor runs the query pipeline: it obtains a corpus through the
// corpus adapters, fits corpus statistics, scores and ranks the documents and
// maps the ranked indices back to presentable records.
//
// A Searcher used for one-shot invocations rebuilds its corpus per query.
// After Warm, corpora and fitted statistics are shared read-only across
// concurrent queries.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/tracing"
)

type fittedTable struct {
	table *corpus.Table
	stats *index.Stats
}

// fittedContent is a content corpus fitted for ranking. entries is the
// index the corpus was read from, before unreadable files were dropped.
type fittedContent struct {
	entries []corpus.ContentEntry
	corpus  *corpus.ContentCorpus
	stats   *index.Stats
}

// Searcher executes tabular, content and recommendation queries.
type Searcher struct {
	data    config.DataConfig
	search  config.SearchConfig
	domains corpus.Domains
	scorer  *scorer.Scorer
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	tables  map[string]*fittedTable
	content *fittedContent
	warmed  bool
}

// New creates a Searcher from configuration. m may be nil.
func New(cfg *config.Config, m *metrics.Metrics) *Searcher {
	return &Searcher{
		data:    cfg.Data,
		search:  cfg.Search,
		domains: corpus.DomainsFromConfig(cfg.Domains),
		scorer:  scorer.New(scorer.Params{K1: cfg.Search.BM25.K1, B: cfg.Search.BM25.B}),
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
		tables:  make(map[string]*fittedTable),
	}
}

// Domains returns the configured tabular domains.
func (s *Searcher) Domains() corpus.Domains {
	return s.domains
}

// Warm loads and fits every tabular domain and the content corpus
// concurrently, replacing anything loaded before. Missing data is logged and
// left unloaded so queries against it keep reporting the condition.
func (s *Searcher) Warm(ctx context.Context) error {
	start := time.Now()
	names := s.domains.Names()
	tables := make([]*fittedTable, len(names))
	var content *fittedContent

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ft, err := s.loadTable(gctx, s.domains[name])
			if err != nil {
				if errors.Is(err, apperrors.ErrMissingData) {
					s.logger.Warn("domain data missing, not preloaded", "domain", name, "error", err)
					return nil
				}
				return fmt.Errorf("warming domain %s: %w", name, err)
			}
			tables[i] = ft
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		fc, err := s.loadContent(gctx, "")
		if err != nil {
			if errors.Is(err, apperrors.ErrMissingData) {
				s.logger.Warn("content not preloaded", "error", err)
				return nil
			}
			return fmt.Errorf("warming content: %w", err)
		}
		content = fc
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	loaded := make(map[string]*fittedTable, len(names))
	for i, name := range names {
		if tables[i] != nil {
			loaded[name] = tables[i]
		}
	}

	s.mu.Lock()
	s.tables = loaded
	s.content = content
	s.warmed = true
	s.mu.Unlock()

	s.logger.Info("corpora warmed",
		"domains", len(loaded),
		"content_loaded", content != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Warmed reports whether Warm has completed at least once.
func (s *Searcher) Warmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warmed
}

// Loaded reports which corpora are preloaded: the tabular domain names and
// whether the content corpus is present.
func (s *Searcher) Loaded() (domains []string, content bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.domains.Names() {
		if _, ok := s.tables[name]; ok {
			domains = append(domains, name)
		}
	}
	return domains, s.content != nil
}

// Search ranks the records of one tabular domain against query. An empty
// domain is detected from the query. limit <= 0 selects the configured
// default; larger limits are capped at the configured maximum. Missing
// backing data is reported through SearchResult.Error, not as an error.
func (s *Searcher) Search(ctx context.Context, query, domain string, limit int) (*SearchResult, error) {
	start := time.Now()
	if domain == "" {
		domain = s.domains.Detect(query, config.DomainResource)
	}
	d, err := s.domains.Lookup(domain)
	if err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit, s.search.DefaultLimit)

	ctx, span := tracing.StartSpan(ctx, "search", "")
	span.SetAttr("domain", domain)
	defer func() {
		span.End()
		span.Log(s.logger)
	}()

	ft, err := s.tableFor(ctx, d)
	if err != nil {
		if errors.Is(err, apperrors.ErrMissingData) {
			s.logger.Warn("search data missing", "domain", domain, "error", err)
			s.observe(domain, metrics.ResultMissingData, start, 0)
			return &SearchResult{Domain: domain, Query: query, Error: err.Error()}, nil
		}
		s.observe(domain, metrics.ResultError, start, 0)
		return nil, err
	}

	ranked := s.rank(ctx, ft.stats, query, limit)
	results := make([]corpus.Record, len(ranked))
	for i, doc := range ranked {
		results[i] = ft.table.Project(doc.Index, ranker.Round(doc.Score, s.search.ScorePrecision))
	}

	s.observe(domain, resultType(len(results)), start, len(results))
	s.logger.Debug("search executed",
		"domain", domain,
		"query", query,
		"documents", ft.stats.NumDocs(),
		"results", len(results),
	)
	return &SearchResult{
		Domain:  domain,
		Query:   query,
		Count:   len(results),
		Results: results,
	}, nil
}

// SearchContent ranks content documents against query. A non-empty
// language restricts the corpus, before fitting, to entries whose
// subcategory, category or title contain it.
func (s *Searcher) SearchContent(ctx context.Context, query, language string, limit int) (*ContentSearchResult, error) {
	start := time.Now()
	limit = s.clampLimit(limit, s.search.ContentLimit)

	ctx, span := tracing.StartSpan(ctx, "search_content", "")
	span.SetAttr("language", language)
	defer func() {
		span.End()
		span.Log(s.logger)
	}()

	fc, err := s.contentFor(ctx, language)
	if err != nil {
		if errors.Is(err, apperrors.ErrMissingData) {
			s.logger.Warn("content unavailable", "error", err)
			s.observe(DomainContent, metrics.ResultMissingData, start, 0)
			return &ContentSearchResult{Domain: DomainContent, Query: query, Language: language, Error: err.Error()}, nil
		}
		s.observe(DomainContent, metrics.ResultError, start, 0)
		return nil, err
	}

	ranked := s.rank(ctx, fc.stats, query, limit)
	results := make([]corpus.ContentResult, len(ranked))
	for i, doc := range ranked {
		results[i] = fc.corpus.Entries[doc.Index].Result(ranker.Round(doc.Score, s.search.ScorePrecision))
	}

	s.observe(DomainContent, resultType(len(results)), start, len(results))
	return &ContentSearchResult{
		Domain:   DomainContent,
		Query:    query,
		Language: language,
		Count:    len(results),
		Results:  results,
	}, nil
}

// Recommend runs a resource search and a content search for query
// concurrently. A language is appended to the resource query and used as
// the content filter.
func (s *Searcher) Recommend(ctx context.Context, query, language string, resourceLimit, contentLimit int) (*Recommendation, error) {
	resourceQuery := query
	if language != "" {
		resourceQuery = strings.TrimSpace(query + " " + language)
	}

	rec := &Recommendation{Query: query, Language: language}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.Search(gctx, resourceQuery, config.DomainResource, resourceLimit)
		if err != nil {
			return fmt.Errorf("resource search: %w", err)
		}
		rec.Resources = res
		return nil
	})
	g.Go(func() error {
		res, err := s.SearchContent(gctx, query, language, contentLimit)
		if err != nil {
			return fmt.Errorf("content search: %w", err)
		}
		rec.Content = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Searcher) rank(ctx context.Context, stats *index.Stats, query string, limit int) []ranker.ScoredDoc {
	_, scoreSpan := tracing.StartChildSpan(ctx, "score")
	scores := s.scorer.Score(stats, query)
	scoreSpan.SetAttr("documents", len(scores))
	scoreSpan.End()

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	ranked := ranker.Rank(scores, limit)
	rankSpan.SetAttr("results", len(ranked))
	rankSpan.End()
	return ranked
}

func (s *Searcher) tableFor(ctx context.Context, d corpus.Domain) (*fittedTable, error) {
	s.mu.RLock()
	ft, ok := s.tables[d.Name]
	s.mu.RUnlock()
	if ok {
		return ft, nil
	}
	return s.loadTable(ctx, d)
}

func (s *Searcher) loadTable(ctx context.Context, d corpus.Domain) (*fittedTable, error) {
	table, err := corpus.LoadTable(s.data.Dir, d)
	if err != nil {
		s.countLoad(d.Name, err)
		return nil, err
	}
	stats := s.fit(ctx, d.Name, table.Documents())
	s.countLoad(d.Name, nil)
	return &fittedTable{table: table, stats: stats}, nil
}

func (s *Searcher) contentFor(ctx context.Context, language string) (*fittedContent, error) {
	s.mu.RLock()
	preloaded := s.content
	s.mu.RUnlock()
	if preloaded == nil {
		return s.loadContent(ctx, language)
	}
	if strings.TrimSpace(language) == "" {
		return preloaded, nil
	}
	entries := corpus.FilterByLanguage(preloaded.entries, language)
	if len(entries) == 0 {
		return nil, noContentForLanguage(language)
	}
	filtered := preloaded.corpus.FilterByLanguage(language)
	if len(filtered.Entries) == 0 {
		return nil, errNoReadableContent
	}
	return &fittedContent{entries: entries, corpus: filtered, stats: s.fit(ctx, DomainContent, filtered.Documents)}, nil
}

func (s *Searcher) loadContent(ctx context.Context, language string) (*fittedContent, error) {
	entries, err := corpus.LoadContentIndex(s.data.ContentIndex)
	if err != nil {
		s.countLoad(DomainContent, err)
		return nil, err
	}
	entries = corpus.FilterByLanguage(entries, language)
	if len(entries) == 0 {
		err := noContentForLanguage(language)
		s.countLoad(DomainContent, err)
		return nil, err
	}
	c := corpus.LoadContent(s.data.ContentDir, entries, s.search.ContentCharBudget)
	if skipped := len(entries) - len(c.Entries); skipped > 0 {
		s.logger.Debug("content entries skipped", "skipped", skipped, "loaded", len(c.Entries))
	}
	if len(c.Entries) == 0 {
		s.countLoad(DomainContent, errNoReadableContent)
		return nil, errNoReadableContent
	}
	stats := s.fit(ctx, DomainContent, c.Documents)
	s.countLoad(DomainContent, nil)
	return &fittedContent{entries: entries, corpus: c, stats: stats}, nil
}

var errNoReadableContent = fmt.Errorf("%w: no readable content files found", apperrors.ErrMissingData)

func noContentForLanguage(language string) error {
	return fmt.Errorf("%w: no content found for language: %s", apperrors.ErrMissingData, language)
}

func (s *Searcher) fit(ctx context.Context, domain string, documents []string) *index.Stats {
	_, span := tracing.StartChildSpan(ctx, "fit")
	stats := index.Fit(documents)
	span.SetAttr("documents", stats.NumDocs())
	span.SetAttr("terms", stats.NumTerms())
	span.End()
	if s.metrics != nil {
		s.metrics.CorpusDocuments.WithLabelValues(domain).Set(float64(stats.NumDocs()))
	}
	return stats
}

func (s *Searcher) clampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if s.search.MaxResults > 0 && limit > s.search.MaxResults {
		limit = s.search.MaxResults
	}
	return limit
}

func (s *Searcher) observe(domain, result string, start time.Time, count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(domain, result).Inc()
	s.metrics.SearchLatency.WithLabelValues(domain).Observe(time.Since(start).Seconds())
	if result == metrics.ResultHit || result == metrics.ResultZeroResult {
		s.metrics.SearchResultsCount.WithLabelValues(domain).Observe(float64(count))
	}
}

func (s *Searcher) countLoad(domain string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, apperrors.ErrMissingData):
		status = "missing"
	case err != nil:
		status = "error"
	}
	s.metrics.CorpusLoadsTotal.WithLabelValues(domain, status).Inc()
}

func resultType(count int) string {
	if count == 0 {
		return metrics.ResultZeroResult
	}
	return metrics.ResultHit
}
