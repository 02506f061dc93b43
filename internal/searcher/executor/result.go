package executor

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/corpus"
)

// DomainContent is the domain label reported by content searches.
const DomainContent = "content"

// SearchResult is the response of a tabular search. When Error is set the
// backing data was missing and Results is absent; callers must check Error
// before reading Results.
type SearchResult struct {
	Domain  string          `json:"domain"`
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []corpus.Record `json:"results"`
	Error   string          `json:"error,omitempty"`
}

// Cacheable reports whether the result is worth caching.
func (r *SearchResult) Cacheable() bool { return r.Error == "" }

// MarshalJSON omits results when the search reported an error and encodes
// an empty result list as [] otherwise.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		Domain  string           `json:"domain"`
		Query   string           `json:"query"`
		Count   int              `json:"count"`
		Results *[]corpus.Record `json:"results,omitempty"`
		Error   string           `json:"error,omitempty"`
	}
	w := wire{Domain: r.Domain, Query: r.Query, Count: r.Count, Error: r.Error}
	if r.Error == "" {
		results := r.Results
		if results == nil {
			results = []corpus.Record{}
		}
		w.Results = &results
	}
	return json.Marshal(w)
}

// ContentSearchResult is the response of a content deep search. Language
// is the filter that was applied, empty when none was.
type ContentSearchResult struct {
	Domain   string                 `json:"domain"`
	Query    string                 `json:"query"`
	Language string                 `json:"language"`
	Count    int                    `json:"count"`
	Results  []corpus.ContentResult `json:"results"`
	Error    string                 `json:"error,omitempty"`
}

// Cacheable reports whether the result is worth caching.
func (r *ContentSearchResult) Cacheable() bool { return r.Error == "" }

// MarshalJSON reports an unset language as null, omits results when the
// search reported an error and encodes an empty result list as [].
func (r ContentSearchResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		Domain   string                  `json:"domain"`
		Query    string                  `json:"query"`
		Language *string                 `json:"language"`
		Count    int                     `json:"count"`
		Results  *[]corpus.ContentResult `json:"results,omitempty"`
		Error    string                  `json:"error,omitempty"`
	}
	w := wire{Domain: r.Domain, Query: r.Query, Count: r.Count, Error: r.Error}
	if r.Language != "" {
		lang := r.Language
		w.Language = &lang
	}
	if r.Error == "" {
		results := r.Results
		if results == nil {
			results = []corpus.ContentResult{}
		}
		w.Results = &results
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (r *ContentSearchResult) UnmarshalJSON(data []byte) error {
	var w struct {
		Domain   string                 `json:"domain"`
		Query    string                 `json:"query"`
		Language *string                `json:"language"`
		Count    int                    `json:"count"`
		Results  []corpus.ContentResult `json:"results"`
		Error    string                 `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ContentSearchResult{Domain: w.Domain, Query: w.Query, Count: w.Count, Results: w.Results, Error: w.Error}
	if w.Language != nil {
		r.Language = *w.Language
	}
	return nil
}

// Recommendation combines a resource search and a content search for one
// query.
type Recommendation struct {
	Query     string               `json:"query"`
	Language  string               `json:"language,omitempty"`
	Resources *SearchResult        `json:"resources"`
	Content   *ContentSearchResult `json:"content"`
}

// Cacheable reports whether both halves of the recommendation are worth
// caching.
func (r *Recommendation) Cacheable() bool {
	return r.Resources != nil && r.Resources.Cacheable() && r.Content != nil && r.Content.Cacheable()
}
