package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
)

func record(fields ...string) corpus.Record {
	var rec corpus.Record
	for i := 0; i+1 < len(fields); i += 2 {
		rec.Fields = append(rec.Fields, corpus.Field{Name: fields[i], Value: fields[i+1]})
	}
	rec.Score = 1.5
	return rec
}

func TestSearch_PlainText(t *testing.T) {
	res := &executor.SearchResult{
		Domain: "resource",
		Query:  "go style",
		Count:  1,
		Results: []corpus.Record{
			record("Title", "Effective Go", "URL", "https://go.dev/doc/effective_go", "Summary", strings.Repeat("x", 450)),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Search(res))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "## Search Results\n"))
	assert.Contains(t, out, "**Domain:** resource | **Query:** go style")
	assert.Contains(t, out, "**Found:** 1 results")
	assert.Contains(t, out, "### Result 1")
	assert.Contains(t, out, "- **Title:** Effective Go")
	assert.Contains(t, out, "- **Summary:** "+strings.Repeat("x", 400)+"...\n")
	assert.NotContains(t, out, "_score")
	assert.Less(t, strings.Index(out, "Title"), strings.Index(out, "URL"))
}

func TestSearch_ErrorReplacesReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Search(&executor.SearchResult{
		Domain: "category",
		Query:  "testing",
		Error:  "missing data: file not found: data/categories.csv",
	}))
	assert.Equal(t, "Error: missing data: file not found: data/categories.csv\n", buf.String())
}

func TestContent_ShowsLanguageFilter(t *testing.T) {
	res := &executor.ContentSearchResult{
		Domain:   executor.DomainContent,
		Query:    "ownership",
		Language: "rust",
		Count:    1,
		Results: []corpus.ContentResult{
			{Title: "Ownership in Rust", Category: "Languages", URL: "https://example.com/rust", File: "rust.md", Relevance: 2.3456},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Content(res))
	out := buf.String()
	assert.Contains(t, out, "**Language Filter:** rust")
	assert.Contains(t, out, "- **File:** rust.md")
	assert.Contains(t, out, "- **Relevance:** 2.3456")

	buf.Reset()
	res.Language = ""
	require.NoError(t, NewRenderer(&buf, false).Content(res))
	assert.NotContains(t, buf.String(), "Language Filter")
}

func TestRecommendation(t *testing.T) {
	rec := &executor.Recommendation{
		Query: "error handling",
		Resources: &executor.SearchResult{
			Domain: "resource",
			Count:  1,
			Results: []corpus.Record{
				record("Title", "Go errors", "Language", "Go", "Domain", "go.dev", "Authority", "industry-leader", "URL", "https://go.dev/blog/errors", "Summary", "Errors are values"),
			},
		},
		Content: &executor.ContentSearchResult{
			Domain: executor.DomainContent,
			Error:  "missing data: content index not found",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Recommendation(rec))
	out := buf.String()
	assert.Contains(t, out, "RECOMMENDATION: ERROR HANDLING")
	assert.Contains(t, out, "TOP RESOURCES:")
	assert.Contains(t, out, "1. Go errors \u2b50\n")
	assert.Contains(t, out, "Domain: go.dev | Authority: industry-leader")
	assert.Contains(t, out, "Summary: Errors are values...\n")
	assert.Contains(t, out, "Content unavailable: missing data")
	assert.NotContains(t, out, "No results found")
}

func TestRecommendation_AuthorityAndSummary(t *testing.T) {
	rec := &executor.Recommendation{
		Query: "style",
		Resources: &executor.SearchResult{
			Domain: "resource",
			Results: []corpus.Record{
				record("Title", "PEP 8", "Authority", "standard", "Summary", strings.Repeat("s", 250)),
				record("Title", "Blog post", "Authority", "community"),
			},
		},
		Content: &executor.ContentSearchResult{Domain: executor.DomainContent},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Recommendation(rec))
	out := buf.String()
	assert.Contains(t, out, "1. PEP 8 \U0001F3C6\n")
	assert.Contains(t, out, "Summary: "+strings.Repeat("s", 200)+"...\n")
	assert.Contains(t, out, "2. Blog post\n")
	assert.Contains(t, out, "Domain: N/A | Authority: community")
	assert.Equal(t, 1, strings.Count(out, "Summary:"))
}

func TestRecommendation_NoResults(t *testing.T) {
	rec := &executor.Recommendation{
		Query:     "zzz",
		Resources: &executor.SearchResult{Domain: "resource"},
		Content:   &executor.ContentSearchResult{Domain: executor.DomainContent},
	}
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Recommendation(rec))
	assert.Contains(t, buf.String(), "No results found. Try different keywords.")
}

func TestRecommendation_CapsSections(t *testing.T) {
	resources := &executor.SearchResult{Domain: "resource"}
	for i := 0; i < 8; i++ {
		resources.Results = append(resources.Results, record("Title", "r"))
	}
	content := &executor.ContentSearchResult{Domain: executor.DomainContent}
	for i := 0; i < 5; i++ {
		content.Results = append(content.Results, corpus.ContentResult{Title: "c"})
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, false).Recommendation(&executor.Recommendation{Query: "q", Resources: resources, Content: content}))
	out := buf.String()
	assert.Contains(t, out, "5. r")
	assert.NotContains(t, out, "6. r")
	assert.Contains(t, out, "3. c")
	assert.NotContains(t, out, "4. c")
}

func TestJSON_NoHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, &executor.SearchResult{
		Domain:  "resource",
		Query:   "c++ <templates>",
		Results: []corpus.Record{record("Title", "A & B")},
		Count:   1,
	}))
	out := buf.String()
	assert.Contains(t, out, `"query": "c++ <templates>"`)
	assert.Contains(t, out, "\n  \"domain\"")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "resource", decoded["domain"])
}

func TestTruncate_CountsRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé...", truncate("héllo", 2))
}
