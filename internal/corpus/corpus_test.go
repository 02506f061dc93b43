package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testDomain() Domain {
	return Domain{
		Name:         "resource",
		File:         "resources.csv",
		SearchFields: []string{"Title", "Tags"},
		OutputFields: []string{"Title", "URL"},
	}
}

func TestLoadTable_DocumentsAndProjection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "resources.csv", "Title,Tags,URL,Notes\n"+
		"Effective Go,style idioms,https://go.dev/doc/effective_go,ignored\n"+
		"\"Rust Book, 2nd\",ownership,https://doc.rust-lang.org/book,\n")

	table, err := LoadTable(dir, testDomain())
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, []string{
		"Effective Go style idioms",
		"Rust Book, 2nd ownership",
	}, table.Documents())

	rec := table.Project(1, 1.5)
	assert.Equal(t, []Field{
		{Name: "Title", Value: "Rust Book, 2nd"},
		{Name: "URL", Value: "https://doc.rust-lang.org/book"},
	}, rec.Fields)
	assert.Equal(t, 1.5, rec.Score)
}

func TestProject_OmitsFieldsMissingFromHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "resources.csv", "Title,URL\nEffective Go\n")
	d := testDomain()
	d.OutputFields = []string{"Title", "Authority", "URL"}

	table, err := LoadTable(dir, d)
	require.NoError(t, err)
	rec := table.Project(0, 1)
	assert.Equal(t, []Field{
		{Name: "Title", Value: "Effective Go"},
		{Name: "URL", Value: ""},
	}, rec.Fields)
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable(t.TempDir(), testDomain())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingData)
	assert.Contains(t, err.Error(), "resources.csv")
}

func TestReadRows_ShortRowsAndBOM(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\ufeffTitle,Tags\nonly-title\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "only-title", rows[0]["Title"])
	assert.Equal(t, "", rows[0]["Tags"])
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecord_MarshalJSONKeepsFieldOrder(t *testing.T) {
	rec := Record{
		Fields: []Field{{Name: "Title", Value: "B"}, {Name: "Category", Value: "A"}},
		Score:  2.5,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"Title":"B","Category":"A","_score":2.5}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestRecord_MarshalJSONNoFields(t *testing.T) {
	data, err := json.Marshal(Record{Score: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"_score":1}`, string(data))
}

func TestDomains_LookupAndDetect(t *testing.T) {
	domains := DomainsFromConfig(config.Default().Domains)

	_, err := domains.Lookup("nope")
	assert.ErrorIs(t, err, apperrors.ErrUnknownDomain)

	d, err := domains.Lookup(config.DomainCategory)
	require.NoError(t, err)
	assert.Equal(t, "categories.csv", d.File)

	assert.Equal(t, config.DomainResource, domains.Detect("", config.DomainResource))
	assert.Equal(t, config.DomainResource, domains.Detect("zzz qqq", config.DomainResource))
	// no keywords are configured by default
	assert.Equal(t, config.DomainResource, domains.Detect("idiomatic language syntax category", config.DomainResource))
}

func TestDomains_DetectPicksMostHits(t *testing.T) {
	domains := Domains{
		"a": {Name: "a", Keywords: []string{"alpha"}},
		"b": {Name: "b", Keywords: []string{"beta", "Gamma"}},
	}
	assert.Equal(t, "b", domains.Detect("beta gamma alpha", "a"))
	assert.Equal(t, "a", domains.Detect("alpha", "b"))
	// one hit each: tie goes to the fallback
	assert.Equal(t, "z", domains.Detect("alpha beta", "z"))
}

func TestStripFrontMatter(t *testing.T) {
	cases := map[string]struct {
		in, want string
	}{
		"none":         {in: "plain body", want: "plain body"},
		"block":        {in: "---\ntitle: x\n---\nbody text", want: "\nbody text"},
		"crlf":         {in: "---\r\ntitle: x\r\n---\r\nbody", want: "\r\nbody"},
		"inline close": {in: "---title: x---body", want: "body"},
		"unterminated": {in: "---\ntitle: x\nbody", want: "---\ntitle: x\nbody"},
		"not leading":  {in: "intro\n---\nx\n---\n", want: "intro\n---\nx\n---\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFrontMatter(tc.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "abcdef", Truncate("abcdef", -1))
}

func TestLoadContentIndex_JSONSortedByID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "index.json", `{
		"b": {"title": "Rust Ownership", "category": "Languages", "subcategory": "Rust", "url": "u2", "file": "b.md"},
		"a": {"title": "Go Errors", "category": "Languages", "subcategory": "Go", "url": "u1", "file": "a.md"}
	}`)

	entries, err := LoadContentIndex(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "Go Errors", entries[0].Title)
	assert.Equal(t, "b", entries[1].ID)
}

func TestLoadContentIndex_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "index.yaml", "x:\n  title: Testing\n  category: Practices\n  file: x.md\n")

	entries, err := LoadContentIndex(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Testing", entries[0].Title)
	assert.Equal(t, "x.md", entries[0].File)
}

func TestLoadContentIndex_Missing(t *testing.T) {
	_, err := LoadContentIndex(filepath.Join(t.TempDir(), "index.json"))
	assert.ErrorIs(t, err, apperrors.ErrMissingData)
}

func TestLoadContentIndex_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "index.json", "{not json")
	_, err := LoadContentIndex(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrMissingData)
}

func TestFilterByLanguage(t *testing.T) {
	entries := []ContentEntry{
		{ID: "1", Title: "Ownership in depth", Subcategory: "Rust"},
		{ID: "2", Title: "Async patterns", Category: "Java"},
		{ID: "3", Title: "JavaScript closures", Category: "Web"},
		{ID: "4", Title: "Borrow checker mentions rust in body only", Category: "Misc"},
	}

	rust := FilterByLanguage(entries, "Rust")
	require.Len(t, rust, 2)
	assert.Equal(t, "1", rust[0].ID)
	assert.Equal(t, "4", rust[1].ID)

	// plain substring containment: java also matches javascript
	java := FilterByLanguage(entries, "java")
	require.Len(t, java, 2)
	assert.Equal(t, "2", java[0].ID)
	assert.Equal(t, "3", java[1].ID)

	assert.Len(t, FilterByLanguage(entries, ""), 4)
}

func TestLoadContent_SkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\nGo error wrapping")
	writeFile(t, dir, "bad.md", string([]byte{0xff, 0xfe, 0x00}))
	writeFile(t, dir, "long.md", strings.Repeat("x", 5000))

	entries := []ContentEntry{
		{ID: "a", Title: "Errors", File: "a.md"},
		{ID: "gone", Title: "Gone", File: "missing.md"},
		{ID: "bad", Title: "Bad", File: "bad.md"},
		{ID: "long", Title: "Long", File: "long.md"},
	}
	c := LoadContent(dir, entries, DefaultCharBudget)

	require.Len(t, c.Entries, 3)
	require.Len(t, c.Documents, 3)
	assert.Equal(t, "a", c.Entries[0].ID)
	assert.Equal(t, "\nGo error wrapping", c.Documents[0], "title is not part of the search text")
	assert.Equal(t, "bad", c.Entries[1].ID)
	assert.Equal(t, "\uFFFD\x00", c.Documents[1])
	assert.Equal(t, "long", c.Entries[2].ID)
	assert.Equal(t, strings.Repeat("x", DefaultCharBudget), c.Documents[2])
}

func TestLoadContent_BudgetCountsFromAfterFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\n"+strings.Repeat("y", 10))

	c := LoadContent(dir, []ContentEntry{{ID: "a", File: "a.md"}}, 5)
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "\nyyyy", c.Documents[0])
}

func TestContentEntry_Result(t *testing.T) {
	e := ContentEntry{Title: "T", Category: "C", URL: "U", File: "F"}
	data, err := json.Marshal(e.Result(0.75))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Title":"T","Category":"C","URL":"U","File":"F","Relevance":0.75}`, string(data))
}
