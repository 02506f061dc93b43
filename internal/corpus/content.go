package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

const frontMatterDelim = "---"

// DefaultCharBudget caps the body length, in characters, of each content
// document before tokenization.
const DefaultCharBudget = 3000

// ContentEntry is one content index record.
type ContentEntry struct {
	ID          string `json:"-" yaml:"-"`
	Title       string `json:"title" yaml:"title"`
	Category    string `json:"category" yaml:"category"`
	Subcategory string `json:"subcategory" yaml:"subcategory"`
	URL         string `json:"url" yaml:"url"`
	File        string `json:"file" yaml:"file"`
}

// ContentResult is a ranked content document as presented to callers.
type ContentResult struct {
	Title     string  `json:"Title"`
	Category  string  `json:"Category"`
	URL       string  `json:"URL"`
	File      string  `json:"File"`
	Relevance float64 `json:"Relevance"`
}

// Result presents the entry with the given relevance.
func (e ContentEntry) Result(relevance float64) ContentResult {
	return ContentResult{
		Title:     e.Title,
		Category:  e.Category,
		URL:       e.URL,
		File:      e.File,
		Relevance: relevance,
	}
}

// LoadContentIndex reads the content index mapping record id to metadata.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// Entries are returned in id order. A missing index is ErrMissingData.
func LoadContentIndex(path string) ([]ContentEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: content index not found: %s", apperrors.ErrMissingData, path)
		}
		return nil, fmt.Errorf("reading content index %s: %w", path, err)
	}

	var raw map[string]ContentEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing content index %s: %w", path, err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]ContentEntry, 0, len(ids))
	for _, id := range ids {
		entry := raw[id]
		entry.ID = id
		entries = append(entries, entry)
	}
	return entries, nil
}

// FilterByLanguage keeps entries whose subcategory, category or title
// contains language, ignoring case. An empty language keeps everything.
func FilterByLanguage(entries []ContentEntry, language string) []ContentEntry {
	needle := strings.ToLower(strings.TrimSpace(language))
	if needle == "" {
		return entries
	}
	kept := make([]ContentEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Subcategory), needle) ||
			strings.Contains(strings.ToLower(e.Category), needle) ||
			strings.Contains(strings.ToLower(e.Title), needle) {
			kept = append(kept, e)
		}
	}
	return kept
}

// ContentCorpus is the set of content documents that could be read, aligned
// with the entries they came from.
type ContentCorpus struct {
	Entries   []ContentEntry
	Documents []string
}

// LoadContent reads each entry's file relative to dir, strips front-matter
// and truncates the body to budget characters. The body alone is the search
// text. Entries whose file cannot be read are skipped; invalid UTF-8 is
// replaced rather than rejected.
func LoadContent(dir string, entries []ContentEntry, budget int) *ContentCorpus {
	log := slog.Default().With("component", "corpus")
	c := &ContentCorpus{
		Entries:   make([]ContentEntry, 0, len(entries)),
		Documents: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.File)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug("content file skipped", "id", e.ID, "path", path, "error", err)
			continue
		}
		text := string(data)
		if !utf8.ValidString(text) {
			log.Debug("content file has invalid UTF-8, replaced", "id", e.ID, "path", path)
			text = strings.ToValidUTF8(text, "\uFFFD")
		}
		body := Truncate(StripFrontMatter(text), budget)
		c.Entries = append(c.Entries, e)
		c.Documents = append(c.Documents, body)
	}
	return c
}

// FilterByLanguage returns the subset of the corpus whose entries match
// language as FilterByLanguage on entries does. An empty language returns c.
func (c *ContentCorpus) FilterByLanguage(language string) *ContentCorpus {
	if strings.TrimSpace(language) == "" {
		return c
	}
	byID := make(map[string]string, len(c.Entries))
	for i, e := range c.Entries {
		byID[e.ID] = c.Documents[i]
	}
	kept := FilterByLanguage(c.Entries, language)
	out := &ContentCorpus{
		Entries:   kept,
		Documents: make([]string, len(kept)),
	}
	for i, e := range kept {
		out.Documents[i] = byID[e.ID]
	}
	return out
}

// StripFrontMatter removes a leading block opened by "---" and closed by the
// next "---". Everything after the closing marker is kept as is. Text with
// an unterminated block is returned unchanged.
func StripFrontMatter(text string) string {
	if !strings.HasPrefix(text, frontMatterDelim) {
		return text
	}
	rest := text[len(frontMatterDelim):]
	end := strings.Index(rest, frontMatterDelim)
	if end < 0 {
		return text
	}
	return rest[end+len(frontMatterDelim):]
}

// Truncate returns at most budget characters of text. A negative budget
// disables the cap.
func Truncate(text string, budget int) string {
	if budget < 0 || utf8.RuneCountInString(text) <= budget {
		return text
	}
	n := 0
	for i := range text {
		if n == budget {
			return text[:i]
		}
		n++
	}
	return text
}
