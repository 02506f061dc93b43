// Package report renders query responses for people and for tools: a
// sectioned text report, or the response object as indented JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/searcher/executor"
)

const (
	fieldValueLimit  = 400
	summaryLimit     = 200
	recommendResults = 5
	recommendContent = 3
	ruleWidth        = 70
)

// JSON writes v as two-space indented JSON without HTML escaping.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Renderer writes text reports.
type Renderer struct {
	w      io.Writer
	styles styles
}

// NewRenderer creates a text renderer. color enables terminal styling.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, styles: newStyles(color)}
}

// Search renders a tabular search response. Fields appear in the domain's
// configured output order; the score is not shown.
func (r *Renderer) Search(res *executor.SearchResult) error {
	if res.Error != "" {
		return r.writeError(res.Error)
	}
	var b strings.Builder
	r.header(&b, res.Domain, res.Query, "", res.Count)
	for i, rec := range res.Results {
		fmt.Fprintln(&b, r.styles.h3(fmt.Sprintf("Result %d", i+1)))
		for _, f := range rec.Fields {
			r.field(&b, f.Name, f.Value)
		}
		b.WriteString("\n")
	}
	return r.flush(&b)
}

// Content renders a content search response.
func (r *Renderer) Content(res *executor.ContentSearchResult) error {
	if res.Error != "" {
		return r.writeError(res.Error)
	}
	var b strings.Builder
	r.header(&b, res.Domain, res.Query, res.Language, res.Count)
	for i, c := range res.Results {
		fmt.Fprintln(&b, r.styles.h3(fmt.Sprintf("Result %d", i+1)))
		r.field(&b, "Title", c.Title)
		r.field(&b, "Category", c.Category)
		r.field(&b, "URL", c.URL)
		r.field(&b, "File", c.File)
		r.field(&b, "Relevance", formatScore(c.Relevance))
		b.WriteString("\n")
	}
	return r.flush(&b)
}

// Recommendation renders the combined resource and content report.
func (r *Renderer) Recommendation(rec *executor.Recommendation) error {
	var b strings.Builder
	rule := r.styles.separator(strings.Repeat("=", ruleWidth))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "  "+r.styles.h2("RECOMMENDATION: "+strings.ToUpper(rec.Query)))
	fmt.Fprintln(&b, rule)
	b.WriteString("\n")

	found := false
	if res := rec.Resources; res != nil {
		switch {
		case res.Error != "":
			fmt.Fprintf(&b, "  %s\n\n", r.styles.failure("Resources unavailable: "+res.Error))
		case len(res.Results) > 0:
			found = true
			fmt.Fprintln(&b, "  "+r.styles.h3("TOP RESOURCES:"))
			for i, item := range res.Results {
				if i == recommendResults {
					break
				}
				authority := item.Get("Authority")
				fmt.Fprintf(&b, "    %d. %s%s\n", i+1, orNA(item.Get("Title")), authorityBadge(authority))
				fmt.Fprintf(&b, "       URL: %s\n", orNA(item.Get("URL")))
				fmt.Fprintf(&b, "       Domain: %s | Authority: %s\n", orNA(item.Get("Domain")), authority)
				if summary := item.Get("Summary"); summary != "" {
					fmt.Fprintf(&b, "       Summary: %s...\n", headRunes(summary, summaryLimit))
				}
				b.WriteString("\n")
			}
		}
	}
	if res := rec.Content; res != nil {
		switch {
		case res.Error != "":
			fmt.Fprintf(&b, "  %s\n\n", r.styles.failure("Content unavailable: "+res.Error))
		case len(res.Results) > 0:
			found = true
			fmt.Fprintln(&b, "  "+r.styles.h3("DEEP CONTENT:"))
			for i, item := range res.Results {
				if i == recommendContent {
					break
				}
				fmt.Fprintf(&b, "    %d. %s\n", i+1, orNA(item.Title))
				fmt.Fprintf(&b, "       File: %s\n", orNA(item.File))
				fmt.Fprintf(&b, "       URL: %s\n", orNA(item.URL))
				b.WriteString("\n")
			}
		}
	}
	if !found {
		fmt.Fprintln(&b, "  No results found. Try different keywords.")
	}
	fmt.Fprintln(&b, rule)
	return r.flush(&b)
}

// authorityBadge marks industry leaders and standards bodies.
func authorityBadge(authority string) string {
	switch authority {
	case "industry-leader":
		return " \u2b50"
	case "standard":
		return " \U0001F3C6"
	}
	return ""
}

func headRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func (r *Renderer) header(b *strings.Builder, domain, query, language string, count int) {
	fmt.Fprintln(b, r.styles.h2("Search Results"))
	fmt.Fprintf(b, "%s %s | %s %s\n", r.styles.key("Domain"), domain, r.styles.key("Query"), query)
	if language != "" {
		fmt.Fprintf(b, "%s %s\n", r.styles.key("Language Filter"), language)
	}
	fmt.Fprintf(b, "%s %d results\n\n", r.styles.key("Found"), count)
}

func (r *Renderer) field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "- %s %s\n", r.styles.key(name), truncate(value, fieldValueLimit))
}

func (r *Renderer) writeError(msg string) error {
	_, err := fmt.Fprintln(r.w, r.styles.failure("Error: "+msg))
	return err
}

func (r *Renderer) flush(b *strings.Builder) error {
	_, err := io.WriteString(r.w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

// truncate shortens s to limit runes followed by an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
