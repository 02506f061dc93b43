// Package corpus turns record sources into the flat document lists the
// ranking core fits, and maps ranked indices back to presentable records.
// Two shapes are supported: tabular CSV records flattened from a fixed
// ordered subset of fields, and free-text content files addressed by a
// content index.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/devguide-search/pkg/errors"
)

// ScoreField is the JSON key carrying a tabular result's relevance score.
const ScoreField = "_score"

// Domain is the explicit projection for one tabular corpus: which fields are
// joined into search text and which are presented in results.
type Domain struct {
	Name         string
	File         string
	SearchFields []string
	OutputFields []string
	Keywords     []string
}

// Domains is the set of configured tabular domains keyed by name.
type Domains map[string]Domain

// DomainsFromConfig builds the domain table from configuration.
func DomainsFromConfig(cfg map[string]config.DomainConfig) Domains {
	domains := make(Domains, len(cfg))
	for name, d := range cfg {
		domains[name] = Domain{
			Name:         name,
			File:         d.File,
			SearchFields: d.SearchFields,
			OutputFields: d.OutputFields,
			Keywords:     d.Keywords,
		}
	}
	return domains
}

// Lookup returns the named domain or an ErrUnknownDomain error.
func (d Domains) Lookup(name string) (Domain, error) {
	domain, ok := d[name]
	if !ok {
		return Domain{}, fmt.Errorf("%w: %q (valid: %s)", apperrors.ErrUnknownDomain, name, strings.Join(d.Names(), ", "))
	}
	return domain, nil
}

// Names returns the domain names in sorted order.
func (d Domains) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect picks the domain whose keywords match the most query tokens. A
// query matching no keywords, or tied between domains, gets fallback.
func (d Domains) Detect(query string, fallback string) string {
	tokens := tokenizer.Tokenize(query)
	best, bestHits, tied := fallback, 0, false
	for _, name := range d.Names() {
		keywords := make(map[string]struct{}, len(d[name].Keywords))
		for _, kw := range d[name].Keywords {
			keywords[strings.ToLower(kw)] = struct{}{}
		}
		hits := 0
		for _, tok := range tokens {
			if _, ok := keywords[tok]; ok {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			best, bestHits, tied = name, hits, false
		case hits == bestHits && hits > 0:
			tied = true
		}
	}
	if bestHits == 0 || tied {
		return fallback
	}
	return best
}

// Field is one named value of a presented record.
type Field struct {
	Name  string
	Value string
}

// Record is a tabular search result: the domain's output fields in
// configured order plus the relevance score.
type Record struct {
	Fields []Field
	Score  float64
}

// Get returns the value of the named field.
func (r Record) Get(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// MarshalJSON encodes the record as an object whose keys keep the
// configured field order, followed by the score.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	if len(r.Fields) > 0 {
		buf.WriteByte(',')
	}
	if err := writeKeyValue(&buf, ScoreField, r.Score); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a record produced by MarshalJSON, keeping the
// field order of the encoded object.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	r.Fields = nil
	r.Score = 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name, got %v", tok)
		}
		if name == ScoreField {
			if err := dec.Decode(&r.Score); err != nil {
				return fmt.Errorf("decoding %s: %w", ScoreField, err)
			}
			continue
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding field %q: %w", name, err)
		}
		r.Fields = append(r.Fields, Field{Name: name, Value: value})
	}
	_, err = dec.Token()
	return err
}

func writeKeyValue(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
