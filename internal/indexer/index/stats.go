// Package index builds per-corpus BM25 statistics: document lengths, the
// average document length, document frequency and inverse document
// frequency per term. Statistics are immutable once fitted and may be shared
// by concurrent read-only scorers.
package index

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/tokenizer"
)

// Stats holds the fitted statistics for one corpus.
type Stats struct {
	docs         [][]string
	lengths      []int
	avgDocLength float64
	docFreq      map[string]int
	idf          map[string]float64
}

// Fit tokenizes every document and computes the corpus statistics. An empty
// corpus yields zero documents and an average length of 1.
func Fit(documents []string) *Stats {
	s := &Stats{
		docs:         make([][]string, len(documents)),
		lengths:      make([]int, len(documents)),
		avgDocLength: 1,
		docFreq:      make(map[string]int),
		idf:          make(map[string]float64),
	}

	totalTokens := 0
	for i, doc := range documents {
		tokens := tokenizer.Tokenize(doc)
		s.docs[i] = tokens
		s.lengths[i] = len(tokens)
		totalTokens += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, term := range tokens {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			s.docFreq[term]++
		}
	}

	n := len(documents)
	if n > 0 {
		s.avgDocLength = float64(totalTokens) / float64(n)
	}
	for term, df := range s.docFreq {
		s.idf[term] = ComputeIDF(n, df)
	}
	return s
}

// ComputeIDF is the smoothed BM25 inverse document frequency,
// ln((N - df + 0.5) / (df + 0.5) + 1). It stays positive even for a term
// present in every document.
func ComputeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// NumDocs returns the number of fitted documents.
func (s *Stats) NumDocs() int {
	return len(s.docs)
}

// AvgDocLength returns the mean token count per document, or 1 for an empty
// corpus.
func (s *Stats) AvgDocLength() float64 {
	return s.avgDocLength
}

// DocLength returns the token count of document i.
func (s *Stats) DocLength(i int) int {
	return s.lengths[i]
}

// DocTokens returns the token sequence of document i. Callers must not
// modify the returned slice.
func (s *Stats) DocTokens(i int) []string {
	return s.docs[i]
}

// DocFreq returns how many documents contain term at least once.
func (s *Stats) DocFreq(term string) int {
	return s.docFreq[term]
}

// IDF returns the inverse document frequency of term. The second result is
// false for terms never seen during Fit.
func (s *Stats) IDF(term string) (float64, bool) {
	idf, ok := s.idf[term]
	return idf, ok
}

// NumTerms returns the number of distinct terms in the corpus.
func (s *Stats) NumTerms() int {
	return len(s.idf)
}
