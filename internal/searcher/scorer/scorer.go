// Package scorer computes Okapi BM25 relevance scores for every document of
// a fitted corpus against a free-text query.
package scorer

import (
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/devguide-search/internal/indexer/tokenizer"
)

// Params are the BM25 tuning constants.
type Params struct {
	K1 float64 // term-frequency saturation
	B  float64 // length-normalisation strength
}

// DefaultParams returns k1 = 1.5, b = 0.75.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Scorer applies BM25 with fixed parameters. It holds no corpus state and
// never mutates the statistics it reads.
type Scorer struct {
	params Params
}

func New(params Params) *Scorer {
	return &Scorer{params: params}
}

// Score returns one score per fitted document, index-aligned with the
// documents passed to index.Fit. Query tokens are not deduplicated.
func (s *Scorer) Score(stats *index.Stats, query string) []float64 {
	return s.ScoreTerms(stats, tokenizer.Tokenize(query))
}

// ScoreTerms is Score for an already tokenized query.
func (s *Scorer) ScoreTerms(stats *index.Stats, queryTerms []string) []float64 {
	scores := make([]float64, stats.NumDocs())
	if len(queryTerms) == 0 {
		return scores
	}
	for i := range scores {
		scores[i] = s.ScoreDoc(stats, i, queryTerms)
	}
	return scores
}

// ScoreDoc scores document i alone. It depends only on document i and the
// fitted statistics, so documents may be scored in any order or in parallel.
func (s *Scorer) ScoreDoc(stats *index.Stats, i int, queryTerms []string) float64 {
	termFreqs := countQueryTerms(stats.DocTokens(i), queryTerms)
	docLength := float64(stats.DocLength(i))
	avgDocLength := stats.AvgDocLength()

	score := 0.0
	for _, term := range queryTerms {
		idf, ok := stats.IDF(term)
		if !ok {
			continue
		}
		tf := float64(termFreqs[term])
		if tf == 0 {
			continue
		}
		score += idf * computeTFNorm(tf, docLength, avgDocLength, s.params)
	}
	return score
}

func computeTFNorm(termFreq, docLength, avgDocLength float64, p Params) float64 {
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}

// countQueryTerms counts, in one pass over the document, only the terms that
// appear in the query.
func countQueryTerms(docTokens []string, queryTerms []string) map[string]int {
	freqs := make(map[string]int, len(queryTerms))
	for _, term := range queryTerms {
		freqs[term] = 0
	}
	for _, token := range docTokens {
		if _, wanted := freqs[token]; wanted {
			freqs[token]++
		}
	}
	return freqs
}
