// Package ranker orders BM25 scores into a capped result list. Ties keep
// corpus order, and documents scoring zero or less never appear.
package ranker

import (
	"math"
	"sort"
)

// DefaultCap is the result cap for tabular searches; DefaultContentCap is
// the cap for content deep search.
const (
	DefaultCap        = 5
	DefaultContentCap = 3
)

type ScoredDoc struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rank orders documents by descending score, ties keeping document order,
// keeps the first limit entries and then drops every entry scoring <= 0. The
// result may hold fewer than limit entries, or none.
func Rank(scores []float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, len(scores))
	for i, score := range scores {
		result[i] = ScoredDoc{Index: i, Score: score}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	ranked := make([]ScoredDoc, 0, len(result))
	for _, doc := range result {
		if doc.Score > 0 {
			ranked = append(ranked, doc)
		}
	}
	return ranked
}

// Round rounds score to the given number of decimal places for display.
func Round(score float64, precision int) float64 {
	if precision < 0 {
		return score
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(score*scale) / scale
}
