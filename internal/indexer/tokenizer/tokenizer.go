// Package tokenizer provides text tokenisation for the ranking engine.
// It lower-cases input and extracts maximal runs of letters, digits and the
// symbols '#', '+' and '.', so identifiers such as "c++", "c#" and "node.js"
// survive as single tokens. There is no stop-word removal and no stemming.
package tokenizer

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9#+.]+`)

// Tokenize returns the tokens of text in left-to-right order. Duplicates are
// kept; an empty or symbol-only input yields an empty slice.
func Tokenize(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// TermFrequency counts occurrences of each term in tokens.
func TermFrequency(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freqs[token]++
	}
	return freqs
}
