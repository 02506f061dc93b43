package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"symbols only", " -- !! ,, ", []string{}},
		{"lowercases", "Python LIST Comprehension", []string{"python", "list", "comprehension"}},
		{"keeps language names whole", "C++ vs C# vs Node.js", []string{"c++", "vs", "c#", "vs", "node.js"}},
		{"keeps versions", "Python 3.7 and ES6", []string{"python", "3.7", "and", "es6"}},
		{"splits on punctuation", "error-handling, logging/tracing", []string{"error", "handling", "logging", "tracing"}},
		{"keeps duplicates in order", "go go Go", []string{"go", "go", "go"}},
		{"single letters survive", "a b c", []string{"a", "b", "c"}},
		{"trailing period is part of the run", "use gofmt.", []string{"use", "gofmt."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenize_NonASCIILettersAreSeparators(t *testing.T) {
	assert.Equal(t, []string{"caf", "latte"}, Tokenize("café latte"))
}

func TestTokenize_Deterministic(t *testing.T) {
	text := "Rust ownership, borrowing & lifetimes in Rust 2021"
	first := Tokenize(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Tokenize(text))
	}
}

func TestTermFrequency(t *testing.T) {
	freqs := TermFrequency(Tokenize("go test go vet go build"))

	assert.Equal(t, 3, freqs["go"])
	assert.Equal(t, 1, freqs["vet"])
	assert.NotContains(t, freqs, "python")
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("Use context.Context for cancellation in Go 1.22; prefer errors.Is over ==. ", 40)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}
