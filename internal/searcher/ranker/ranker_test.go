package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_CapsAndOrders(t *testing.T) {
	scores := []float64{0.5, 2.0, 1.0, 3.0, 0.25}

	got := Rank(scores, 3)
	assert.Equal(t, []ScoredDoc{
		{Index: 3, Score: 3.0},
		{Index: 1, Score: 2.0},
		{Index: 2, Score: 1.0},
	}, got)
}

func TestRank_FewerPositiveThanCap(t *testing.T) {
	got := Rank([]float64{0, 0, 1.7, 0, 0}, 3)
	assert.Equal(t, []ScoredDoc{{Index: 2, Score: 1.7}}, got)
}

func TestRank_DropsNonPositive(t *testing.T) {
	got := Rank([]float64{0, -1, 0}, 5)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestRank_TiesKeepDocumentOrder(t *testing.T) {
	got := Rank([]float64{1, 2, 1, 2, 1}, 5)
	assert.Equal(t, []ScoredDoc{
		{Index: 1, Score: 2},
		{Index: 3, Score: 2},
		{Index: 0, Score: 1},
		{Index: 2, Score: 1},
		{Index: 4, Score: 1},
	}, got)
}

func TestRank_CapAppliedBeforeFilter(t *testing.T) {
	// The cap cuts first; zero scores inside the cap are then removed.
	got := Rank([]float64{1, 0, 0}, 2)
	assert.Equal(t, []ScoredDoc{{Index: 0, Score: 1}}, got)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil, 5))
	assert.Empty(t, Rank([]float64{3, 2}, 0))
}

func TestRank_Deterministic(t *testing.T) {
	scores := []float64{0, 0.1, 0.1, 0, 0.3, 0.1}
	first := Rank(scores, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Rank(scores, 4))
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.235, Round(1.23456, 3))
	assert.Equal(t, 0.651, Round(0.65126, 3))
	assert.Equal(t, 1.2346, Round(1.23456, 4))
	assert.Equal(t, 1.23, Round(1.234, 2))
	assert.Equal(t, 1.23456, Round(1.23456, -1))
}
