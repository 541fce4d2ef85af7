package poisson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawHeavy produces projected rates of exactly 1.5 home and 1.2 away for
// Forge hosting Cavalry: both sides sit at neutral ratings, the away
// baseline is 1.2, and the raised home bonus tops the home rate up to 1.5.
func drawHeavy(t *testing.T) *Model {
	t.Helper()
	params := DefaultParams()
	params.HomeAdvantage = 0.5

	records := []MatchResult{
		result(0, "Forge FC", "Cavalry FC", 1, 1),
		result(1, "Forge FC", "Cavalry FC", 1, 1),
		result(2, "Forge FC", "Cavalry FC", 1, 1),
		result(3, "Forge FC", "Cavalry FC", 1, 2),
		result(4, "Forge FC", "Cavalry FC", 1, 1),
	}
	model, err := Fit(records, params)
	require.NoError(t, err)
	return model
}

func TestCorrectScoresTopOfRanking(t *testing.T) {
	model := drawHeavy(t)

	homeXG, awayXG, err := model.ExpectedGoals("Forge FC", "Cavalry FC")
	require.NoError(t, err)
	require.InDelta(t, 1.5, homeXG, 1e-12)
	require.InDelta(t, 1.2, awayXG, 1e-12)

	scores, err := model.CorrectScores("Forge FC", "Cavalry FC", 3)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// Brute-force the 7x7 grid to find the true modal scoreline.
	pmf := func(rate float64, k int) float64 {
		p := math.Exp(-rate)
		for i := 1; i <= k; i++ {
			p *= rate / float64(i)
		}
		return p
	}
	bestProb, bestH, bestA := -1.0, 0, 0
	for h := 0; h <= 6; h++ {
		for a := 0; a <= 6; a++ {
			if p := pmf(1.5, h) * pmf(1.2, a); p > bestProb {
				bestProb, bestH, bestA = p, h, a
			}
		}
	}
	require.Equal(t, 1, bestH, "sanity: the joint mode at these rates is 1-1")
	require.Equal(t, 1, bestA)

	top := scores[0]
	assert.Equal(t, bestH, top.HomeGoals)
	assert.Equal(t, bestA, top.AwayGoals)
	assert.Equal(t, "1-1", top.Score())
	assert.InDelta(t, round4(bestProb), top.Probability, 1e-12)
	assert.InDelta(t, round2(1/bestProb), top.FairOdds, 1e-12, "fair odds are the reciprocal of the unrounded probability")

	assert.Equal(t, "1-0", scores[1].Score())
	assert.Equal(t, "2-1", scores[2].Score())
}

func TestCorrectScoresDefaultCount(t *testing.T) {
	model := drawHeavy(t)

	scores, err := model.CorrectScores("Forge FC", "Cavalry FC", 0)
	require.NoError(t, err)
	assert.Len(t, scores, DefaultParams().TopScores, "topN <= 0 falls back to the configured default")

	all, err := model.CorrectScores("Forge FC", "Cavalry FC", 500)
	require.NoError(t, err)
	assert.Len(t, all, 49, "the ranking never exceeds the 7x7 grid")

	var total float64
	for _, s := range all {
		total += s.Probability
	}
	assert.InDelta(t, 1.0, total, 0.01, "the 49 scorelines carry nearly all the mass at these rates")
}

func TestCorrectScoresDeterministic(t *testing.T) {
	model := drawHeavy(t)

	first, err := model.CorrectScores("Forge FC", "Cavalry FC", 49)
	require.NoError(t, err)
	second, err := model.CorrectScores("Forge FC", "Cavalry FC", 49)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// With a zero away rate only the h-0 column has mass; the zero cells that
// pad out the ranking must carry the +Inf fair-odds sentinel and keep a
// stable lexicographic order.
func TestCorrectScoresZeroProbabilityTail(t *testing.T) {
	model, err := Fit(roundRobin(), DefaultParams())
	require.NoError(t, err)

	// Forge at home project 3.25 against Cavalry's 0.00.
	scores, err := model.CorrectScores("Forge FC", "Cavalry FC", 10)
	require.NoError(t, err)
	require.Len(t, scores, 10)

	assert.Equal(t, "3-0", scores[0].Score(), "the mode of Poisson(3.25) is 3 goals")

	for i := 0; i < 7; i++ {
		assert.Equal(t, 0, scores[i].AwayGoals, "only shutout scorelines have mass")
		assert.Greater(t, scores[i].FairOdds, 1.0)
		assert.False(t, math.IsInf(scores[i].FairOdds, 1))
	}

	assert.Equal(t, 0.0, scores[7].Probability)
	assert.True(t, math.IsInf(scores[7].FairOdds, 1), "a zero-probability scoreline has no finite price")
	assert.Equal(t, "0-1", scores[7].Score(), "zero cells rank in lexicographic order")
	assert.Equal(t, "0-2", scores[8].Score())
	assert.Equal(t, "0-3", scores[9].Score())
}
