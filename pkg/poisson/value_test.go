package poisson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateValueAllMarkets(t *testing.T) {
	pred := &Prediction{
		HomeTeam: "Forge FC",
		AwayTeam: "Cavalry FC",
		HomeWin:  0.5,
		Draw:     0.3,
		AwayWin:  0.2,
		Over2p5:  0.55,
		Under2p5: 0.45,
	}
	odds := map[string]float64{
		MarketHome:     2.1,
		MarketDraw:     3.0,
		MarketAway:     6.0,
		MarketOver2p5:  2.0,
		MarketUnder2p5: 2.0,
	}

	value := CalculateValue(pred, odds)
	require.Len(t, value, 5)

	assert.InDelta(t, 5.0, value[MarketHome], 1e-9, "a 50% chance at 2.10 is a 5% edge")
	assert.InDelta(t, -10.0, value[MarketDraw], 1e-9)
	assert.InDelta(t, 20.0, value[MarketAway], 1e-9)
	assert.InDelta(t, 10.0, value[MarketOver2p5], 1e-9)
	assert.InDelta(t, -10.0, value[MarketUnder2p5], 1e-9)
}

func TestCalculateValueSkipsMissingMarkets(t *testing.T) {
	pred := &Prediction{HomeWin: 0.4, Draw: 0.3, AwayWin: 0.3, Over2p5: 0.5, Under2p5: 0.5}
	odds := map[string]float64{
		MarketHome:    2.0,
		MarketOver2p5: 2.2,
	}

	value := CalculateValue(pred, odds)
	require.Len(t, value, 2, "markets without a quote are omitted, not zeroed")
	assert.Contains(t, value, MarketHome)
	assert.Contains(t, value, MarketOver2p5)
	assert.InDelta(t, -20.0, value[MarketHome], 1e-9)
	assert.InDelta(t, 10.0, value[MarketOver2p5], 1e-9)
}

func TestCalculateValueIgnoresUnknownKeys(t *testing.T) {
	pred := &Prediction{HomeWin: 0.5}
	odds := map[string]float64{
		MarketHome: 2.1,
		"btts_yes": 1.9,
		"over_1.5": 1.3,
	}

	value := CalculateValue(pred, odds)
	require.Len(t, value, 1, "only the five priced markets are evaluated")
	assert.InDelta(t, 5.0, value[MarketHome], 1e-9)
}

func TestCalculateValueEmptyOdds(t *testing.T) {
	pred := &Prediction{HomeWin: 0.5}
	assert.Empty(t, CalculateValue(pred, nil))
	assert.Empty(t, CalculateValue(pred, map[string]float64{}))
}

func TestFairOdds(t *testing.T) {
	assert.Equal(t, 2.0, FairOdds(0.5))
	assert.Equal(t, 4.0, FairOdds(0.25))
	assert.InDelta(t, 3.33, FairOdds(0.3), 1e-12)
	assert.Equal(t, 1.0, FairOdds(1.0))

	assert.True(t, math.IsInf(FairOdds(0.0), 1), "impossible outcomes have no finite price")
	assert.True(t, math.IsInf(FairOdds(-0.1), 1))
}

func TestImpliedProbability(t *testing.T) {
	assert.Equal(t, 0.5, ImpliedProbability(2.0))
	assert.InDelta(t, 0.4, ImpliedProbability(2.5), 1e-12)
	assert.Equal(t, 0.0, ImpliedProbability(0.0))
	assert.Equal(t, 0.0, ImpliedProbability(-1.5))

	assert.InDelta(t, 0.3, ImpliedProbability(FairOdds(0.3)), 0.005, "round trip survives the 2dp price rounding")
}

func TestRemoveVig2(t *testing.T) {
	pHome, pAway := RemoveVig2(1.9, 1.9)
	assert.Equal(t, 0.5, pHome, "a symmetric two-way book splits evenly")
	assert.Equal(t, 0.5, pAway)

	pHome, pAway = RemoveVig2(1.8, 2.1)
	assert.InDelta(t, 0.538462, pHome, 1e-6)
	assert.InDelta(t, 0.461538, pAway, 1e-6)
	assert.InDelta(t, 1.0, pHome+pAway, 1e-12)

	pHome, pAway = RemoveVig2(0, 1.9)
	assert.Equal(t, 0.0, pHome)
	assert.Equal(t, 1.0, pAway)

	pHome, pAway = RemoveVig2(0, 0)
	assert.Equal(t, 0.0, pHome)
	assert.Equal(t, 0.0, pAway)
}

func TestRemoveVig3(t *testing.T) {
	pHome, pDraw, pAway := RemoveVig3(2.0, 3.0, 6.0)
	assert.InDelta(t, 0.5, pHome, 1e-9, "a fair three-way book is returned unchanged")
	assert.InDelta(t, 1.0/3.0, pDraw, 1e-9)
	assert.InDelta(t, 1.0/6.0, pAway, 1e-9)
	assert.InDelta(t, 1.0, pHome+pDraw+pAway, 1e-12)

	// A typical 1X2 book holds about 5% overround.
	pHome, pDraw, pAway = RemoveVig3(2.0, 3.4, 3.8)
	assert.InDelta(t, 1.0, pHome+pDraw+pAway, 1e-12)
	assert.Greater(t, pHome, pDraw)
	assert.Greater(t, pDraw, pAway)

	pHome, pDraw, pAway = RemoveVig3(0, 0, 0)
	assert.Equal(t, 0.0, pHome)
	assert.Equal(t, 0.0, pDraw)
	assert.Equal(t, 0.0, pAway)
}
