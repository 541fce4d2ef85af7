package poisson

import "math"

/////////////////////////////////////////////////////////////////////////
////// Market Value
/////////////////////////////////////////////////////////////////////////

// Market keys accepted in bookmaker odds mappings.
const (
	MarketHome     = "home"
	MarketDraw     = "draw"
	MarketAway     = "away"
	MarketOver2p5  = "over_2.5"
	MarketUnder2p5 = "under_2.5"
)

// marketOrder fixes the evaluation order for value calculations.
var marketOrder = []string{MarketHome, MarketDraw, MarketAway, MarketOver2p5, MarketUnder2p5}

// CalculateValue compares model probabilities with bookmaker decimal odds and
// returns the expected value of each market as a percentage of stake:
// (probability * odds - 1) * 100, rounded to 2 decimal places. Markets
// missing from the odds mapping are omitted from the result, not an error.
// Odds sanity (each value >= 1.0) is the supplier's responsibility. Pure
// function of its inputs, no side effects.
func CalculateValue(p *Prediction, odds map[string]float64) map[string]float64 {
	probs := map[string]float64{
		MarketHome:     p.HomeWin,
		MarketDraw:     p.Draw,
		MarketAway:     p.AwayWin,
		MarketOver2p5:  p.Over2p5,
		MarketUnder2p5: p.Under2p5,
	}

	values := make(map[string]float64)
	for _, market := range marketOrder {
		o, ok := odds[market]
		if !ok {
			continue
		}
		values[market] = round2((probs[market]*o - 1) * 100)
	}
	return values
}

// FairOdds returns the break-even decimal odds for a probability, rounded to
// 2 decimal places. A zero probability has no finite price, so +Inf is
// returned as the sentinel.
func FairOdds(probability float64) float64 {
	if probability <= 0 {
		return math.Inf(1)
	}
	return round2(1 / probability)
}

// ImpliedProbability converts decimal odds to the probability they imply,
// bookmaker overround included.
func ImpliedProbability(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	return 1 / odds
}

// RemoveVig2 converts two-way decimal odds to fair probabilities by
// stripping the bookmaker's overround proportionally.
func RemoveVig2(a, b float64) (float64, float64) {
	rawA := ImpliedProbability(a)
	rawB := ImpliedProbability(b)
	total := rawA + rawB
	if total == 0 {
		return 0, 0
	}
	return rawA / total, rawB / total
}

// RemoveVig3 converts three-way decimal odds, such as a 1X2 market, to fair
// probabilities.
func RemoveVig3(a, b, c float64) (float64, float64, float64) {
	rawA := ImpliedProbability(a)
	rawB := ImpliedProbability(b)
	rawC := ImpliedProbability(c)
	total := rawA + rawB + rawC
	if total == 0 {
		return 0, 0, 0
	}
	return rawA / total, rawB / total, rawC / total
}
