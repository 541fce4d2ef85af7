package poisson

import "math"

/////////////////////////////////////////////////////////////////////////
////// Scoreline Probability Grid
/////////////////////////////////////////////////////////////////////////

// ScoreGrid is the outer product of two independent Poisson distributions
// over the scorelines (h, a) with h, a in [0, bound]. Cells hold the raw
// joint probabilities; mass beyond the bound is not represented, so the grid
// total falls slightly short of 1.0 for realistic rates.
type ScoreGrid struct {
	homeRate float64
	awayRate float64
	bound    int
	cells    [][]float64
}

// NewScoreGrid builds the joint probability grid for the given Poisson rates.
// A non-zero rho applies the Dixon-Coles correction to the four low-score
// cells, shifting a little mass between draws and narrow wins.
func NewScoreGrid(homeRate, awayRate, rho float64, bound int) *ScoreGrid {
	homeProbs := poissonProbs(homeRate, bound)
	awayProbs := poissonProbs(awayRate, bound)

	cells := make([][]float64, bound+1)
	for h := 0; h <= bound; h++ {
		cells[h] = make([]float64, bound+1)
		for a := 0; a <= bound; a++ {
			p := homeProbs[h] * awayProbs[a]
			if rho != 0 {
				p *= tau(h, a, homeRate, awayRate, rho)
			}
			cells[h][a] = p
		}
	}

	return &ScoreGrid{
		homeRate: homeRate,
		awayRate: awayRate,
		bound:    bound,
		cells:    cells,
	}
}

// poissonProbs returns the Poisson probability mass for k in [0, bound] at
// the given rate. Computed by iterative multiplication so no factorials are
// materialized; a zero rate puts all mass on zero goals.
func poissonProbs(rate float64, bound int) []float64 {
	probs := make([]float64, bound+1)
	p := math.Exp(-rate)
	probs[0] = p
	for k := 1; k <= bound; k++ {
		p *= rate / float64(k)
		probs[k] = p
	}
	return probs
}

// tau is the Dixon-Coles correction factor for the four low-score cells.
// Every other scoreline is left untouched.
func tau(homeGoals, awayGoals int, homeRate, awayRate, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - homeRate*awayRate*rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + homeRate*rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + awayRate*rho
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	}
	return 1.0
}

// Bound returns the per-side goal cap of this grid.
func (g *ScoreGrid) Bound() int { return g.bound }

// Prob returns the joint probability of the exact scoreline (h, a), or zero
// for scorelines outside the grid.
func (g *ScoreGrid) Prob(h, a int) float64 {
	if h < 0 || a < 0 || h > g.bound || a > g.bound {
		return 0.0
	}
	return g.cells[h][a]
}

// TotalProbability returns the sum of all cells. Always a little below 1.0
// because the bound truncates the Poisson support.
func (g *ScoreGrid) TotalProbability() float64 {
	total := 0.0
	for h := 0; h <= g.bound; h++ {
		for a := 0; a <= g.bound; a++ {
			total += g.cells[h][a]
		}
	}
	return total
}

// MatchOdds returns the home win, draw and away win probabilities. The three
// triangle sums are renormalized by the total grid mass, so they partition
// the represented outcomes exactly and sum to 1.0.
func (g *ScoreGrid) MatchOdds() (homeWin, draw, awayWin float64) {
	for h := 0; h <= g.bound; h++ {
		for a := 0; a <= g.bound; a++ {
			p := g.cells[h][a]
			if h > a {
				homeWin += p
			} else if h == a {
				draw += p
			} else {
				awayWin += p
			}
		}
	}

	total := homeWin + draw + awayWin
	if total > 0 {
		homeWin /= total
		draw /= total
		awayWin /= total
	}
	return homeWin, draw, awayWin
}

// OverUnder returns the probability of the goal total finishing over and
// under the given line. Under is defined as the complement of over, which
// implicitly assigns any mass beyond the grid bound to the under side. For
// lines up to 2.5 at the scoring rates this league produces, the truncation
// error is well under a basis point.
func (g *ScoreGrid) OverUnder(line float64) (over, under float64) {
	for h := 0; h <= g.bound; h++ {
		for a := 0; a <= g.bound; a++ {
			if float64(h+a) > line {
				over += g.cells[h][a]
			}
		}
	}
	return over, 1 - over
}

// BothTeamsToScore returns the probability of both sides scoring and its
// complement. As with OverUnder, tail mass beyond the bound counts toward
// the no side.
func (g *ScoreGrid) BothTeamsToScore() (yes, no float64) {
	for h := 1; h <= g.bound; h++ {
		for a := 1; a <= g.bound; a++ {
			yes += g.cells[h][a]
		}
	}
	return yes, 1 - yes
}

// ExpectedGoals returns the grid-implied expected goals per side. These run
// slightly below the input rates because of truncation, which makes them a
// useful sanity check on the bound.
func (g *ScoreGrid) ExpectedGoals() (home, away float64) {
	for h := 0; h <= g.bound; h++ {
		for a := 0; a <= g.bound; a++ {
			p := g.cells[h][a]
			home += float64(h) * p
			away += float64(a) * p
		}
	}
	return home, away
}

// MostLikelyScore returns the modal scoreline. Equal cells resolve to the
// lower (h, a) in lexicographic order, keeping the result deterministic.
func (g *ScoreGrid) MostLikelyScore() (h, a int) {
	best := -1.0
	for i := 0; i <= g.bound; i++ {
		for j := 0; j <= g.bound; j++ {
			if g.cells[i][j] > best {
				best = g.cells[i][j]
				h, a = i, j
			}
		}
	}
	return h, a
}
