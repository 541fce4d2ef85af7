package poisson

import (
	"fmt"
	"sort"
)

/////////////////////////////////////////////////////////////////////////
////// Correct Score Ranking
/////////////////////////////////////////////////////////////////////////

// correctScoreBound caps the correct-score scan at 6 goals per side. The 7x7
// grid covers every scoreline with meaningful mass at this league's scoring
// rates, and is fixed independently of Params.MaxGoals.
const correctScoreBound = 6

// Scoreline is one exact-score outcome with its probability and fair odds.
type Scoreline struct {
	HomeGoals   int     `json:"home_goals"`
	AwayGoals   int     `json:"away_goals"`
	Probability float64 `json:"probability"`
	FairOdds    float64 `json:"fair_odds"`
}

// Score returns the scoreline in "h-a" display form.
func (s Scoreline) Score() string {
	return fmt.Sprintf("%d-%d", s.HomeGoals, s.AwayGoals)
}

// CorrectScores ranks the most probable exact scorelines over the fixed
// 0-6 by 0-6 grid, most probable first. Pass topN <= 0 for the configured
// default. Fair odds are the reciprocal of the unrounded probability; a
// zero-probability scoreline carries +Inf rather than failing, since zero
// cells arise legitimately when a projected rate is 0.00. Equal
// probabilities order lexicographically by (home, away) goals so the ranking
// is deterministic for identical input.
func (m *Model) CorrectScores(homeTeam, awayTeam string, topN int) ([]Scoreline, error) {
	homeXG, awayXG, err := m.ExpectedGoals(homeTeam, awayTeam)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = m.params.TopScores
	}

	grid := NewScoreGrid(homeXG, awayXG, m.params.Rho, correctScoreBound)

	type rankedScore struct {
		line Scoreline
		raw  float64
	}

	cellCount := (correctScoreBound + 1) * (correctScoreBound + 1)
	ranked := make([]rankedScore, 0, cellCount)
	for h := 0; h <= correctScoreBound; h++ {
		for a := 0; a <= correctScoreBound; a++ {
			p := grid.Prob(h, a)
			ranked = append(ranked, rankedScore{
				line: Scoreline{
					HomeGoals:   h,
					AwayGoals:   a,
					Probability: round4(p),
					FairOdds:    FairOdds(p),
				},
				raw: p,
			})
		}
	}

	// Rank on the unrounded probabilities so near-ties at display precision
	// cannot reorder genuinely distinct outcomes.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].raw != ranked[j].raw {
			return ranked[i].raw > ranked[j].raw
		}
		if ranked[i].line.HomeGoals != ranked[j].line.HomeGoals {
			return ranked[i].line.HomeGoals < ranked[j].line.HomeGoals
		}
		return ranked[i].line.AwayGoals < ranked[j].line.AwayGoals
	})

	if topN > len(ranked) {
		topN = len(ranked)
	}
	scores := make([]Scoreline, topN)
	for i := 0; i < topN; i++ {
		scores[i] = ranked[i].line
	}
	return scores, nil
}
