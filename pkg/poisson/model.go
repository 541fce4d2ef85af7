package poisson

import "math"

/////////////////////////////////////////////////////////////////////////
////// Fitted Model
/////////////////////////////////////////////////////////////////////////

// Model is an immutable set of fitted ratings and league baselines. Every
// prediction method is pure, so a Model is safe for any number of concurrent
// readers; taking on new results means fitting a fresh Model and swapping the
// reference, never mutating one in place.
type Model struct {
	params   Params
	baseline LeagueBaseline
	ratings  map[string]TeamRating
	teams    []string
}

// Params returns the parameters the model was fitted with.
func (m *Model) Params() Params { return m.params }

// Baseline returns the league-wide average goals per match.
func (m *Model) Baseline() LeagueBaseline { return m.baseline }

// Teams returns the fitted team names in sorted order.
func (m *Model) Teams() []string {
	out := make([]string, len(m.teams))
	copy(out, m.teams)
	return out
}

// Rating returns the fitted rating for a team and whether the team is known.
func (m *Model) Rating(team string) (TeamRating, bool) {
	r, ok := m.ratings[team]
	return r, ok
}

// ExpectedGoals projects the Poisson goal rates for a fixture between two
// fitted teams, rounded to 2 decimal places. Home advantage enters as a flat
// goal bonus on the home rate only, never a multiplier: the edge from playing
// at home is modeled as independent of team strength. An unseen team fails
// with UnknownTeamError rather than silently taking league-average ratings,
// which would corrupt output with no indication.
func (m *Model) ExpectedGoals(homeTeam, awayTeam string) (homeXG, awayXG float64, err error) {
	home, ok := m.ratings[homeTeam]
	if !ok {
		return 0, 0, &UnknownTeamError{Team: homeTeam, Known: m.Teams()}
	}
	away, ok := m.ratings[awayTeam]
	if !ok {
		return 0, 0, &UnknownTeamError{Team: awayTeam, Known: m.Teams()}
	}

	homeXG = home.HomeAttack*away.AwayDefense*m.baseline.AvgHomeGoals + m.params.HomeAdvantage
	awayXG = away.AwayAttack*home.HomeDefense*m.baseline.AvgAwayGoals

	return round2(homeXG), round2(awayXG), nil
}

// Prediction is the reported probability set for one fixture. Probabilities
// are rounded to 4 decimal places and expected goals to 2, matching how they
// are published downstream.
type Prediction struct {
	HomeTeam string  `json:"home_team"`
	AwayTeam string  `json:"away_team"`
	HomeXG   float64 `json:"home_xg"`
	AwayXG   float64 `json:"away_xg"`
	HomeWin  float64 `json:"home_win"`
	Draw     float64 `json:"draw"`
	AwayWin  float64 `json:"away_win"`
	Over2p5  float64 `json:"over_2.5"`
	Under2p5 float64 `json:"under_2.5"`
	Over1p5  float64 `json:"over_1.5"`
	Under1p5 float64 `json:"under_1.5"`
	BTTSYes  float64 `json:"btts_yes"`
	BTTSNo   float64 `json:"btts_no"`
}

// Predict derives the full outcome probability set for a fixture. Home and
// away goals are treated as independent Poisson variables at the projected
// rates, over a scoreline grid bounded at Params.MaxGoals per side. The
// under and no probabilities are complements of their over and yes
// counterparts, so tail mass beyond the bound lands on the under/no side.
func (m *Model) Predict(homeTeam, awayTeam string) (*Prediction, error) {
	return m.PredictAt(homeTeam, awayTeam, 0)
}

// PredictAt is Predict with the grid bounded at maxGoals instead of the
// fitted default. Pass maxGoals <= 0 for the configured value.
func (m *Model) PredictAt(homeTeam, awayTeam string, maxGoals int) (*Prediction, error) {
	homeXG, awayXG, err := m.ExpectedGoals(homeTeam, awayTeam)
	if err != nil {
		return nil, err
	}
	if maxGoals <= 0 {
		maxGoals = m.params.MaxGoals
	}

	grid := NewScoreGrid(homeXG, awayXG, m.params.Rho, maxGoals)
	homeWin, draw, awayWin := grid.MatchOdds()
	over2p5, _ := grid.OverUnder(2.5)
	over1p5, _ := grid.OverUnder(1.5)
	btts, _ := grid.BothTeamsToScore()

	return &Prediction{
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
		HomeXG:   homeXG,
		AwayXG:   awayXG,
		HomeWin:  round4(homeWin),
		Draw:     round4(draw),
		AwayWin:  round4(awayWin),
		Over2p5:  round4(over2p5),
		Under2p5: round4(1 - over2p5),
		Over1p5:  round4(over1p5),
		Under1p5: round4(1 - over1p5),
		BTTSYes:  round4(btts),
		BTTSNo:   round4(1 - btts),
	}, nil
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// round4 rounds to 4 decimal places, half away from zero.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
