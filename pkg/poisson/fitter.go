package poisson

import (
	"sort"
	"time"
)

/////////////////////////////////////////////////////////////////////////
////// Input Records and Derived Ratings
/////////////////////////////////////////////////////////////////////////

// MatchResult is a single completed fixture as supplied by the data layer.
// Goals must be non-negative and the two team names must differ; unplayed
// fixtures have no place here. The data layer is responsible for filtering
// them out before fitting.
type MatchResult struct {
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeGoals int
	AwayGoals int
}

// TeamRating holds the four dimensionless strength multipliers for one team,
// each expressed relative to the league average rate for the corresponding
// role. A value of 1.0 means exactly league average. The match counts are
// retained for diagnostics only and play no part in projection.
type TeamRating struct {
	HomeAttack  float64
	HomeDefense float64
	AwayAttack  float64
	AwayDefense float64
	HomeMatches int
	AwayMatches int
}

// LeagueBaseline carries the league-wide scoring rates computed once per fit.
// These double as the fallback rating basis for teams missing a home or away
// history and as the multiplicative base rate in projection.
type LeagueBaseline struct {
	AvgHomeGoals float64
	AvgAwayGoals float64
}

/////////////////////////////////////////////////////////////////////////
////// Fitting
/////////////////////////////////////////////////////////////////////////

// Fitter accumulates match results and produces immutable Models. A single
// Fitter may be reused across fits; each Fit recomputes everything from the
// records held at that moment, so refitting with new data never leaks state
// from a previous model.
type Fitter struct {
	params  Params
	records []MatchResult
}

// NewFitter returns a Fitter using the given parameters.
func NewFitter(params Params) *Fitter {
	return &Fitter{params: params}
}

// Add appends match results to the fitting dataset.
func (f *Fitter) Add(records ...MatchResult) {
	f.records = append(f.records, records...)
}

// Len returns the number of results currently held.
func (f *Fitter) Len() int { return len(f.records) }

// Reset discards all held results.
func (f *Fitter) Reset() { f.records = f.records[:0] }

// Fit computes league baselines and per-team ratings from the held results
// and returns them as an immutable Model.
func (f *Fitter) Fit() (*Model, error) {
	return Fit(f.records, f.params)
}

// roleTotals accumulates raw goal counts for one team, split by venue role.
// Integer sums keep the fit exact and independent of record order.
type roleTotals struct {
	homeScored   int
	homeConceded int
	awayScored   int
	awayConceded int
	homeMatches  int
	awayMatches  int
}

// Fit computes a full set of team ratings and league baselines from the given
// results. The fit is a complete recomputation: nothing carries over from any
// previous model. Returns InsufficientDataError when records is empty.
func Fit(records []MatchResult, params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &InsufficientDataError{}
	}

	var homeGoalTotal, awayGoalTotal int
	totals := make(map[string]*roleTotals)

	for _, r := range records {
		homeGoalTotal += r.HomeGoals
		awayGoalTotal += r.AwayGoals

		h := totalsFor(totals, r.HomeTeam)
		h.homeScored += r.HomeGoals
		h.homeConceded += r.AwayGoals
		h.homeMatches++

		a := totalsFor(totals, r.AwayTeam)
		a.awayScored += r.AwayGoals
		a.awayConceded += r.HomeGoals
		a.awayMatches++
	}

	n := float64(len(records))
	baseline := LeagueBaseline{
		AvgHomeGoals: float64(homeGoalTotal) / n,
		AvgAwayGoals: float64(awayGoalTotal) / n,
	}

	// Sorted team order gives UnknownTeamError a stable listing and keeps
	// any iteration over Teams reproducible.
	teams := make([]string, 0, len(totals))
	for name := range totals {
		teams = append(teams, name)
	}
	sort.Strings(teams)

	ratings := make(map[string]TeamRating, len(teams))
	for _, name := range teams {
		t := totals[name]

		// A team with no history in a role takes the league baseline for
		// that role, which lands it on a neutral 1.0 multiplier below.
		homeScored := baseline.AvgHomeGoals
		homeConceded := baseline.AvgAwayGoals
		if t.homeMatches > 0 {
			hm := float64(t.homeMatches)
			homeScored = float64(t.homeScored) / hm
			homeConceded = float64(t.homeConceded) / hm
		}

		awayScored := baseline.AvgAwayGoals
		awayConceded := baseline.AvgHomeGoals
		if t.awayMatches > 0 {
			am := float64(t.awayMatches)
			awayScored = float64(t.awayScored) / am
			awayConceded = float64(t.awayConceded) / am
		}

		// Each rating is normalized against the baseline matching the
		// goals dimension it measures: defenses concede the other side's
		// goals, so home defense divides by the away-goals baseline and
		// away defense by the home-goals baseline.
		ratings[name] = TeamRating{
			HomeAttack:  ratio(homeScored, baseline.AvgHomeGoals),
			HomeDefense: ratio(homeConceded, baseline.AvgAwayGoals),
			AwayAttack:  ratio(awayScored, baseline.AvgAwayGoals),
			AwayDefense: ratio(awayConceded, baseline.AvgHomeGoals),
			HomeMatches: t.homeMatches,
			AwayMatches: t.awayMatches,
		}
	}

	return &Model{
		params:   params,
		baseline: baseline,
		ratings:  ratings,
		teams:    teams,
	}, nil
}

func totalsFor(m map[string]*roleTotals, team string) *roleTotals {
	t, ok := m[team]
	if !ok {
		t = &roleTotals{}
		m[team] = t
	}
	return t
}

// ratio expresses a per-match rate relative to a league baseline. A zero
// baseline (degenerate all-zero-goals dataset) yields the neutral multiplier
// 1.0 rather than dividing by zero.
func ratio(rate, baseline float64) float64 {
	if baseline == 0 {
		return 1.0
	}
	return rate / baseline
}
