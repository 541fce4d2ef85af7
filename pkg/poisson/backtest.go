package poisson

import (
	"errors"
	"sort"
	"time"
)

/////////////////////////////////////////////////////////////////////////
////// Walk-Forward Backtesting
/////////////////////////////////////////////////////////////////////////

// DefaultMinTraining is the number of completed matches required before the
// backtest starts scoring predictions. Earlier fixtures carry too little
// rating signal to be a fair test.
const DefaultMinTraining = 10

// MatchEvaluation holds accuracy metrics for a single backtested fixture.
// The predicted goals are the modal scoreline of the fitted distribution at
// the time of the fixture.
type MatchEvaluation struct {
	Date                time.Time
	HomeTeam            string
	AwayTeam            string
	ActualHomeGoals     int
	ActualAwayGoals     int
	PredictedHomeGoals  int
	PredictedAwayGoals  int
	HomeWin             float64
	Draw                float64
	AwayWin             float64
	OutcomeProbability  float64
	ResultCorrect       bool
	ExactScoreCorrect   bool
	GoalDifferenceError int
	TotalGoalsError     int
	Brier               float64
}

// BacktestReport aggregates evaluation results across a replayed dataset.
// Accuracy figures are percentages. AverageOutcomeProbability is the mean
// probability the model assigned to the result that actually happened
// (0.333 is the uniform-guess floor). Brier is the mean squared error of
// the 1X2 probability vector against the observed outcome (lower is
// better, 0.667 is the uniform-guess ceiling).
type BacktestReport struct {
	TotalMatches              int
	SkippedMatches            int
	ResultAccuracy            float64
	ExactScoreAccuracy        float64
	AverageGoalDiffError      float64
	AverageTotalGoalsError    float64
	AverageOutcomeProbability float64
	AverageBrier              float64
	Evaluations               []MatchEvaluation
}

// Backtest replays the dataset in date order: for each fixture with at least
// minTraining completed matches before it, a model is refitted on that
// history alone and its prediction scored against the actual result. This
// never lets a prediction see its own outcome, so the accuracy figures are
// honest out-of-sample estimates. Fixtures inside the warm-up window, or
// involving a team with no prior appearances, are skipped rather than
// failed. Pass minTraining <= 0 for the default.
func Backtest(records []MatchResult, params Params, minTraining int) (*BacktestReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &InsufficientDataError{}
	}
	if minTraining <= 0 {
		minTraining = DefaultMinTraining
	}

	ordered := make([]MatchResult, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	report := &BacktestReport{}
	for i, rec := range ordered {
		if i < minTraining {
			report.SkippedMatches++
			continue
		}

		model, err := Fit(ordered[:i], params)
		if err != nil {
			return nil, err
		}

		pred, err := model.Predict(rec.HomeTeam, rec.AwayTeam)
		if err != nil {
			var unknown *UnknownTeamError
			if errors.As(err, &unknown) {
				// Team's first appearance of the season; nothing to rate yet.
				report.SkippedMatches++
				continue
			}
			return nil, err
		}

		report.Evaluations = append(report.Evaluations, evaluateMatch(rec, pred, params.Rho))
	}

	aggregate(report)
	return report, nil
}

// evaluateMatch scores one prediction against the played result.
func evaluateMatch(rec MatchResult, pred *Prediction, rho float64) MatchEvaluation {
	grid := NewScoreGrid(pred.HomeXG, pred.AwayXG, rho, correctScoreBound)
	predHome, predAway := grid.MostLikelyScore()

	eval := MatchEvaluation{
		Date:               rec.Date,
		HomeTeam:           rec.HomeTeam,
		AwayTeam:           rec.AwayTeam,
		ActualHomeGoals:    rec.HomeGoals,
		ActualAwayGoals:    rec.AwayGoals,
		PredictedHomeGoals: predHome,
		PredictedAwayGoals: predAway,
		HomeWin:            pred.HomeWin,
		Draw:               pred.Draw,
		AwayWin:            pred.AwayWin,
	}

	eval.ExactScoreCorrect = predHome == rec.HomeGoals && predAway == rec.AwayGoals

	actual := matchOutcome(rec.HomeGoals, rec.AwayGoals)
	eval.ResultCorrect = pickOutcome(pred.HomeWin, pred.Draw, pred.AwayWin) == actual

	eval.GoalDifferenceError = abs((rec.HomeGoals - rec.AwayGoals) - (predHome - predAway))
	eval.TotalGoalsError = abs((rec.HomeGoals + rec.AwayGoals) - (predHome + predAway))

	var oHome, oDraw, oAway float64
	switch actual {
	case "H":
		oHome = 1
		eval.OutcomeProbability = pred.HomeWin
	case "D":
		oDraw = 1
		eval.OutcomeProbability = pred.Draw
	case "A":
		oAway = 1
		eval.OutcomeProbability = pred.AwayWin
	}
	eval.Brier = (pred.HomeWin-oHome)*(pred.HomeWin-oHome) +
		(pred.Draw-oDraw)*(pred.Draw-oDraw) +
		(pred.AwayWin-oAway)*(pred.AwayWin-oAway)

	return eval
}

// aggregate fills the report's summary statistics from its evaluations.
func aggregate(report *BacktestReport) {
	report.TotalMatches = len(report.Evaluations)
	if report.TotalMatches == 0 {
		return
	}

	var exactCount, resultCount int
	var goalDiffError, totalGoalsError int
	var probTotal, brierTotal float64
	for _, eval := range report.Evaluations {
		if eval.ExactScoreCorrect {
			exactCount++
		}
		if eval.ResultCorrect {
			resultCount++
		}
		goalDiffError += eval.GoalDifferenceError
		totalGoalsError += eval.TotalGoalsError
		probTotal += eval.OutcomeProbability
		brierTotal += eval.Brier
	}

	n := float64(report.TotalMatches)
	report.ExactScoreAccuracy = float64(exactCount) / n * 100
	report.ResultAccuracy = float64(resultCount) / n * 100
	report.AverageGoalDiffError = float64(goalDiffError) / n
	report.AverageTotalGoalsError = float64(totalGoalsError) / n
	report.AverageOutcomeProbability = probTotal / n
	report.AverageBrier = brierTotal / n
}

// matchOutcome returns "H" for a home win, "D" for a draw, "A" for an away win.
func matchOutcome(homeGoals, awayGoals int) string {
	if homeGoals > awayGoals {
		return "H"
	} else if homeGoals < awayGoals {
		return "A"
	}
	return "D"
}

// pickOutcome returns the highest-probability result, preferring the home
// win and then the draw on exact ties.
func pickOutcome(homeWin, draw, awayWin float64) string {
	best, pick := homeWin, "H"
	if draw > best {
		best, pick = draw, "D"
	}
	if awayWin > best {
		pick = "A"
	}
	return pick
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
