package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/canpl-analytics/cplodds/internal/api"
	"github.com/canpl-analytics/cplodds/internal/client"
	"github.com/canpl-analytics/cplodds/internal/config"
	"github.com/canpl-analytics/cplodds/internal/datasource"
	"github.com/canpl-analytics/cplodds/internal/league"
	"github.com/canpl-analytics/cplodds/internal/logger"
	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/internal/scheduler"
	"github.com/canpl-analytics/cplodds/internal/store"
	"github.com/canpl-analytics/cplodds/internal/validator"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logger.SetupCLI(cfg.LogLevel)

	var err error
	switch os.Args[1] {
	case "load":
		err = runLoad(cfg)
	case "sync":
		err = runSync(cfg)
	case "validate":
		err = runValidate(cfg)
	case "predict":
		err = runPredict(cfg, os.Args[2:])
	case "table":
		err = runTable(cfg, os.Args[2:])
	case "backtest":
		err = runBacktest(cfg, os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`Usage: cplodds <command> [options]

Commands:
  load                     Load season CSV files into the database
  sync                     Sync finished matches from the CanPL API
  validate                 Run data quality checks over the CSV dataset
  predict <home> <away>    Predict a fixture (options: -max-goals, -top)
  table                    Print the league table (option: -season)
  backtest                 Walk-forward accuracy report (option: -min-training)
`)
}

/////////////////////////////////////////////////////////////////////////
////// Commands
/////////////////////////////////////////////////////////////////////////

// runLoad loads the per-season CSV files into the store, refusing
// error-level data.
func runLoad(cfg *config.Config) error {
	loader := datasource.New(cfg.DataDir)

	matches, err := loader.LoadMatches(cfg.Seasons()...)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no match files found under %s", cfg.DataDir)
	}

	report := validator.New().ValidateMatches(matches)
	fmt.Printf("Validation: %s\n", report.Summary())
	printFailures(report)
	if !report.OK() {
		return fmt.Errorf("dataset failed validation, nothing loaded")
	}

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveMatches(matches); err != nil {
		return err
	}
	fmt.Printf("Loaded %d matches\n", len(matches))

	odds, err := loader.LoadClosingOdds(cfg.Seasons()...)
	if err != nil {
		return err
	}
	if len(odds) > 0 {
		if err := db.SaveClosingOdds(odds); err != nil {
			return err
		}
		fmt.Printf("Loaded %d closing odds rows\n", len(odds))
	}
	return nil
}

// runSync pulls finished matches from the CanPL API into the store.
func runSync(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	apiClient := client.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIMaxRetries, cfg.APIRequestDelay)
	if err := scheduler.New(cfg, apiClient, db, nil).SyncNow(ctx); err != nil {
		return err
	}

	count, err := db.CountMatches()
	if err != nil {
		return err
	}
	fmt.Printf("Database holds %d matches\n", count)
	return nil
}

// runValidate checks the CSV dataset without writing anything.
func runValidate(cfg *config.Config) error {
	loader := datasource.New(cfg.DataDir)
	matches, err := loader.LoadMatches(cfg.Seasons()...)
	if err != nil {
		return err
	}

	report := validator.New().ValidateMatches(matches)
	fmt.Printf("Checked %d matches: %s\n", len(matches), report.Summary())
	printFailures(report)
	if !report.OK() {
		return fmt.Errorf("dataset failed validation")
	}
	return nil
}

func printFailures(report *validator.Report) {
	for _, f := range report.Failures(validator.SeverityError) {
		fmt.Printf("  ERROR  %s: %s\n", f.Check, f.Message)
	}
	for _, f := range report.Failures(validator.SeverityWarning) {
		fmt.Printf("  WARN   %s: %s\n", f.Check, f.Message)
	}
}

// runPredict fits a model from stored matches and prints the full outcome
// report for one fixture.
func runPredict(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("predict", flag.ExitOnError)
	maxGoals := flags.Int("max-goals", 0, "per-side goal bound for the outcome grid")
	topN := flags.Int("top", 0, "number of correct scores to list")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: cplodds predict [options] <home> <away>")
	}

	db, model, err := openAndFit(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	home := api.ResolveTeam(model, flags.Arg(0))
	away := api.ResolveTeam(model, flags.Arg(1))

	pred, err := model.PredictAt(home, away, *maxGoals)
	if err != nil {
		return err
	}
	scores, err := model.CorrectScores(home, away, *topN)
	if err != nil {
		return err
	}

	fmt.Printf("%s vs %s\n", pred.HomeTeam, pred.AwayTeam)
	fmt.Printf("Expected goals: %.2f - %.2f\n\n", pred.HomeXG, pred.AwayXG)

	fmt.Println("Market           Probability  Fair odds")
	printMarket := func(label string, p float64) {
		if p == 0 {
			fmt.Printf("%-16s %10.1f%%          -\n", label, 0.0)
			return
		}
		fmt.Printf("%-16s %10.1f%%  %9.2f\n", label, p*100, poisson.FairOdds(p))
	}
	printMarket("Home win", pred.HomeWin)
	printMarket("Draw", pred.Draw)
	printMarket("Away win", pred.AwayWin)
	printMarket("Over 2.5", pred.Over2p5)
	printMarket("Under 2.5", pred.Under2p5)
	printMarket("Over 1.5", pred.Over1p5)
	printMarket("Under 1.5", pred.Under1p5)
	printMarket("BTTS yes", pred.BTTSYes)
	printMarket("BTTS no", pred.BTTSNo)

	fmt.Println("\nMost likely scorelines")
	for i, s := range scores {
		fmt.Printf("%2d. %-5s %6.2f%%\n", i+1, s.Score(), s.Probability*100)
	}

	printClosingValue(db, pred)
	return nil
}

// printClosingValue reports EV against the latest stored closing odds for
// the pairing, when any exist.
func printClosingValue(db *store.Store, pred *poisson.Prediction) {
	matches, err := db.AllMatches()
	if err != nil {
		return
	}

	var latest *models.Match
	for _, m := range matches {
		if m.HomeTeam == pred.HomeTeam && m.AwayTeam == pred.AwayTeam {
			latest = m
		}
	}
	if latest == nil {
		return
	}

	odds, err := db.MarketOddsForMatch(latest.ID)
	if err != nil || len(odds) == 0 {
		return
	}

	fmt.Printf("\nValue vs closing odds (%s)\n", latest.Date.Format("2006-01-02"))
	fmt.Println("Market       Odds      EV")
	labels := []struct {
		key   string
		label string
	}{
		{poisson.MarketHome, "Home win"},
		{poisson.MarketDraw, "Draw"},
		{poisson.MarketAway, "Away win"},
		{poisson.MarketOver2p5, "Over 2.5"},
		{poisson.MarketUnder2p5, "Under 2.5"},
	}
	value := poisson.CalculateValue(pred, odds)
	for _, l := range labels {
		ev, ok := value[l.key]
		if !ok {
			continue
		}
		fmt.Printf("%-12s %5.2f  %+6.2f%%\n", l.label, odds[l.key], ev)
	}
}

// runTable prints the standings computed from stored matches, all seasons
// combined unless one is asked for.
func runTable(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("table", flag.ExitOnError)
	season := flags.Int("season", 0, "restrict the table to one season year")
	if err := flags.Parse(args); err != nil {
		return err
	}

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	var matches []*models.Match
	if *season > 0 {
		matches, err = db.MatchesBySeason(*season)
	} else {
		matches, err = db.FinishedMatches()
	}
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no matches stored, run load or sync first")
	}

	fmt.Println("Pos  Team                 P   W   D   L   GF  GA  GD  Pts  Form")
	for _, e := range league.Table(matches) {
		fmt.Printf("%3d  %-19s %3d %3d %3d %3d  %3d %3d %+3d  %3d  %s\n",
			e.Position, e.Team, e.Played, e.Wins, e.Draws, e.Losses,
			e.GoalsFor, e.GoalsAgainst, e.GoalDiff, e.Points,
			league.Form(matches, e.Team, 5))
	}
	return nil
}

// runBacktest replays stored matches and prints the accuracy report.
func runBacktest(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("backtest", flag.ExitOnError)
	minTraining := flags.Int("min-training", 0, "completed matches required before scoring starts")
	if err := flags.Parse(args); err != nil {
		return err
	}

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.FinishedMatches()
	if err != nil {
		return err
	}

	report, err := poisson.Backtest(models.ToResults(matches), cfg.ModelParams(), *minTraining)
	if err != nil {
		return err
	}

	fmt.Printf("Backtest over %d matches (%d skipped)\n\n", report.TotalMatches, report.SkippedMatches)
	fmt.Printf("1X2 accuracy:         %6.2f%%\n", report.ResultAccuracy)
	fmt.Printf("Exact score accuracy: %6.2f%%\n", report.ExactScoreAccuracy)
	fmt.Printf("Avg goal diff error:  %6.2f\n", report.AverageGoalDiffError)
	fmt.Printf("Avg total goals off:  %6.2f\n", report.AverageTotalGoalsError)
	fmt.Printf("Mean outcome prob:    %6.3f\n", report.AverageOutcomeProbability)
	fmt.Printf("Mean Brier score:     %6.3f\n", report.AverageBrier)
	return nil
}

// openAndFit opens the store and fits a model from its finished matches.
func openAndFit(cfg *config.Config) (*store.Store, *poisson.Model, error) {
	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}

	matches, err := db.FinishedMatches()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	records := models.ToResults(matches)
	if len(records) == 0 {
		db.Close()
		return nil, nil, fmt.Errorf("no matches stored, run load or sync first")
	}

	model, err := poisson.Fit(records, cfg.ModelParams())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, model, nil
}
