package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cplodds_test.db"))
	require.NoError(t, err, "opening a fresh database must succeed")
	t.Cleanup(func() { s.Close() })
	return s
}

func testMatch(day int, home, away string, homeGoals, awayGoals int) *models.Match {
	return &models.Match{
		Season:    2024,
		Date:      time.Date(2024, 4, 1+day, 19, 0, 0, 0, time.UTC),
		Status:    models.StatusFinished,
		HomeTeam:  home,
		AwayTeam:  away,
		HomeGoals: homeGoals,
		AwayGoals: awayGoals,
	}
}

func TestSaveMatchUpserts(t *testing.T) {
	s := newTestStore(t)

	m := testMatch(0, "Forge FC", "Cavalry FC", 2, 1)
	require.NoError(t, s.SaveMatch(m))
	assert.Equal(t, "forge_fc_vs_cavalry_fc_20240401", m.ID, "the slug is derived on first save")

	loaded, err := s.MatchByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Forge FC", loaded.HomeTeam)
	assert.Equal(t, 2, loaded.HomeGoals)
	assert.WithinDuration(t, m.Date, loaded.Date, time.Second)

	// Saving the same fixture again must update in place, not duplicate.
	m.HomeGoals = 3
	require.NoError(t, s.SaveMatch(m))

	count, err := s.CountMatches()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err = s.MatchByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.HomeGoals)
}

func TestFinishedMatchesFeedTheModel(t *testing.T) {
	s := newTestStore(t)

	future := testMatch(9, "Pacific FC", "Valour FC", -1, -1)
	future.Status = models.StatusScheduled

	require.NoError(t, s.SaveMatches([]*models.Match{
		testMatch(2, "Cavalry FC", "Pacific FC", 0, 0),
		testMatch(0, "Forge FC", "Cavalry FC", 2, 1),
		future,
		testMatch(1, "Valour FC", "Forge FC", 1, 3),
	}))

	finished, err := s.FinishedMatches()
	require.NoError(t, err)
	require.Len(t, finished, 3, "scheduled fixtures are not training data")
	assert.Equal(t, "Forge FC", finished[0].HomeTeam, "results come back in date order")
	assert.Equal(t, "Valour FC", finished[1].HomeTeam)
	assert.Equal(t, "Cavalry FC", finished[2].HomeTeam)

	records := models.ToResults(finished)
	require.Len(t, records, 3)
	assert.Equal(t, poisson.MatchResult{
		Date:      finished[0].Date,
		HomeTeam:  "Forge FC",
		AwayTeam:  "Cavalry FC",
		HomeGoals: 2,
		AwayGoals: 1,
	}, records[0])
}

func TestMatchesBySeason(t *testing.T) {
	s := newTestStore(t)

	older := testMatch(0, "Pacific FC", "Valour FC", 1, 0)
	older.Season = 2023
	older.Date = older.Date.AddDate(-1, 0, 0)

	require.NoError(t, s.SaveMatches([]*models.Match{
		testMatch(0, "Forge FC", "Cavalry FC", 2, 1),
		testMatch(1, "Cavalry FC", "Forge FC", 0, 0),
		older,
	}))

	season, err := s.MatchesBySeason(2024)
	require.NoError(t, err)
	require.Len(t, season, 2)
	assert.Equal(t, "Forge FC", season[0].HomeTeam)

	empty, err := s.MatchesBySeason(2019)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTeamNames(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveMatches([]*models.Match{
		testMatch(0, "Forge FC", "Cavalry FC", 2, 1),
		testMatch(1, "Cavalry FC", "Pacific FC", 1, 1),
	}))

	names, err := s.TeamNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Cavalry FC", "Forge FC", "Pacific FC"}, names)
}

func TestClosingOddsAveraging(t *testing.T) {
	s := newTestStore(t)

	matchID := "forge_fc_vs_cavalry_fc_20240401"
	require.NoError(t, s.SaveClosingOdds([]*models.ClosingOdds{
		{
			MatchID: matchID, Bookmaker: "bet365",
			HomeOdds: 2.0, DrawOdds: 3.4, AwayOdds: 3.8,
			Over2p5Odds: 1.9, Under2p5Odds: 1.9,
		},
		{
			MatchID: matchID, Bookmaker: "pinnacle",
			HomeOdds: 2.2, DrawOdds: 3.6, AwayOdds: 3.6,
			Over2p5Odds: -1, Under2p5Odds: -1,
		},
	}))

	rows, err := s.ClosingOddsForMatch(matchID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bet365", rows[0].Bookmaker, "rows come back sorted by bookmaker")

	markets, err := s.MarketOddsForMatch(matchID)
	require.NoError(t, err)
	assert.InDelta(t, 2.1, markets[poisson.MarketHome], 1e-9, "home price averages both books")
	assert.InDelta(t, 3.5, markets[poisson.MarketDraw], 1e-9)
	assert.InDelta(t, 3.7, markets[poisson.MarketAway], 1e-9)
	assert.InDelta(t, 1.9, markets[poisson.MarketOver2p5], 1e-9, "totals come from the single book that priced them")
	assert.InDelta(t, 1.9, markets[poisson.MarketUnder2p5], 1e-9)

	// Re-saving a bookmaker's row replaces it rather than stacking a
	// second copy into the average.
	require.NoError(t, s.SaveClosingOdds([]*models.ClosingOdds{
		{
			MatchID: matchID, Bookmaker: "pinnacle",
			HomeOdds: 2.4, DrawOdds: 3.6, AwayOdds: 3.4,
			Over2p5Odds: -1, Under2p5Odds: -1,
		},
	}))

	count, err := s.CountClosingOdds()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	markets, err = s.MarketOddsForMatch(matchID)
	require.NoError(t, err)
	assert.InDelta(t, 2.2, markets[poisson.MarketHome], 1e-9)
}

func TestPredictionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	pred := &poisson.Prediction{
		HomeTeam: "Forge FC", AwayTeam: "Cavalry FC",
		HomeXG: 1.92, AwayXG: 0.5,
		HomeWin: 0.7154, Draw: 0.1973, AwayWin: 0.0874,
		Over2p5: 0.5432, Under2p5: 0.4568,
		Over1p5: 0.7789, Under1p5: 0.2211,
		BTTSYes: 0.3456, BTTSNo: 0.6544,
	}
	fittedAt := time.Date(2024, 4, 20, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.SavePrediction(models.FromPrediction(pred, fittedAt)))

	stored, err := s.PredictionFor("Forge FC", "Cavalry FC")
	require.NoError(t, err)
	assert.WithinDuration(t, fittedAt, stored.FittedAt, time.Second)
	assert.Equal(t, pred, stored.ToPrediction(), "the stored row restores the full report")

	_, err = s.PredictionFor("Forge FC", "Pacific FC")
	assert.Error(t, err, "an unseen pairing has no stored prediction")

	all, err := s.AllPredictions()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
