package models

import (
	"fmt"
	"time"

	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// ClosingOdds is one bookmaker's final pre-kickoff price set for a match,
// persisted to the closing_odds table. Markets a bookmaker did not price
// stay at the -1 default and are excluded from averaging.
type ClosingOdds struct {
	MatchID   string `json:"matchId" column:"matchId" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Bookmaker string `json:"bookmaker" column:"bookmaker" dbtype:"TEXT NOT NULL" primary:"true"`

	HomeOdds     float64 `json:"homeOdds" column:"homeOdds" dbtype:"REAL DEFAULT -1.0"`
	DrawOdds     float64 `json:"drawOdds" column:"drawOdds" dbtype:"REAL DEFAULT -1.0"`
	AwayOdds     float64 `json:"awayOdds" column:"awayOdds" dbtype:"REAL DEFAULT -1.0"`
	Over2p5Odds  float64 `json:"over2p5Odds" column:"over2p5Odds" dbtype:"REAL DEFAULT -1.0"`
	Under2p5Odds float64 `json:"under2p5Odds" column:"under2p5Odds" dbtype:"REAL DEFAULT -1.0"`

	RecordedAt time.Time `json:"recordedAt" column:"recorded_at" dbtype:"DATETIME"`
}

// GetTableName returns the table name for closing odds.
func (o *ClosingOdds) GetTableName() string {
	return "closing_odds"
}

// GetPrimaryKey returns the compound primary key as a map.
func (o *ClosingOdds) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"matchId":   o.MatchID,
		"bookmaker": o.Bookmaker,
	}
}

// SetPrimaryKey sets the compound primary key from a map.
func (o *ClosingOdds) SetPrimaryKey(pk map[string]interface{}) error {
	matchID, ok := pk["matchId"].(string)
	if !ok {
		return fmt.Errorf("primary key 'matchId' must be a string")
	}
	bookmaker, ok := pk["bookmaker"].(string)
	if !ok {
		return fmt.Errorf("primary key 'bookmaker' must be a string")
	}
	o.MatchID = matchID
	o.Bookmaker = bookmaker
	return nil
}

// BeforeSave stamps the record time when absent.
func (o *ClosingOdds) BeforeSave() error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	return nil
}

// AfterSave is called after saving the odds row.
func (o *ClosingOdds) AfterSave() error { return nil }

// BeforeDelete is called before deleting the odds row.
func (o *ClosingOdds) BeforeDelete() error { return nil }

// AfterDelete is called after deleting the odds row.
func (o *ClosingOdds) AfterDelete() error { return nil }

// Valid reports whether every present price is a usable decimal (>= 1.0).
// Absent markets (-1 default) do not fail validation.
func (o *ClosingOdds) Valid() bool {
	for _, price := range []float64{o.HomeOdds, o.DrawOdds, o.AwayOdds, o.Over2p5Odds, o.Under2p5Odds} {
		if price >= 0 && price < 1.0 {
			return false
		}
	}
	return true
}

// AverageOdds collapses per-bookmaker rows into one market map keyed the
// way the value calculator expects. Each market averages only the
// bookmakers that priced it; unpriced markets are left out entirely.
func AverageOdds(rows []*ClosingOdds) map[string]float64 {
	sums := make(map[string]float64, 5)
	counts := make(map[string]int, 5)

	add := func(market string, price float64) {
		if price < 1.0 {
			return
		}
		sums[market] += price
		counts[market]++
	}

	for _, row := range rows {
		add(poisson.MarketHome, row.HomeOdds)
		add(poisson.MarketDraw, row.DrawOdds)
		add(poisson.MarketAway, row.AwayOdds)
		add(poisson.MarketOver2p5, row.Over2p5Odds)
		add(poisson.MarketUnder2p5, row.Under2p5Odds)
	}

	averaged := make(map[string]float64, len(sums))
	for market, sum := range sums {
		averaged[market] = sum / float64(counts[market])
	}
	return averaged
}
