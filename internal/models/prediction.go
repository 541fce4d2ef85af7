package models

import (
	"fmt"
	"time"

	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// StoredPrediction is the persisted output of one Predict call, keyed by
// the fixture pairing so each refit upserts in place.
type StoredPrediction struct {
	HomeTeam string `json:"homeTeam" column:"homeTeam" dbtype:"TEXT NOT NULL" primary:"true"`
	AwayTeam string `json:"awayTeam" column:"awayTeam" dbtype:"TEXT NOT NULL" primary:"true"`

	HomeXG float64 `json:"homeXg" column:"homeXg" dbtype:"REAL DEFAULT -1.0"`
	AwayXG float64 `json:"awayXg" column:"awayXg" dbtype:"REAL DEFAULT -1.0"`

	HomeWin  float64 `json:"homeWin" column:"homeWin" dbtype:"REAL DEFAULT -1.0"`
	Draw     float64 `json:"draw" column:"draw" dbtype:"REAL DEFAULT -1.0"`
	AwayWin  float64 `json:"awayWin" column:"awayWin" dbtype:"REAL DEFAULT -1.0"`
	Over2p5  float64 `json:"over2p5" column:"over2p5" dbtype:"REAL DEFAULT -1.0"`
	Under2p5 float64 `json:"under2p5" column:"under2p5" dbtype:"REAL DEFAULT -1.0"`
	Over1p5  float64 `json:"over1p5" column:"over1p5" dbtype:"REAL DEFAULT -1.0"`
	Under1p5 float64 `json:"under1p5" column:"under1p5" dbtype:"REAL DEFAULT -1.0"`
	BTTSYes  float64 `json:"bttsYes" column:"bttsYes" dbtype:"REAL DEFAULT -1.0"`
	BTTSNo   float64 `json:"bttsNo" column:"bttsNo" dbtype:"REAL DEFAULT -1.0"`

	FittedAt time.Time `json:"fittedAt" column:"fitted_at" dbtype:"DATETIME" index:"true"`
}

// FromPrediction copies a model report into its storable form.
func FromPrediction(p *poisson.Prediction, fittedAt time.Time) *StoredPrediction {
	return &StoredPrediction{
		HomeTeam: p.HomeTeam,
		AwayTeam: p.AwayTeam,
		HomeXG:   p.HomeXG,
		AwayXG:   p.AwayXG,
		HomeWin:  p.HomeWin,
		Draw:     p.Draw,
		AwayWin:  p.AwayWin,
		Over2p5:  p.Over2p5,
		Under2p5: p.Under2p5,
		Over1p5:  p.Over1p5,
		Under1p5: p.Under1p5,
		BTTSYes:  p.BTTSYes,
		BTTSNo:   p.BTTSNo,
		FittedAt: fittedAt,
	}
}

// ToPrediction restores the model report form.
func (s *StoredPrediction) ToPrediction() *poisson.Prediction {
	return &poisson.Prediction{
		HomeTeam: s.HomeTeam,
		AwayTeam: s.AwayTeam,
		HomeXG:   s.HomeXG,
		AwayXG:   s.AwayXG,
		HomeWin:  s.HomeWin,
		Draw:     s.Draw,
		AwayWin:  s.AwayWin,
		Over2p5:  s.Over2p5,
		Under2p5: s.Under2p5,
		Over1p5:  s.Over1p5,
		Under1p5: s.Under1p5,
		BTTSYes:  s.BTTSYes,
		BTTSNo:   s.BTTSNo,
	}
}

// GetTableName returns the table name for stored predictions.
func (s *StoredPrediction) GetTableName() string {
	return "predictions"
}

// GetPrimaryKey returns the compound primary key as a map.
func (s *StoredPrediction) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"homeTeam": s.HomeTeam,
		"awayTeam": s.AwayTeam,
	}
}

// SetPrimaryKey sets the compound primary key from a map.
func (s *StoredPrediction) SetPrimaryKey(pk map[string]interface{}) error {
	home, ok := pk["homeTeam"].(string)
	if !ok {
		return fmt.Errorf("primary key 'homeTeam' must be a string")
	}
	away, ok := pk["awayTeam"].(string)
	if !ok {
		return fmt.Errorf("primary key 'awayTeam' must be a string")
	}
	s.HomeTeam = home
	s.AwayTeam = away
	return nil
}

// BeforeSave stamps the fit time when absent.
func (s *StoredPrediction) BeforeSave() error {
	if s.FittedAt.IsZero() {
		s.FittedAt = time.Now().UTC()
	}
	return nil
}

// AfterSave is called after saving the prediction.
func (s *StoredPrediction) AfterSave() error { return nil }

// BeforeDelete is called before deleting the prediction.
func (s *StoredPrediction) BeforeDelete() error { return nil }

// AfterDelete is called after deleting the prediction.
func (s *StoredPrediction) AfterDelete() error { return nil }
