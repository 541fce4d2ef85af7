package poisson

import "fmt"

/////////////////////////////////////////////////////////////////////////
////// Model Parameters
/////////////////////////////////////////////////////////////////////////

// Params holds the tunable constants for rating estimation and prediction.
// The zero value is not useful; start from DefaultParams and override
// individual fields as required.
type Params struct {
	// === EXPECTED GOALS ===
	HomeAdvantage float64 // flat goal bonus added to the home side's rate only (default: 0.25)

	// === OUTCOME GRID ===
	MaxGoals int     // per-side goal bound for the outcome probability grid (default: 7)
	Rho      float64 // Dixon-Coles low-score correlation, 0 disables the correction (default: 0)

	// === CORRECT SCORES ===
	TopScores int // scorelines returned by CorrectScores when the caller passes topN <= 0 (default: 10)
}

// DefaultParams returns the parameter set used by the CPL model unless a
// caller overrides specific values.
func DefaultParams() Params {
	return Params{
		// === EXPECTED GOALS ===
		HomeAdvantage: 0.25,

		// === OUTCOME GRID ===
		MaxGoals: 7,
		Rho:      0.0,

		// === CORRECT SCORES ===
		TopScores: 10,
	}
}

// Validate ensures all parameter values are within reasonable ranges
func (p Params) Validate() error {
	if p.HomeAdvantage < 0 || p.HomeAdvantage > 2.0 {
		return fmt.Errorf("HomeAdvantage must be between 0.0 and 2.0, got: %f", p.HomeAdvantage)
	}
	if p.MaxGoals < 1 || p.MaxGoals > 15 {
		return fmt.Errorf("MaxGoals must be between 1 and 15, got: %d", p.MaxGoals)
	}
	if p.Rho < -0.5 || p.Rho > 0.5 {
		return fmt.Errorf("Rho must be between -0.5 and 0.5, got: %f", p.Rho)
	}
	if p.TopScores < 1 {
		return fmt.Errorf("TopScores must be at least 1, got: %d", p.TopScores)
	}
	return nil
}
