package poisson

import (
	"fmt"
	"strings"
)

// InsufficientDataError indicates that a fit was attempted with no match
// results. The model cannot derive league baselines from an empty dataset.
type InsufficientDataError struct{}

func (e *InsufficientDataError) Error() string {
	return "cannot fit ratings: no match results supplied"
}

// UnknownTeamError indicates that a prediction was requested for a team that
// was not present in the fitted dataset. The known team set is included so
// callers can see exactly which names the model will accept.
type UnknownTeamError struct {
	Team  string
	Known []string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %q, fitted teams are: %s", e.Team, strings.Join(e.Known, ", "))
}
