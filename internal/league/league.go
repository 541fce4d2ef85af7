package league

import (
	"sort"
	"strings"

	"github.com/canpl-analytics/cplodds/internal/models"
)

// TableEntry is one team's line in the computed standings.
type TableEntry struct {
	Position     int    `json:"position"`
	Team         string `json:"team"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	GoalDiff     int    `json:"goalDifference"`
	Points       int    `json:"points"`
}

// Table computes standings from played matches: 3 points for a win, 1 for
// a draw. Teams sort by points, then goal difference, then goals for, then
// name; Position is 1-based. Unplayed fixtures are ignored.
func Table(matches []*models.Match) []*TableEntry {
	entriesMap := make(map[string]*TableEntry)
	entry := func(team string) *TableEntry {
		e, ok := entriesMap[team]
		if !ok {
			e = &TableEntry{Team: team}
			entriesMap[team] = e
		}
		return e
	}

	for _, m := range played(matches) {
		home := entry(m.HomeTeam)
		away := entry(m.AwayTeam)

		home.Played++
		away.Played++
		home.GoalsFor += m.HomeGoals
		home.GoalsAgainst += m.AwayGoals
		away.GoalsFor += m.AwayGoals
		away.GoalsAgainst += m.HomeGoals

		switch {
		case m.HomeGoals > m.AwayGoals:
			home.Wins++
			away.Losses++
			home.Points += 3
		case m.HomeGoals < m.AwayGoals:
			away.Wins++
			home.Losses++
			away.Points += 3
		default:
			home.Draws++
			away.Draws++
			home.Points++
			away.Points++
		}
	}

	entries := make([]*TableEntry, 0, len(entriesMap))
	for _, e := range entriesMap {
		e.GoalDiff = e.GoalsFor - e.GoalsAgainst
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.Team < b.Team
	})

	for i, e := range entries {
		e.Position = i + 1
	}
	return entries
}

// Form returns a team's last n results as a string of W/D/L letters,
// oldest first, e.g. "WWDLW". Fewer than n played matches gives a shorter
// string; an unknown team gives an empty one.
func Form(matches []*models.Match, team string, n int) string {
	if n <= 0 {
		n = 5
	}

	var own []*models.Match
	for _, m := range played(matches) {
		if m.HomeTeam == team || m.AwayTeam == team {
			own = append(own, m)
		}
	}
	sortByDate(own)
	if len(own) > n {
		own = own[len(own)-n:]
	}

	var form strings.Builder
	for _, m := range own {
		teamGoals, oppGoals := m.HomeGoals, m.AwayGoals
		if m.AwayTeam == team {
			teamGoals, oppGoals = m.AwayGoals, m.HomeGoals
		}
		switch {
		case teamGoals > oppGoals:
			form.WriteByte('W')
		case teamGoals < oppGoals:
			form.WriteByte('L')
		default:
			form.WriteByte('D')
		}
	}
	return form.String()
}

// HeadToHead returns the played meetings between two clubs at either venue,
// in date order.
func HeadToHead(matches []*models.Match, team1, team2 string) []*models.Match {
	var meetings []*models.Match
	for _, m := range played(matches) {
		if (m.HomeTeam == team1 && m.AwayTeam == team2) ||
			(m.HomeTeam == team2 && m.AwayTeam == team1) {
			meetings = append(meetings, m)
		}
	}
	sortByDate(meetings)
	return meetings
}

// played filters to fixtures that finished with a recorded score.
func played(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.IsFinished() && m.HasResult() {
			out = append(out, m)
		}
	}
	return out
}

func sortByDate(matches []*models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date.Before(matches[j].Date)
	})
}
