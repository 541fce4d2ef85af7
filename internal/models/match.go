package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// Match statuses as reported by the CanPL SDP API.
const (
	StatusFinished  = "FINISHED"
	StatusScheduled = "SCHEDULED"
	StatusCancelled = "CANCELLED"
)

// Match is a single fixture in canonical form, persisted to the matches
// table. Goal columns default to -1 so an unplayed fixture is
// distinguishable from a goalless one.
type Match struct {
	// Primary key: home_vs_away_YYYYMMDD slug
	ID string `json:"id" column:"id" dbtype:"TEXT" primary:"true" index:"true"`

	Season   int       `json:"season" column:"season" dbtype:"INTEGER DEFAULT -1" index:"true"`
	Date     time.Time `json:"date" column:"date" dbtype:"DATETIME" index:"true"`
	Status   string    `json:"status" column:"status" dbtype:"TEXT"`
	HomeTeam string    `json:"homeTeam" column:"homeTeam" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam string    `json:"awayTeam" column:"awayTeam" dbtype:"TEXT NOT NULL" index:"true"`

	HomeGoals int `json:"homeGoals" column:"homeGoals" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals int `json:"awayGoals" column:"awayGoals" dbtype:"INTEGER DEFAULT -1"`

	Venue      string `json:"venue,omitempty" column:"venue" dbtype:"TEXT"`
	Attendance int    `json:"attendance,omitempty" column:"attendance" dbtype:"INTEGER DEFAULT -1"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME"`
	UpdatedAt time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME"`
}

// TeamSlug lowercases a team name and collapses spaces to underscores,
// the form team names take inside match ids and cache keys.
func TeamSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// MatchID builds the canonical match slug: lowercased team names with
// spaces collapsed to underscores, joined by _vs_, suffixed with the
// fixture date as YYYYMMDD.
func MatchID(homeTeam, awayTeam string, date time.Time) string {
	return fmt.Sprintf("%s_vs_%s_%s", TeamSlug(homeTeam), TeamSlug(awayTeam), date.Format("20060102"))
}

// GetTableName returns the table name for matches.
func (m *Match) GetTableName() string {
	return "matches"
}

// GetPrimaryKey returns the primary key as a map.
func (m *Match) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"id": m.ID,
	}
}

// SetPrimaryKey sets the primary key from a map.
func (m *Match) SetPrimaryKey(pk map[string]interface{}) error {
	if id, ok := pk["id"]; ok {
		if idStr, ok := id.(string); ok {
			m.ID = idStr
			return nil
		}
		return fmt.Errorf("primary key 'id' must be a string")
	}
	return fmt.Errorf("primary key 'id' not found")
}

// BeforeSave derives the slug when absent and stamps the metadata columns.
func (m *Match) BeforeSave() error {
	if m.ID == "" {
		m.ID = MatchID(m.HomeTeam, m.AwayTeam, m.Date)
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

// AfterSave is called after saving the match.
func (m *Match) AfterSave() error { return nil }

// BeforeDelete is called before deleting the match.
func (m *Match) BeforeDelete() error { return nil }

// AfterDelete is called after deleting the match.
func (m *Match) AfterDelete() error { return nil }

// IsFinished reports whether the fixture has been played to completion.
func (m *Match) IsFinished() bool {
	return m.Status == StatusFinished
}

// HasResult reports whether both goal counts are present.
func (m *Match) HasResult() bool {
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// ToResult converts a played match to the model's input record. The second
// return value is false for fixtures that cannot feed the model (not
// finished, or missing goals).
func (m *Match) ToResult() (poisson.MatchResult, bool) {
	if !m.IsFinished() || !m.HasResult() {
		return poisson.MatchResult{}, false
	}
	return poisson.MatchResult{
		Date:      m.Date,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		HomeGoals: m.HomeGoals,
		AwayGoals: m.AwayGoals,
	}, true
}

// ToResults converts every playable match, preserving order.
func ToResults(matches []*Match) []poisson.MatchResult {
	records := make([]poisson.MatchResult, 0, len(matches))
	for _, m := range matches {
		if rec, ok := m.ToResult(); ok {
			records = append(records, rec)
		}
	}
	return records
}
