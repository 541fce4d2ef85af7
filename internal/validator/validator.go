package validator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/canpl-analytics/cplodds/internal/models"
)

/////////////////////////////////////////////////////////////////////////
////// Match Data Quality Checks
/////////////////////////////////////////////////////////////////////////

// Severity classifies a check outcome. Only error-severity failures make
// a dataset unusable; warnings flag rows worth a look.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// FirstSeason is the league's inaugural year; no fixture can predate it.
const FirstSeason = 2019

// validTeams lists every club to have played in the league, including
// historical names.
var validTeams = []string{
	"Forge FC",
	"Cavalry FC",
	"Pacific FC",
	"York United FC",
	"Valour FC",
	"HFX Wanderers FC",
	"FC Edmonton",
	"Vancouver FC",
	"Atletico Ottawa",
	// Historical names
	"York9 FC",
}

// ValidTeams returns the all-time team whitelist.
func ValidTeams() []string {
	teams := make([]string, len(validTeams))
	copy(teams, validTeams)
	return teams
}

// CheckResult is the outcome of a single named check.
type CheckResult struct {
	Check    string   `json:"check"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Details  string   `json:"details,omitempty"`
}

// Report collects every check outcome for one dataset.
type Report struct {
	Results []CheckResult `json:"results"`
}

// OK reports whether the dataset is usable: no failed error-severity check.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed && res.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Counts returns how many checks passed, warned and errored.
func (r *Report) Counts() (passed, warnings, errors int) {
	for _, res := range r.Results {
		switch {
		case res.Passed:
			passed++
		case res.Severity == SeverityWarning:
			warnings++
		case res.Severity == SeverityError:
			errors++
		}
	}
	return passed, warnings, errors
}

// Summary renders the one-line report header.
func (r *Report) Summary() string {
	passed, warnings, errors := r.Counts()
	return fmt.Sprintf("%d passed, %d warnings, %d errors", passed, warnings, errors)
}

// Failures returns the failed results at the given severity.
func (r *Report) Failures(severity Severity) []CheckResult {
	var failed []CheckResult
	for _, res := range r.Results {
		if !res.Passed && res.Severity == severity {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) add(check string, passed bool, severity Severity, message string) {
	r.Results = append(r.Results, CheckResult{
		Check:    check,
		Passed:   passed,
		Severity: severity,
		Message:  message,
	})
}

// Validator runs data-quality checks over canonical match rows.
type Validator struct {
	teams       map[string]bool
	firstSeason int

	// now is swappable for tests
	now func() time.Time
}

// New returns a validator with the league defaults.
func New() *Validator {
	teams := make(map[string]bool, len(validTeams))
	for _, name := range validTeams {
		teams[name] = true
	}
	return &Validator{
		teams:       teams,
		firstSeason: FirstSeason,
		now:         time.Now,
	}
}

// ValidateMatches runs every check and returns the collected report.
func (v *Validator) ValidateMatches(matches []*models.Match) *Report {
	report := &Report{}

	if len(matches) == 0 {
		report.add("data_exists", false, SeverityError, "no match rows to validate")
		return report
	}

	v.checkRequiredFields(report, matches)
	v.checkTeamNames(report, matches)
	v.checkScores(report, matches)
	v.checkDates(report, matches)
	v.checkDuplicates(report, matches)
	v.checkAttendance(report, matches)
	v.checkSeasonConsistency(report, matches)
	v.checkHomeAwayDifferent(report, matches)

	return report
}

// checkRequiredFields flags rows missing teams, dates, or goals on
// completed fixtures.
func (v *Validator) checkRequiredFields(report *Report, matches []*models.Match) {
	var missingTeams, missingDates, missingGoals int
	for _, m := range matches {
		if strings.TrimSpace(m.HomeTeam) == "" || strings.TrimSpace(m.AwayTeam) == "" {
			missingTeams++
		}
		if m.Date.IsZero() {
			missingDates++
		}
		if m.IsFinished() && !m.HasResult() {
			missingGoals++
		}
	}

	if missingTeams > 0 {
		report.add("required_teams", false, SeverityError,
			fmt.Sprintf("missing team names in %d rows", missingTeams))
	}
	if missingDates > 0 {
		report.add("required_dates", false, SeverityError,
			fmt.Sprintf("missing dates in %d rows", missingDates))
	}
	if missingGoals > 0 {
		report.add("required_goals", false, SeverityError,
			fmt.Sprintf("finished matches without goals in %d rows", missingGoals))
	}
	if missingTeams == 0 && missingDates == 0 && missingGoals == 0 {
		report.add("required_fields", true, SeverityInfo, "all required fields present")
	}
}

// checkTeamNames flags names outside the all-time league roster.
func (v *Validator) checkTeamNames(report *Report, matches []*models.Match) {
	unknown := make(map[string]bool)
	for _, m := range matches {
		if m.HomeTeam != "" && !v.teams[m.HomeTeam] {
			unknown[m.HomeTeam] = true
		}
		if m.AwayTeam != "" && !v.teams[m.AwayTeam] {
			unknown[m.AwayTeam] = true
		}
	}

	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for name := range unknown {
			names = append(names, name)
		}
		sort.Strings(names)
		report.add("valid_team_names", false, SeverityError,
			fmt.Sprintf("invalid team names found: %s", strings.Join(names, ", ")))
		return
	}
	report.add("valid_team_names", true, SeverityInfo, "all team names are valid")
}

// checkScores flags negative goals (error) and implausibly high ones
// (warning). -1 is the unplayed sentinel, not a score, so only values
// below it count as negative.
func (v *Validator) checkScores(report *Report, matches []*models.Match) {
	var negative, high int
	for _, m := range matches {
		if m.HomeGoals < -1 || m.AwayGoals < -1 {
			negative++
		}
		if m.HomeGoals > 10 || m.AwayGoals > 10 {
			high++
		}
	}

	if negative > 0 {
		report.add("negative_scores", false, SeverityError,
			fmt.Sprintf("negative scores found in %d matches", negative))
	}
	if high > 0 {
		report.add("high_scores", false, SeverityWarning,
			fmt.Sprintf("suspiciously high scores (>10) in %d matches", high))
	}
	if negative == 0 && high == 0 {
		report.add("score_validity", true, SeverityInfo, "all scores are within valid range")
	}
}

// checkDates flags fixtures before the league existed (error) and in the
// future (warning).
func (v *Validator) checkDates(report *Report, matches []*models.Match) {
	eraStart := time.Date(v.firstSeason, 1, 1, 0, 0, 0, 0, time.UTC)
	now := v.now()

	var tooEarly, future int
	for _, m := range matches {
		if m.Date.IsZero() {
			continue
		}
		if m.Date.Before(eraStart) {
			tooEarly++
		}
		if m.Date.After(now) {
			future++
		}
	}

	if tooEarly > 0 {
		report.add("dates_before_league", false, SeverityError,
			fmt.Sprintf("dates before the league existed (pre-%d): %d matches", v.firstSeason, tooEarly))
	}
	if future > 0 {
		report.add("future_dates", false, SeverityWarning,
			fmt.Sprintf("future dates found: %d matches", future))
	}
	if tooEarly == 0 && future == 0 {
		report.add("date_validity", true, SeverityInfo, "all dates valid")
	}
}

// checkDuplicates flags repeated (date, home, away) triples.
func (v *Validator) checkDuplicates(report *Report, matches []*models.Match) {
	seen := make(map[string]int, len(matches))
	duplicated := 0
	for _, m := range matches {
		key := fmt.Sprintf("%s|%s|%s", m.Date.Format("2006-01-02"), m.HomeTeam, m.AwayTeam)
		seen[key]++
		if seen[key] == 2 {
			duplicated++
		}
	}

	if duplicated > 0 {
		report.add("duplicates", false, SeverityWarning,
			fmt.Sprintf("duplicate matches found: %d sets", duplicated))
		return
	}
	report.add("duplicates", true, SeverityInfo, "no duplicate matches found")
}

// checkAttendance flags negative figures (error) and crowds beyond any
// league ground (warning). Rows without attendance are skipped.
func (v *Validator) checkAttendance(report *Report, matches []*models.Match) {
	var present, negative, high int
	for _, m := range matches {
		if m.Attendance == -1 {
			continue
		}
		present++
		if m.Attendance < 0 {
			negative++
		}
		if m.Attendance > 30000 {
			high++
		}
	}

	if present == 0 {
		report.add("attendance_data", true, SeverityInfo, "no attendance data to validate")
		return
	}
	if negative > 0 {
		report.add("negative_attendance", false, SeverityError,
			fmt.Sprintf("negative attendance: %d matches", negative))
	}
	if high > 0 {
		report.add("high_attendance", false, SeverityWarning,
			fmt.Sprintf("unusually high attendance (>30k): %d matches", high))
	}
	if negative == 0 && high == 0 {
		report.add("attendance_validity", true, SeverityInfo, "attendance figures are plausible")
	}
}

// checkSeasonConsistency flags rows whose season differs from the date's
// year; the league plays spring to autumn within one calendar year.
func (v *Validator) checkSeasonConsistency(report *Report, matches []*models.Match) {
	mismatched := 0
	for _, m := range matches {
		if m.Date.IsZero() || m.Season <= 0 {
			continue
		}
		if m.Season != m.Date.Year() {
			mismatched++
		}
	}

	if mismatched > 0 {
		report.add("season_date_mismatch", false, SeverityWarning,
			fmt.Sprintf("season doesn't match date year: %d matches", mismatched))
		return
	}
	report.add("season_consistency", true, SeverityInfo, "season field consistent with dates")
}

// checkHomeAwayDifferent flags fixtures where a team hosts itself.
func (v *Validator) checkHomeAwayDifferent(report *Report, matches []*models.Match) {
	same := 0
	for _, m := range matches {
		if m.HomeTeam != "" && m.HomeTeam == m.AwayTeam {
			same++
		}
	}

	if same > 0 {
		report.add("home_away_same", false, SeverityError,
			fmt.Sprintf("home and away team same: %d matches", same))
		return
	}
	report.add("home_away_different", true, SeverityInfo, "all matches have different home/away teams")
}
