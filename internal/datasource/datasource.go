package datasource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/models"
)

// Loader reads the published CSV datasets under a data directory laid out
// the way the analytics repo ships them:
//
//	<dataDir>/matches/cpl_<year>.csv
//	<dataDir>/closing_odds/cpl_<year>_closing_odds.csv
type Loader struct {
	dataDir string
}

// New creates a loader rooted at dataDir.
func New(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

var (
	matchFilePattern = regexp.MustCompile(`^cpl_(\d{4})\.csv$`)
	oddsFilePattern  = regexp.MustCompile(`^cpl_(\d{4})_closing_odds\.csv$`)
)

/////////////////////////////////////////////////////////////////////////
////// Match files
/////////////////////////////////////////////////////////////////////////

// LoadMatches reads every per-season match file, merged and sorted by date.
// When seasons are given only those years load. Rows without goals
// (unplayed fixtures) are dropped.
func (l *Loader) LoadMatches(seasons ...int) ([]*models.Match, error) {
	files, err := l.seasonFiles(filepath.Join(l.dataDir, "matches"), matchFilePattern, seasons)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn().Str("dir", filepath.Join(l.dataDir, "matches")).Msg("No match files found")
		return nil, nil
	}

	var matches []*models.Match
	for _, file := range files {
		rows, err := readCSVRows(file.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.path, err)
		}

		loaded := 0
		for i, row := range rows {
			m, ok := parseMatchRow(row, file.year)
			if !ok {
				log.Debug().Str("file", filepath.Base(file.path)).Int("row", i+2).Msg("Skipping unusable match row")
				continue
			}
			matches = append(matches, m)
			loaded++
		}
		log.Info().Str("file", filepath.Base(file.path)).Int("matches", loaded).Msg("Loaded match file")
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].Date.Equal(matches[j].Date) {
			return matches[i].Date.Before(matches[j].Date)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

// parseMatchRow converts one header-keyed CSV row to a match entity. The
// second return value is false for rows the model must never see: missing
// team names, unparseable dates, or blank goals (unplayed fixtures).
func parseMatchRow(row map[string]string, fileYear int) (*models.Match, bool) {
	homeTeam := strings.TrimSpace(row["home_team"])
	awayTeam := strings.TrimSpace(row["away_team"])
	if homeTeam == "" || awayTeam == "" {
		return nil, false
	}

	date, err := parseDate(row["date"])
	if err != nil {
		return nil, false
	}

	if fieldIsBlank("home_goals", row) || fieldIsBlank("away_goals", row) {
		return nil, false
	}
	homeGoals, err := strconv.Atoi(strings.TrimSpace(row["home_goals"]))
	if err != nil {
		return nil, false
	}
	awayGoals, err := strconv.Atoi(strings.TrimSpace(row["away_goals"]))
	if err != nil {
		return nil, false
	}

	season := fileYear
	if s, err := strconv.Atoi(strings.TrimSpace(row["season"])); err == nil && s > 0 {
		season = s
	}
	if season <= 0 {
		season = date.Year()
	}

	status := strings.TrimSpace(row["status"])
	if status == "" {
		// Published files only carry played fixtures.
		status = models.StatusFinished
	}

	m := &models.Match{
		ID:        models.MatchID(homeTeam, awayTeam, date),
		Season:    season,
		Date:      date,
		Status:    status,
		HomeTeam:  homeTeam,
		AwayTeam:  awayTeam,
		HomeGoals: homeGoals,
		AwayGoals: awayGoals,
		Venue:     strings.TrimSpace(row["venue"]),
	}
	return m, true
}

/////////////////////////////////////////////////////////////////////////
////// Closing odds files
/////////////////////////////////////////////////////////////////////////

// LoadClosingOdds reads the per-season closing odds files. Repeated
// (match, bookmaker) rows collapse keep-last, matching how the published
// exporter appends re-scraped prices. Market averaging across bookmakers
// happens later, at query time.
func (l *Loader) LoadClosingOdds(seasons ...int) ([]*models.ClosingOdds, error) {
	files, err := l.seasonFiles(filepath.Join(l.dataDir, "closing_odds"), oddsFilePattern, seasons)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	type keyed struct {
		order int
		row   *models.ClosingOdds
	}
	latest := make(map[string]keyed)
	order := 0

	for _, file := range files {
		rows, err := readCSVRows(file.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.path, err)
		}

		loaded := 0
		for i, row := range rows {
			odds, ok := parseOddsRow(row)
			if !ok {
				log.Debug().Str("file", filepath.Base(file.path)).Int("row", i+2).Msg("Skipping unusable odds row")
				continue
			}
			key := odds.MatchID + "|" + odds.Bookmaker
			if existing, seen := latest[key]; seen {
				// keep-last: the newer row replaces, keeping its slot
				latest[key] = keyed{order: existing.order, row: odds}
			} else {
				latest[key] = keyed{order: order, row: odds}
				order++
			}
			loaded++
		}
		log.Info().Str("file", filepath.Base(file.path)).Int("rows", loaded).Msg("Loaded closing odds file")
	}

	deduped := make([]*models.ClosingOdds, 0, len(latest))
	for _, k := range latest {
		deduped = append(deduped, k.row)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].MatchID != deduped[j].MatchID {
			return deduped[i].MatchID < deduped[j].MatchID
		}
		return deduped[i].Bookmaker < deduped[j].Bookmaker
	})
	return deduped, nil
}

// parseOddsRow converts one odds CSV row. The match key is always derived
// from the team and date columns so it lines up with stored matches no
// matter what the file's own match_id column carries.
func parseOddsRow(row map[string]string) (*models.ClosingOdds, bool) {
	homeTeam := strings.TrimSpace(row["home_team"])
	awayTeam := strings.TrimSpace(row["away_team"])
	bookmaker := strings.ToLower(strings.TrimSpace(row["bookmaker"]))
	if homeTeam == "" || awayTeam == "" || bookmaker == "" {
		return nil, false
	}

	date, err := parseDate(row["date"])
	if err != nil {
		return nil, false
	}

	odds := &models.ClosingOdds{
		MatchID:      models.MatchID(homeTeam, awayTeam, date),
		Bookmaker:    bookmaker,
		HomeOdds:     parsePrice("closing_home", row),
		DrawOdds:     parsePrice("closing_draw", row),
		AwayOdds:     parsePrice("closing_away", row),
		Over2p5Odds:  parsePrice("closing_over_2.5", row),
		Under2p5Odds: parsePrice("closing_under_2.5", row),
	}
	if ts := strings.TrimSpace(row["scraped_at"]); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			odds.RecordedAt = t.UTC()
		}
	}
	return odds, true
}

// parsePrice reads one decimal price column, -1 when blank or unparseable.
func parsePrice(field string, row map[string]string) float64 {
	if fieldIsBlank(field, row) {
		return -1.0
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[field]), 64)
	if err != nil {
		return -1.0
	}
	return price
}

/////////////////////////////////////////////////////////////////////////
////// CSV plumbing
/////////////////////////////////////////////////////////////////////////

type seasonFile struct {
	year int
	path string
}

// seasonFiles lists the files in dir whose names match pattern, optionally
// filtered to the given years, ordered by year ascending.
func (l *Loader) seasonFiles(dir string, pattern *regexp.Regexp, seasons []int) ([]seasonFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	wanted := make(map[int]bool, len(seasons))
	for _, s := range seasons {
		wanted[s] = true
	}

	var files []seasonFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if len(seasons) > 0 && !wanted[year] {
			continue
		}
		files = append(files, seasonFile{year: year, path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].year < files[j].year })
	return files, nil
}

// readCSVRows parses a CSV file into header-keyed row maps.
func readCSVRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF") // Remove BOM
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < len(headers) {
			log.Warn().Str("file", filepath.Base(path)).Int("row", i+2).Msg("Skipping incomplete record")
			continue
		}
		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseDate accepts the dataset's YYYY-MM-DD dates and full RFC 3339
// timestamps.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("blank date")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// fieldIsBlank checks if a field in the row is blank/empty/missing. A -1
// sentinel counts as blank, matching the store's unset convention.
func fieldIsBlank(field string, row map[string]string) bool {
	value, exists := row[field]
	if !exists {
		return true
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f == -1.0 {
		return true
	}
	return false
}
