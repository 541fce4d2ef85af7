package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/canpl-analytics/cplodds/internal/models"
)

// Compile-time checks that every entity satisfies the persistence contract.
var (
	_ Persistable = (*models.Match)(nil)
	_ Persistable = (*models.ClosingOdds)(nil)
	_ Persistable = (*models.StoredPrediction)(nil)
)

// Store wraps the SQLite database holding matches, closing odds and
// stored predictions.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Database initialized")
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates all entity tables.
func (s *Store) createTables() error {
	if err := s.createTable(&models.Match{}); err != nil {
		return fmt.Errorf("failed to create matches table: %w", err)
	}
	if err := s.createTable(&models.ClosingOdds{}); err != nil {
		return fmt.Errorf("failed to create closing_odds table: %w", err)
	}
	if err := s.createTable(&models.StoredPrediction{}); err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Matches
/////////////////////////////////////////////////////////////////////////

// SaveMatch upserts one match.
func (s *Store) SaveMatch(m *models.Match) error {
	return s.Save(m)
}

// SaveMatches upserts a batch of matches in one transaction.
func (s *Store) SaveMatches(matches []*models.Match) error {
	objects := make([]Persistable, len(matches))
	for i, m := range matches {
		objects[i] = m
	}
	return s.BulkSave(objects)
}

// MatchByID loads a single match by its slug.
func (s *Store) MatchByID(id string) (*models.Match, error) {
	m := &models.Match{}
	if err := s.FindByPrimaryKey(m, map[string]any{"id": id}); err != nil {
		return nil, err
	}
	return m, nil
}

// AllMatches returns every stored match in date order.
func (s *Store) AllMatches() ([]*models.Match, error) {
	rows, err := s.FindWhere(&models.Match{}, "1=1 ORDER BY date ASC, id ASC")
	if err != nil {
		return nil, err
	}
	return castMatches(rows), nil
}

// MatchesBySeason returns one season's matches in date order.
func (s *Store) MatchesBySeason(season int) ([]*models.Match, error) {
	rows, err := s.FindWhere(&models.Match{}, "season = ? ORDER BY date ASC, id ASC", season)
	if err != nil {
		return nil, err
	}
	return castMatches(rows), nil
}

// FinishedMatches returns every completed match in date order; this is
// the model's training feed.
func (s *Store) FinishedMatches() ([]*models.Match, error) {
	rows, err := s.FindWhere(&models.Match{},
		"status = ? AND homeGoals >= 0 AND awayGoals >= 0 ORDER BY date ASC, id ASC",
		models.StatusFinished)
	if err != nil {
		return nil, err
	}
	return castMatches(rows), nil
}

// TeamNames returns the distinct team names appearing in stored matches,
// sorted alphabetically.
func (s *Store) TeamNames() ([]string, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT name FROM (SELECT homeTeam AS name FROM matches UNION SELECT awayTeam FROM matches) ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query team names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan team name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountMatches returns the number of stored matches.
func (s *Store) CountMatches() (int, error) {
	return s.count("matches")
}

func castMatches(rows []interface{}) []*models.Match {
	matches := make([]*models.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, row.(*models.Match))
	}
	return matches
}

/////////////////////////////////////////////////////////////////////////
////// Closing Odds
/////////////////////////////////////////////////////////////////////////

// SaveClosingOdds upserts a batch of bookmaker rows in one transaction.
func (s *Store) SaveClosingOdds(rows []*models.ClosingOdds) error {
	objects := make([]Persistable, len(rows))
	for i, row := range rows {
		objects[i] = row
	}
	return s.BulkSave(objects)
}

// ClosingOddsForMatch returns every bookmaker's closing prices for a match.
func (s *Store) ClosingOddsForMatch(matchID string) ([]*models.ClosingOdds, error) {
	rows, err := s.FindWhere(&models.ClosingOdds{}, "matchId = ? ORDER BY bookmaker ASC", matchID)
	if err != nil {
		return nil, err
	}
	odds := make([]*models.ClosingOdds, 0, len(rows))
	for _, row := range rows {
		odds = append(odds, row.(*models.ClosingOdds))
	}
	return odds, nil
}

// MarketOddsForMatch returns the bookmaker-averaged market map for a
// match, ready for the value calculator. The map is empty when no odds
// are stored.
func (s *Store) MarketOddsForMatch(matchID string) (map[string]float64, error) {
	rows, err := s.ClosingOddsForMatch(matchID)
	if err != nil {
		return nil, err
	}
	return models.AverageOdds(rows), nil
}

// CountClosingOdds returns the number of stored bookmaker rows.
func (s *Store) CountClosingOdds() (int, error) {
	return s.count("closing_odds")
}

/////////////////////////////////////////////////////////////////////////
////// Predictions
/////////////////////////////////////////////////////////////////////////

// SavePrediction upserts one stored prediction.
func (s *Store) SavePrediction(p *models.StoredPrediction) error {
	return s.Save(p)
}

// PredictionFor loads the stored prediction for a pairing.
func (s *Store) PredictionFor(homeTeam, awayTeam string) (*models.StoredPrediction, error) {
	p := &models.StoredPrediction{}
	err := s.FindByPrimaryKey(p, map[string]any{"homeTeam": homeTeam, "awayTeam": awayTeam})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AllPredictions returns every stored prediction ordered by pairing.
func (s *Store) AllPredictions() ([]*models.StoredPrediction, error) {
	rows, err := s.FindWhere(&models.StoredPrediction{}, "1=1 ORDER BY homeTeam ASC, awayTeam ASC")
	if err != nil {
		return nil, err
	}
	preds := make([]*models.StoredPrediction, 0, len(rows))
	for _, row := range rows {
		preds = append(preds, row.(*models.StoredPrediction))
	}
	return preds, nil
}

// count returns COUNT(*) for a table.
func (s *Store) count(table string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
