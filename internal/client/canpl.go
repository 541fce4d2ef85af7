package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/models"
)

// DefaultBaseURL is the CanPL Sports Data Platform API root.
const DefaultBaseURL = "https://api-sdp.canpl.ca/v1/cpl/football"

// seasonIDs maps a season year to the platform's opaque season identifier.
// There is no discovery endpoint; new seasons are appended as the platform
// publishes them.
var seasonIDs = map[int]string{
	2019: "cpl::Football_Season::c8c9bdc288f34aa89073a8bd89d2da3e",
	2020: "cpl::Football_Season::11aa5cc094d0481fa8e73d326763584f",
	2021: "cpl::Football_Season::2f07c39671b84933ad7bb1e1958a7427",
	2022: "cpl::Football_Season::046f0ab31ba641c7b7bf27eb0dda4b9d",
	2023: "cpl::Football_Season::fc0855108c9044218a84fc5d2bee0000",
	2024: "cpl::Football_Season::6fb9e6fae4f24ce9bf4fa3172616a762",
	2025: "cpl::Football_Season::fd43e1d61dfe4396a7356bc432de0007",
	2026: "cpl::Football_Season::c479ab0916a24c3390f1ce2c021ace54",
}

// Client is the CanPL SDP API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryDelay   time.Duration
	requestDelay time.Duration
}

// NewClient creates a new CanPL SDP API client. requestDelay is the
// politeness pause inserted before every request.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, requestDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   newHTTPClient(timeout),
		maxRetries:   maxRetries,
		retryDelay:   1 * time.Second,
		requestDelay: requestDelay,
	}
}

// SeasonID returns the platform identifier for a season year.
func SeasonID(year int) (string, bool) {
	id, ok := seasonIDs[year]
	return id, ok
}

// SeasonYears returns every year the registry knows, ascending.
func SeasonYears() []int {
	years := make([]int, 0, len(seasonIDs))
	for year := range seasonIDs {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// get performs a GET request against the API with retry logic and the
// politeness delay applied before each attempt.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// The SDP API serves canpl.ca; present ourselves the same way.
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
		req.Header.Set("Origin", "https://canpl.ca")
		req.Header.Set("Referer", "https://canpl.ca/")

		q := req.URL.Query()
		q.Set("locale", "en-US")
		for key, value := range params {
			q.Set(key, value)
		}
		req.URL.RawQuery = q.Encode()

		log.Debug().
			Str("url", url).
			Int("attempt", attempt+1).
			Msg("Making API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("API request failed: %w", err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		body, err := decodeBody(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("API request successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		default:
			// Other errors - don't retry
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, lastErr
}

/////////////////////////////////////////////////////////////////////////
////// Wire types
/////////////////////////////////////////////////////////////////////////

// APIMatch is a single fixture as the SDP API reports it.
type APIMatch struct {
	MatchID      string  `json:"matchId"`
	MatchDateUtc string  `json:"matchDateUtc"`
	Status       string  `json:"status"`
	Home         APIClub `json:"home"`
	Away         APIClub `json:"away"`
	HomeScore    int     `json:"providerHomeScore"`
	AwayScore    int     `json:"providerAwayScore"`
	StadiumName  string  `json:"stadiumName"`
	MatchSet     struct {
		Name string `json:"name"`
	} `json:"matchSet"`
}

// APIClub identifies one side of a fixture.
type APIClub struct {
	TeamID       string `json:"teamId"`
	OfficialName string `json:"officialName"`
	ShortName    string `json:"shortName"`
	AcronymName  string `json:"acronymName"`
}

// APIStandingsRow is one team's line in the overall standings. Stat values
// arrive as a loosely typed id/value list rather than named fields.
type APIStandingsRow struct {
	OfficialName string `json:"officialName"`
	Stats        []struct {
		StatsID    string `json:"statsId"`
		StatsValue any    `json:"statsValue"`
	} `json:"stats"`
}

// Stat returns the named stat as an int, zero when absent or unparseable.
func (r APIStandingsRow) Stat(id string) int {
	for _, s := range r.Stats {
		if s.StatsID != id {
			continue
		}
		switch v := s.StatsValue.(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
		return 0
	}
	return 0
}

/////////////////////////////////////////////////////////////////////////
////// Endpoints
/////////////////////////////////////////////////////////////////////////

// FetchMatches fetches every fixture of a season, finished or not.
func (c *Client) FetchMatches(ctx context.Context, year int) ([]APIMatch, error) {
	seasonID, ok := SeasonID(year)
	if !ok {
		return nil, fmt.Errorf("no season id registered for %d", year)
	}

	body, err := c.get(ctx, fmt.Sprintf("seasons/%s/matches", seasonID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches for %d: %w", year, err)
	}

	var payload struct {
		Matches []APIMatch `json:"matches"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matches: %w", err)
	}
	return payload.Matches, nil
}

// FetchStandings fetches the overall league table for a season as the
// platform publishes it.
func (c *Client) FetchStandings(ctx context.Context, year int) ([]APIStandingsRow, error) {
	seasonID, ok := SeasonID(year)
	if !ok {
		return nil, fmt.Errorf("no season id registered for %d", year)
	}

	params := map[string]string{"orderBy": "rank", "direction": "asc"}
	body, err := c.get(ctx, fmt.Sprintf("seasons/%s/standings/overall", seasonID), params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch standings for %d: %w", year, err)
	}

	var payload struct {
		Standings []struct {
			Teams []APIStandingsRow `json:"teams"`
		} `json:"standings"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal standings: %w", err)
	}
	if len(payload.Standings) == 0 {
		return nil, nil
	}
	return payload.Standings[0].Teams, nil
}

// FetchTeams fetches the clubs registered for a season.
func (c *Client) FetchTeams(ctx context.Context, year int) ([]APIClub, error) {
	seasonID, ok := SeasonID(year)
	if !ok {
		return nil, fmt.Errorf("no season id registered for %d", year)
	}

	body, err := c.get(ctx, fmt.Sprintf("seasons/%s/teams", seasonID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams for %d: %w", year, err)
	}

	var payload struct {
		Teams []APIClub `json:"teams"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teams: %w", err)
	}
	return payload.Teams, nil
}

// FetchFinishedMatches fetches a season and converts the FINISHED fixtures
// to store entities. Fixtures that have not been played are dropped.
func (c *Client) FetchFinishedMatches(ctx context.Context, year int) ([]*models.Match, error) {
	fixtures, err := c.FetchMatches(ctx, year)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Match, 0, len(fixtures))
	skipped := 0
	for _, f := range fixtures {
		m, ok := convertMatch(f)
		if !ok {
			skipped++
			continue
		}
		matches = append(matches, m)
	}

	log.Info().
		Int("season", year).
		Int("finished", len(matches)).
		Int("skipped", skipped).
		Msg("Fetched season matches")
	return matches, nil
}

// convertMatch maps an API fixture to the canonical entity. Only FINISHED
// fixtures with a parseable kickoff date convert.
func convertMatch(f APIMatch) (*models.Match, bool) {
	if f.Status != models.StatusFinished {
		return nil, false
	}

	date, err := parseMatchDate(f.MatchDateUtc)
	if err != nil {
		log.Warn().
			Str("matchId", f.MatchID).
			Str("date", f.MatchDateUtc).
			Msg("Skipping match with unparseable date")
		return nil, false
	}

	m := &models.Match{
		ID:        models.MatchID(f.Home.OfficialName, f.Away.OfficialName, date),
		Season:    date.Year(),
		Date:      date,
		Status:    f.Status,
		HomeTeam:  f.Home.OfficialName,
		AwayTeam:  f.Away.OfficialName,
		HomeGoals: f.HomeScore,
		AwayGoals: f.AwayScore,
		Venue:     f.StadiumName,
	}
	return m, true
}

// parseMatchDate accepts the API's RFC 3339 kickoff timestamps and bare
// YYYY-MM-DD dates.
func parseMatchDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised match date %q", s)
}
