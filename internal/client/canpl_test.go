package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	c := NewClient(baseURL, 5*time.Second, 3, 0)
	c.retryDelay = time.Millisecond
	return c
}

func fixtureJSON(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"matches": []map[string]any{
			{
				"matchId":           "cpl::Football_Match::aaa",
				"matchDateUtc":      "2025-04-05T20:00:00Z",
				"status":            "FINISHED",
				"home":              map[string]any{"officialName": "Forge FC"},
				"away":              map[string]any{"officialName": "Cavalry FC"},
				"providerHomeScore": 2,
				"providerAwayScore": 1,
				"stadiumName":       "Tim Hortons Field",
			},
			{
				"matchId":      "cpl::Football_Match::bbb",
				"matchDateUtc": "2025-10-01T20:00:00Z",
				"status":       "SCHEDULED",
				"home":         map[string]any{"officialName": "Pacific FC"},
				"away":         map[string]any{"officialName": "Valour FC"},
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestFetchFinishedMatchesGzip(t *testing.T) {
	body := fixtureJSON(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en-US", r.URL.Query().Get("locale"), "locale should default to en-US")
		assert.Equal(t, "https://canpl.ca", r.Header.Get("Origin"))
		assert.Contains(t, r.URL.Path, "seasons/cpl::Football_Season::", "path should carry the opaque season id")

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write(body)
		_ = gz.Close()
	}))
	defer srv.Close()

	matches, err := testClient(srv.URL).FetchFinishedMatches(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, matches, 1, "the scheduled fixture should be dropped")

	m := matches[0]
	assert.Equal(t, "forge_fc_vs_cavalry_fc_20250405", m.ID)
	assert.Equal(t, 2025, m.Season)
	assert.Equal(t, "Forge FC", m.HomeTeam)
	assert.Equal(t, "Cavalry FC", m.AwayTeam)
	assert.Equal(t, 2, m.HomeGoals)
	assert.Equal(t, 1, m.AwayGoals)
	assert.Equal(t, "Tim Hortons Field", m.Venue)
	assert.True(t, m.IsFinished())
}

func TestFetchMatchesBrotli(t *testing.T) {
	body := fixtureJSON(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		br := brotli.NewWriter(w)
		_, _ = br.Write(body)
		_ = br.Close()
	}))
	defer srv.Close()

	fixtures, err := testClient(srv.URL).FetchMatches(context.Background(), 2025)
	require.NoError(t, err)
	assert.Len(t, fixtures, 2, "raw fetch should keep unplayed fixtures")
	assert.Equal(t, "SCHEDULED", fixtures[1].Status)
}

func TestGetRetriesOnServerBusy(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	matches, err := testClient(srv.URL).FetchMatches(context.Background(), 2024)
	require.NoError(t, err, "a transient 503 should be retried away")
	assert.Empty(t, matches)
	assert.Equal(t, 3, calls)
}

func TestGetGivesUpOnClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchMatches(context.Background(), 2024)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 404 must not be retried")
}

func TestFetchMatchesUnknownSeason(t *testing.T) {
	_, err := testClient("http://unused").FetchMatches(context.Background(), 2010)
	require.Error(t, err, "years before the league existed have no season id")
}

func TestSeasonRegistry(t *testing.T) {
	id, ok := SeasonID(2019)
	require.True(t, ok)
	assert.Equal(t, "cpl::Football_Season::c8c9bdc288f34aa89073a8bd89d2da3e", id)

	_, ok = SeasonID(2018)
	assert.False(t, ok)

	years := SeasonYears()
	require.NotEmpty(t, years)
	assert.Equal(t, 2019, years[0], "registry should start at the league's first season")
	assert.IsIncreasing(t, years)
}

func TestParseMatchDate(t *testing.T) {
	got, err := parseMatchDate("2023-07-01T19:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 7, 1, 19, 0, 0, 0, time.UTC), got)

	got, err = parseMatchDate("2023-07-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseMatchDate("july first")
	assert.Error(t, err)
}

func TestStandingsRowStat(t *testing.T) {
	var row APIStandingsRow
	require.NoError(t, json.Unmarshal([]byte(`{
		"officialName": "Forge FC",
		"stats": [
			{"statsId": "rank", "statsValue": 1},
			{"statsId": "points", "statsValue": "54"},
			{"statsId": "goal-difference", "statsValue": null}
		]
	}`), &row))

	assert.Equal(t, 1, row.Stat("rank"), "numeric values should convert")
	assert.Equal(t, 54, row.Stat("points"), "string values should convert")
	assert.Equal(t, 0, row.Stat("goal-difference"), "null value falls back to zero")
	assert.Equal(t, 0, row.Stat("matches-played"), "missing stat falls back to zero")
}
