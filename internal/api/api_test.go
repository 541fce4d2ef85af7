package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/internal/store"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

func fixtureMatches() []*models.Match {
	day := func(d int) time.Time {
		return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
	}
	m := func(d int, home, away string, hg, ag int) *models.Match {
		return &models.Match{
			Season: 2025, Date: day(d), Status: models.StatusFinished,
			HomeTeam: home, AwayTeam: away, HomeGoals: hg, AwayGoals: ag,
		}
	}
	return []*models.Match{
		m(5, "Forge FC", "Cavalry FC", 2, 1),
		m(6, "Pacific FC", "Forge FC", 0, 2),
		m(12, "Cavalry FC", "Pacific FC", 3, 0),
		m(13, "Forge FC", "Pacific FC", 1, 1),
		m(19, "Cavalry FC", "Forge FC", 0, 1),
		m(20, "Pacific FC", "Cavalry FC", 1, 2),
	}
}

// testHandler returns a handler over a seeded store; the model is fitted
// unless fit is false.
func testHandler(t *testing.T, fit bool) *Handler {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SaveMatches(fixtureMatches()))

	h := NewHandler(db, nil)
	if fit {
		model, err := poisson.Fit(models.ToResults(fixtureMatches()), poisson.DefaultParams())
		require.NoError(t, err)
		h.SetModel(model)
	}
	return h
}

func doRequest(t *testing.T, h *Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestTeamsEndpoint(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.EqualValues(t, 3, payload["count"])
	assert.Equal(t,
		[]interface{}{"Cavalry FC", "Forge FC", "Pacific FC"},
		payload["teams"], "teams are sorted")
}

func TestEndpointsBeforeFirstFit(t *testing.T) {
	h := testHandler(t, false)

	for _, target := range []string{
		"/api/v1/teams",
		"/api/v1/ratings",
		"/api/v1/predictions/Forge%20FC/Cavalry%20FC",
	} {
		rec := doRequest(t, h, "GET", target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestRatingsEndpoint(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/ratings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	baseline := payload["baseline"].(map[string]interface{})
	assert.InDelta(t, 7.0/6.0, baseline["avg_home_goals"].(float64), 1e-9)
	assert.InDelta(t, 7.0/6.0, baseline["avg_away_goals"].(float64), 1e-9)

	ratings := payload["ratings"].([]interface{})
	require.Len(t, ratings, 3)
	first := ratings[0].(map[string]interface{})
	assert.Equal(t, "Cavalry FC", first["team"])
	assert.EqualValues(t, 2, first["home_matches"])
}

func TestTableEndpoint(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/table", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	table := payload["table"].([]interface{})
	require.Len(t, table, 3)

	top := table[0].(map[string]interface{})
	assert.Equal(t, "Forge FC", top["team"])
	assert.EqualValues(t, 1, top["position"])
	assert.EqualValues(t, 10, top["points"])
}

func TestTableEndpointSeasonFilter(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/table?season=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["table"].([]interface{}), 3)

	// A season with no stored matches yields an empty table, not an error.
	rec = doRequest(t, h, "GET", "/api/v1/table?season=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["table"].([]interface{}))

	rec = doRequest(t, h, "GET", "/api/v1/table?season=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictionEndpoint(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/predictions/Forge%20FC/Cavalry%20FC", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "model", payload["source"])

	pred := payload["prediction"].(map[string]interface{})
	assert.Equal(t, "Forge FC", pred["home_team"])
	assert.Equal(t, "Cavalry FC", pred["away_team"])

	sum := pred["home_win"].(float64) + pred["draw"].(float64) + pred["away_win"].(float64)
	assert.InDelta(t, 1.0, sum, 1e-3)

	scores := payload["correct_scores"].([]interface{})
	assert.Len(t, scores, 10, "default top N")
	first := scores[0].(map[string]interface{})
	assert.NotNil(t, first["fair_odds"], "leading scoreline carries finite odds")

	fair := payload["fair_odds"].(map[string]interface{})
	assert.Greater(t, fair["home"].(float64), 1.0)
}

func TestPredictionEndpointAcceptsSlugs(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/predictions/forge_fc/cavalry_fc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	pred := decode(t, rec)["prediction"].(map[string]interface{})
	assert.Equal(t, "Forge FC", pred["home_team"])
}

func TestPredictionEndpointQueryParams(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/predictions/forge_fc/cavalry_fc?top_n=3&max_goals=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["correct_scores"].([]interface{}), 3)

	for _, q := range []string{"max_goals=abc", "max_goals=0", "max_goals=50", "top_n=-1"} {
		rec := doRequest(t, h, "GET", "/api/v1/predictions/forge_fc/cavalry_fc?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPredictionEndpointUnknownTeam(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/api/v1/predictions/Vancouver%20FC/Forge%20FC", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	payload := decode(t, rec)
	assert.Contains(t, payload["error"], "Vancouver FC")
	assert.Equal(t,
		[]interface{}{"Cavalry FC", "Forge FC", "Pacific FC"},
		payload["known_teams"])
}

func TestValueEndpoint(t *testing.T) {
	h := testHandler(t, true)

	body := `{"home_team": "forge_fc", "away_team": "cavalry_fc",
		"odds": {"home": 2.5, "draw": 3.4, "away": 3.1, "over_2.5": 2.0}}`
	rec := doRequest(t, h, "POST", "/api/v1/value", body)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "Forge FC", payload["home_team"])
	value := payload["value"].(map[string]interface{})
	assert.Len(t, value, 4, "one EV per supplied market")
}

func TestValueEndpointWithInlinePrediction(t *testing.T) {
	h := testHandler(t, false)

	body := `{"prediction": {"home_team": "A", "away_team": "B", "home_win": 0.5},
		"odds": {"home": 2.1}}`
	rec := doRequest(t, h, "POST", "/api/v1/value", body)
	require.Equal(t, http.StatusOK, rec.Code, "an inline prediction needs no fitted model")

	value := decode(t, rec)["value"].(map[string]interface{})
	assert.InDelta(t, 5.0, value["home"].(float64), 1e-9)
}

func TestValueEndpointValidation(t *testing.T) {
	h := testHandler(t, true)

	for name, body := range map[string]string{
		"bad json":     `{`,
		"missing odds": `{"home_team": "forge_fc", "away_team": "cavalry_fc"}`,
		"no teams":     `{"odds": {"home": 2.0}}`,
	} {
		rec := doRequest(t, h, "POST", "/api/v1/value", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t, true)

	rec := doRequest(t, h, "GET", "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, true, payload["model_fitted"])
	assert.EqualValues(t, 3, payload["teams"])
	assert.EqualValues(t, 6, payload["matches"])
}
