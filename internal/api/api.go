package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/cache"
	"github.com/canpl-analytics/cplodds/internal/league"
	"github.com/canpl-analytics/cplodds/internal/metrics"
	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/internal/store"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// Handler serves the prediction API. The fitted model is held behind an
// atomic pointer and swapped whole after each refit, so request handlers
// read a consistent model without locking.
type Handler struct {
	db    *store.Store
	cache *cache.Cache
	model atomic.Pointer[poisson.Model]
}

// NewHandler creates an API handler. cache may be nil.
func NewHandler(db *store.Store, c *cache.Cache) *Handler {
	return &Handler{
		db:    db,
		cache: c,
	}
}

// SetModel publishes a freshly fitted model to request handlers.
func (h *Handler) SetModel(m *poisson.Model) {
	h.model.Store(m)
}

// Model returns the currently served model, nil before the first fit.
func (h *Handler) Model() *poisson.Model {
	return h.model.Load()
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/api/v1/teams", h.handleTeams).Methods("GET")
	r.HandleFunc("/api/v1/ratings", h.handleRatings).Methods("GET")
	r.HandleFunc("/api/v1/table", h.handleTable).Methods("GET")
	r.HandleFunc("/api/v1/predictions/{home}/{away}", h.handlePrediction).Methods("GET")
	r.HandleFunc("/api/v1/value", h.handleValue).Methods("POST")
	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")

	return r
}

// statusRecorder captures the response code for the call metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records one call metric per request, labelled by route
// template rather than raw path so team-name segments do not fan out the
// label set.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}
		metrics.RecordAPICall(endpoint, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

/////////////////////////////////////////////////////////////////////////
////// Response shapes
/////////////////////////////////////////////////////////////////////////

// scorelineDTO is a Scoreline with encodable fair odds: a zero-probability
// scoreline has infinite fair odds, which JSON cannot carry, so it
// serializes as null.
type scorelineDTO struct {
	Score       string   `json:"score"`
	HomeGoals   int      `json:"home_goals"`
	AwayGoals   int      `json:"away_goals"`
	Probability float64  `json:"probability"`
	FairOdds    *float64 `json:"fair_odds"`
}

type predictionResponse struct {
	Prediction    *poisson.Prediction `json:"prediction"`
	FairOdds      map[string]*float64 `json:"fair_odds"`
	CorrectScores []scorelineDTO      `json:"correct_scores"`
	Source        string              `json:"source"`
}

type ratingDTO struct {
	Team        string  `json:"team"`
	HomeAttack  float64 `json:"home_attack"`
	HomeDefense float64 `json:"home_defense"`
	AwayAttack  float64 `json:"away_attack"`
	AwayDefense float64 `json:"away_defense"`
	HomeMatches int     `json:"home_matches"`
	AwayMatches int     `json:"away_matches"`
}

// encodableOdds converts fair odds to their JSON form, null for +Inf.
func encodableOdds(odds float64) *float64 {
	if math.IsInf(odds, 0) {
		return nil
	}
	return &odds
}

/////////////////////////////////////////////////////////////////////////
////// Handlers
/////////////////////////////////////////////////////////////////////////

func (h *Handler) handleTeams(w http.ResponseWriter, r *http.Request) {
	m := h.Model()
	if m == nil {
		http.Error(w, "Model not fitted yet", http.StatusServiceUnavailable)
		return
	}

	teams := m.Teams()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"teams": teams,
		"count": len(teams),
	})
}

func (h *Handler) handleRatings(w http.ResponseWriter, r *http.Request) {
	m := h.Model()
	if m == nil {
		http.Error(w, "Model not fitted yet", http.StatusServiceUnavailable)
		return
	}

	baseline := m.Baseline()
	ratings := make([]ratingDTO, 0, len(m.Teams()))
	for _, team := range m.Teams() {
		r, _ := m.Rating(team)
		ratings = append(ratings, ratingDTO{
			Team:        team,
			HomeAttack:  r.HomeAttack,
			HomeDefense: r.HomeDefense,
			AwayAttack:  r.AwayAttack,
			AwayDefense: r.AwayDefense,
			HomeMatches: r.HomeMatches,
			AwayMatches: r.AwayMatches,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"baseline": map[string]float64{
			"avg_home_goals": baseline.AvgHomeGoals,
			"avg_away_goals": baseline.AvgAwayGoals,
		},
		"ratings": ratings,
	})
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	season, ok := queryInt(w, r, "season", 0)
	if !ok {
		return
	}

	var matches []*models.Match
	var err error
	if season > 0 {
		matches, err = h.db.MatchesBySeason(season)
	} else {
		matches, err = h.db.FinishedMatches()
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load matches for table")
		http.Error(w, "Failed to load matches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"table": league.Table(matches),
	})
}

func (h *Handler) handlePrediction(w http.ResponseWriter, r *http.Request) {
	m := h.Model()
	if m == nil {
		http.Error(w, "Model not fitted yet", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	home := ResolveTeam(m, vars["home"])
	away := ResolveTeam(m, vars["away"])

	maxGoals, ok := queryInt(w, r, "max_goals", 15)
	if !ok {
		return
	}
	topN, ok := queryInt(w, r, "top_n", 0)
	if !ok {
		return
	}

	// The cache holds default-parameter predictions only; any override
	// bypasses it.
	useCache := maxGoals == 0 && topN == 0

	var pred *poisson.Prediction
	source := "model"
	if useCache {
		if cached, hit := h.cache.GetPrediction(r.Context(), home, away); hit {
			pred = cached
			source = "cache"
			metrics.RecordCacheHit()
		} else {
			metrics.RecordCacheMiss()
		}
	}

	if pred == nil {
		var err error
		pred, err = m.PredictAt(home, away, maxGoals)
		if err != nil {
			writePredictionError(w, err)
			return
		}
		if useCache {
			h.cache.SetPrediction(r.Context(), pred)
		}
	}

	scores, err := m.CorrectScores(home, away, topN)
	if err != nil {
		writePredictionError(w, err)
		return
	}

	scoreDTOs := make([]scorelineDTO, len(scores))
	for i, s := range scores {
		scoreDTOs[i] = scorelineDTO{
			Score:       s.Score(),
			HomeGoals:   s.HomeGoals,
			AwayGoals:   s.AwayGoals,
			Probability: s.Probability,
			FairOdds:    encodableOdds(s.FairOdds),
		}
	}

	metrics.RecordPrediction(source)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(predictionResponse{
		Prediction: pred,
		FairOdds: map[string]*float64{
			poisson.MarketHome:     encodableOdds(poisson.FairOdds(pred.HomeWin)),
			poisson.MarketDraw:     encodableOdds(poisson.FairOdds(pred.Draw)),
			poisson.MarketAway:     encodableOdds(poisson.FairOdds(pred.AwayWin)),
			poisson.MarketOver2p5:  encodableOdds(poisson.FairOdds(pred.Over2p5)),
			poisson.MarketUnder2p5: encodableOdds(poisson.FairOdds(pred.Under2p5)),
		},
		CorrectScores: scoreDTOs,
		Source:        source,
	})
}

func (h *Handler) handleValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HomeTeam   string              `json:"home_team"`
		AwayTeam   string              `json:"away_team"`
		Prediction *poisson.Prediction `json:"prediction"`
		Odds       map[string]float64  `json:"odds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Odds) == 0 {
		http.Error(w, "Missing 'odds' field", http.StatusBadRequest)
		return
	}

	pred := req.Prediction
	if pred == nil {
		if req.HomeTeam == "" || req.AwayTeam == "" {
			http.Error(w, "Provide either 'prediction' or 'home_team' and 'away_team'", http.StatusBadRequest)
			return
		}
		m := h.Model()
		if m == nil {
			http.Error(w, "Model not fitted yet", http.StatusServiceUnavailable)
			return
		}

		var err error
		pred, err = m.Predict(ResolveTeam(m, req.HomeTeam), ResolveTeam(m, req.AwayTeam))
		if err != nil {
			writePredictionError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"home_team":  pred.HomeTeam,
		"away_team":  pred.AwayTeam,
		"prediction": pred,
		"value":      poisson.CalculateValue(pred, req.Odds),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := h.Model()

	status := map[string]interface{}{
		"status":       "ok",
		"model_fitted": m != nil,
	}
	if m != nil {
		status["teams"] = len(m.Teams())
	}
	if count, err := h.db.CountMatches(); err == nil {
		status["matches"] = count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

/////////////////////////////////////////////////////////////////////////
////// Helpers
/////////////////////////////////////////////////////////////////////////

// ResolveTeam maps caller input to a fitted team name, accepting both the
// display name and its slug form. Unresolvable input passes through so the
// model reports it with the known-team listing.
func ResolveTeam(m *poisson.Model, raw string) string {
	if _, ok := m.Rating(raw); ok {
		return raw
	}
	slug := models.TeamSlug(raw)
	for _, team := range m.Teams() {
		if models.TeamSlug(team) == slug {
			return team
		}
	}
	return raw
}

// queryInt parses an optional positive integer query parameter, writing a
// 400 and returning false on bad input. Absent means 0; max of 0 means
// unbounded.
func queryInt(w http.ResponseWriter, r *http.Request, name string, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || (max > 0 && n > max) {
		http.Error(w, "Invalid '"+name+"' parameter", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// writePredictionError maps model errors to HTTP responses: unknown teams
// are a 404 carrying the fitted team list, anything else a 500.
func writePredictionError(w http.ResponseWriter, err error) {
	var unknown *poisson.UnknownTeamError
	if errors.As(err, &unknown) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":       unknown.Error(),
			"known_teams": unknown.Known,
		})
		return
	}

	log.Error().Err(err).Msg("Prediction failed")
	http.Error(w, "Prediction failed", http.StatusInternalServerError)
}
