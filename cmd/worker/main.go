package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/api"
	"github.com/canpl-analytics/cplodds/internal/cache"
	"github.com/canpl-analytics/cplodds/internal/client"
	"github.com/canpl-analytics/cplodds/internal/config"
	"github.com/canpl-analytics/cplodds/internal/logger"
	"github.com/canpl-analytics/cplodds/internal/metrics"
	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/internal/notifier"
	"github.com/canpl-analytics/cplodds/internal/scheduler"
	"github.com/canpl-analytics/cplodds/internal/store"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

func main() {
	cfg := config.MustLoad()
	logger.Setup("cplodds-worker", cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CPL odds worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	var predictionCache *cache.Cache
	if cfg.CacheEnabled() {
		predictionCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
			predictionCache = nil
		} else {
			defer predictionCache.Close()
			log.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache connected")
		}
	}

	var alerts *notifier.Notifier
	if cfg.AlertsEnabled() {
		alerts, err = notifier.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.AlertInterval)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Telegram - continuing without alerts")
			alerts = nil
		} else {
			defer alerts.Stop()
		}
	}

	handler := api.NewHandler(db, predictionCache)
	refit := func(ctx context.Context) {
		refitModel(ctx, cfg, db, predictionCache, handler, alerts)
	}

	// Serve whatever the store already holds while the initial sync runs.
	refit(ctx)

	apiClient := client.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIMaxRetries, cfg.APIRequestDelay)
	sched := scheduler.New(cfg, apiClient, db, refit)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	go startMetricsServer(cfg.MetricsAddr)

	apiServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.SetupRoutes(),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown failed")
	}
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// refitModel rebuilds the model from stored matches, swaps it into the API
// handler, flushes stale cached predictions, persists the fresh prediction
// set and scans stored odds for value edges.
func refitModel(ctx context.Context, cfg *config.Config, db *store.Store, predictionCache *cache.Cache, handler *api.Handler, alerts *notifier.Notifier) {
	start := time.Now()

	matches, err := db.FinishedMatches()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load matches for refit")
		metrics.RecordError("worker", "load_matches")
		return
	}

	records := models.ToResults(matches)
	if len(records) == 0 {
		log.Warn().Msg("No finished matches stored yet, model not fitted")
		return
	}

	model, err := poisson.Fit(records, cfg.ModelParams())
	if err != nil {
		log.Error().Err(err).Msg("Model fit failed")
		metrics.RecordError("worker", "fit")
		return
	}

	handler.SetModel(model)
	metrics.RecordModelFit(len(model.Teams()), time.Since(start).Seconds())
	log.Info().
		Int("matches", len(records)).
		Int("teams", len(model.Teams())).
		Dur("duration", time.Since(start)).
		Msg("Model refitted")

	if err := predictionCache.Flush(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache flush failed")
	}

	storePredictions(db, model)
	scanForValue(ctx, cfg, db, model, alerts)
}

// storePredictions upserts a prediction row for every ordered pairing of
// fitted teams.
func storePredictions(db *store.Store, model *poisson.Model) {
	fittedAt := time.Now().UTC()
	teams := model.Teams()

	saved := 0
	for _, home := range teams {
		for _, away := range teams {
			if home == away {
				continue
			}
			pred, err := model.Predict(home, away)
			if err != nil {
				continue
			}
			if err := db.SavePrediction(models.FromPrediction(pred, fittedAt)); err != nil {
				log.Warn().Err(err).Str("home", home).Str("away", away).Msg("Failed to store prediction")
				continue
			}
			saved++
		}
	}
	log.Info().Int("count", saved).Msg("Predictions stored")
}

// scanForValue checks upcoming fixtures with stored closing odds against
// the fresh model and alerts on EV at or above the configured threshold.
func scanForValue(ctx context.Context, cfg *config.Config, db *store.Store, model *poisson.Model, alerts *notifier.Notifier) {
	matches, err := db.AllMatches()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load matches for value scan")
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	edges := 0
	for _, m := range matches {
		if m.Date.Before(today) {
			continue
		}

		odds, err := db.MarketOddsForMatch(m.ID)
		if err != nil || len(odds) == 0 {
			continue
		}

		pred, err := model.Predict(m.HomeTeam, m.AwayTeam)
		if err != nil {
			continue
		}

		for market, ev := range poisson.CalculateValue(pred, odds) {
			if ev < cfg.ValueThreshold {
				continue
			}
			edges++
			log.Info().
				Str("match", m.ID).
				Str("market", market).
				Float64("odds", odds[market]).
				Float64("ev", ev).
				Msg("Value edge detected")

			if alerts == nil {
				continue
			}
			alert := notifier.ValueAlert{
				HomeTeam:    m.HomeTeam,
				AwayTeam:    m.AwayTeam,
				Market:      market,
				Probability: marketProbability(pred, market),
				Odds:        odds[market],
				EV:          ev,
				KickOff:     m.Date,
			}
			if err := alerts.SendValueAlert(ctx, alert); err == nil {
				metrics.RecordValueAlert()
			}
		}
	}

	if edges > 0 {
		log.Info().Int("count", edges).Msg("Value scan complete")
	}
}

// marketProbability picks the model probability matching a market key.
func marketProbability(p *poisson.Prediction, market string) float64 {
	switch market {
	case poisson.MarketHome:
		return p.HomeWin
	case poisson.MarketDraw:
		return p.Draw
	case poisson.MarketAway:
		return p.AwayWin
	case poisson.MarketOver2p5:
		return p.Over2p5
	case poisson.MarketUnder2p5:
		return p.Under2p5
	}
	return 0
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Info().Str("addr", addr).Msg("Starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
