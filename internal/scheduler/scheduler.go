package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/client"
	"github.com/canpl-analytics/cplodds/internal/config"
	"github.com/canpl-analytics/cplodds/internal/metrics"
	"github.com/canpl-analytics/cplodds/internal/store"
)

// Scheduler keeps the match store current: a cron job re-syncs the
// configured seasons from the CanPL API, and an optional immediate sync
// backfills at startup. After every successful sync the onSynced callback
// fires, which is where the worker hangs its refit.
type Scheduler struct {
	cfg      *config.Config
	api      *client.Client
	db       *store.Store
	cron     *cron.Cron
	onSynced func(context.Context)
	stopChan chan struct{}
}

// New creates a scheduler. onSynced may be nil.
func New(cfg *config.Config, api *client.Client, db *store.Store, onSynced func(context.Context)) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		api:      api,
		db:       db,
		cron:     cron.New(),
		onSynced: onSynced,
		stopChan: make(chan struct{}),
	}
}

// Start registers the cron sync job and, when configured, kicks off an
// initial sync in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.SyncCron, func() {
		if err := s.SyncNow(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled sync failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.cfg.SyncCron).Msg("Season sync scheduled")

	if s.cfg.InitialSync {
		go func() {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			default:
			}
			if err := s.SyncNow(ctx); err != nil {
				log.Error().Err(err).Msg("Initial sync failed")
			}
		}()
	}

	return nil
}

// Stop halts the cron schedule. An in-flight sync finishes its current
// season and then observes the stop.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopChan)

	log.Info().Msg("Scheduler stopped")
}

// SyncNow fetches finished matches for every configured season and upserts
// them into the store. A season that fails is logged and skipped so one bad
// response does not void the rest of the run.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	start := time.Now()
	log.Info().Ints("seasons", s.cfg.Seasons()).Msg("Season sync starting")

	var synced, failed int
	for _, year := range s.cfg.Seasons() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return fmt.Errorf("scheduler stopped")
		default:
		}

		n, err := s.syncSeason(ctx, year)
		if err != nil {
			log.Error().Err(err).Int("season", year).Msg("Season sync failed")
			metrics.RecordError("scheduler", "season_sync")
			failed++
			continue
		}
		synced += n
	}

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	metrics.RecordSync("seasons", status, time.Since(start).Seconds())
	s.updateStoreStats()

	log.Info().
		Int("matches", synced).
		Int("failed_seasons", failed).
		Dur("duration", time.Since(start)).
		Msg("Season sync complete")

	if failed == len(s.cfg.Seasons()) && failed > 0 {
		return fmt.Errorf("all %d seasons failed to sync", failed)
	}

	if s.onSynced != nil {
		s.onSynced(ctx)
	}
	return nil
}

// syncSeason fetches one season's finished matches and stores them.
func (s *Scheduler) syncSeason(ctx context.Context, year int) (int, error) {
	matches, err := s.api.FetchFinishedMatches(ctx, year)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		log.Debug().Int("season", year).Msg("No finished matches")
		return 0, nil
	}

	if err := s.db.SaveMatches(matches); err != nil {
		return 0, fmt.Errorf("failed to store season %d: %w", year, err)
	}

	log.Info().Int("season", year).Int("matches", len(matches)).Msg("Season synced")
	return len(matches), nil
}

func (s *Scheduler) updateStoreStats() {
	matches, err := s.db.CountMatches()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count matches")
		return
	}
	odds, err := s.db.CountClosingOdds()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count closing odds")
		return
	}
	metrics.UpdateStoreStats(int64(matches), int64(odds))
}
