// Package jobs runs background maintenance on a cron schedule: stale game
// sessions are reaped and expired boosters deactivated without waiting for
// the owning player's next command.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"minigame-bot/internal/economy"
	"minigame-bot/internal/game"
	"minigame-bot/internal/store"
)

// Scheduler owns the cron instance and the sweep jobs.
type Scheduler struct {
	cron          *cron.Cron
	sessions      *game.SessionRegistry
	economy       *economy.Engine
	store         store.Store
	sessionMaxAge time.Duration
}

// NewScheduler creates a scheduler; call Start to begin sweeping.
func NewScheduler(sessions *game.SessionRegistry, eng *economy.Engine, s store.Store, sessionMaxAge time.Duration) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		sessions:      sessions,
		economy:       eng,
		store:         s,
		sessionMaxAge: sessionMaxAge,
	}
}

// Start registers the sweep jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/5 * * * *", s.sweepSessions); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	if _, err := s.cron.AddFunc("@hourly", s.sweepBoosters); err != nil {
		return fmt.Errorf("schedule booster sweep: %w", err)
	}
	s.cron.Start()
	log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Maintenance scheduler stopped")
}

// sweepSessions releases game sessions whose runner died without ending them.
func (s *Scheduler) sweepSessions() {
	if n := s.sessions.SweepStale(s.sessionMaxAge, time.Now()); n > 0 {
		log.Info().Int("released", n).Msg("Stale game sessions released")
	}
}

// sweepBoosters walks every economy record, deactivates expired boosters and
// zeroes daily streaks whose grace window has lapsed.
func (s *Scheduler) sweepBoosters() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	docs, err := s.store.List(ctx, store.CollectionEconomy, "")
	if err != nil {
		log.Error().Err(err).Msg("Booster sweep list failed")
		return
	}

	now := time.Now()
	removed := 0
	streaksPruned := 0
	for key := range docs {
		var guildID, playerID int64
		if _, err := fmt.Sscanf(key, "%d_%d", &guildID, &playerID); err != nil {
			log.Warn().Str("key", key).Msg("Skipping malformed economy key")
			continue
		}
		n, err := s.economy.SweepExpiredBoosters(ctx, guildID, playerID, now)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("Booster sweep failed for record")
			continue
		}
		removed += n
		pruned, err := s.economy.PruneStaleStreak(ctx, guildID, playerID, now)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("Streak prune failed for record")
			continue
		}
		if pruned {
			streaksPruned++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Expired boosters deactivated")
	}
	if streaksPruned > 0 {
		log.Info().Int("pruned", streaksPruned).Msg("Lapsed daily streaks reset")
	}
}
