// Package economy implements the balance ledger: credits, debits, daily
// streak rewards, work payouts, gambling and transfers. All mutations run
// through the store's atomic Update so concurrent commands for the same player
// cannot drop each other's writes.
package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"minigame-bot/internal/model"
	"minigame-bot/internal/store"
)

// Daily and work reward tuning. The streak grace window is double the
// cooldown: claiming within 24-48h of the previous claim extends the streak,
// later than that resets it.
const (
	DailyCooldown = 24 * time.Hour
	DailyGrace    = 48 * time.Hour
	WorkCooldown  = time.Hour
)

// Common errors for economy operations.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrTooSoon           = errors.New("reward not available yet")
)

// TooSoonError reports how long until the next claim is allowed.
type TooSoonError struct {
	Remaining time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("reward not available yet, %s remaining", e.Remaining.Round(time.Second))
}

// Is makes errors.Is(err, ErrTooSoon) match.
func (e *TooSoonError) Is(target error) bool { return target == ErrTooSoon }

// Config holds reward tuning knobs.
type Config struct {
	DailyMin    int64
	DailyMax    int64
	StreakBonus int64
	WorkMin     int64
	WorkMax     int64
}

// DefaultConfig returns the stock reward tuning.
func DefaultConfig() Config {
	return Config{
		DailyMin:    100,
		DailyMax:    200,
		StreakBonus: 50,
		WorkMin:     10,
		WorkMax:     50,
	}
}

// RandFn returns a uniformly random integer in [min, max].
type RandFn func(min, max int64) int64

// Engine is the economy service. The random source is injectable so reward
// amounts are deterministic under test.
type Engine struct {
	store store.Store
	cfg   Config
	randn RandFn
}

// NewEngine creates an Engine bound to a store.
func NewEngine(s store.Store, cfg Config, randn RandFn) *Engine {
	return &Engine{store: s, cfg: cfg, randn: randn}
}

// Record fetches a player's economy record, lazily treating absent records as
// zero-balance ones.
func (e *Engine) Record(ctx context.Context, guildID, playerID int64) (*model.EconomyRecord, error) {
	doc, err := e.store.Get(ctx, store.CollectionEconomy, store.EconomyKey(guildID, playerID))
	if errors.Is(err, store.ErrNotFound) {
		rec := &model.EconomyRecord{}
		rec.Normalize()
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(doc)
}

// Balance returns a player's current balance.
func (e *Engine) Balance(ctx context.Context, guildID, playerID int64) (int64, error) {
	rec, err := e.Record(ctx, guildID, playerID)
	if err != nil {
		return 0, err
	}
	return rec.Balance, nil
}

// updateRecord runs fn on the decoded record under the store's per-key
// serialization and writes the result back. fn errors abort the write.
func (e *Engine) updateRecord(ctx context.Context, guildID, playerID int64, fn func(rec *model.EconomyRecord) error) (*model.EconomyRecord, error) {
	var out *model.EconomyRecord
	err := e.store.Update(ctx, store.CollectionEconomy, store.EconomyKey(guildID, playerID), func(cur []byte) ([]byte, error) {
		rec := &model.EconomyRecord{}
		if cur != nil {
			var err error
			rec, err = decodeRecord(cur)
			if err != nil {
				return nil, err
			}
		}
		rec.Normalize()
		if err := fn(rec); err != nil {
			return nil, err
		}
		rec.Normalize()
		out = rec
		return json.Marshal(rec)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecord(doc []byte) (*model.EconomyRecord, error) {
	var rec model.EconomyRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decoding economy record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

// Credit adds amount to a player's balance and returns the new balance.
func (e *Engine) Credit(ctx context.Context, guildID, playerID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	rec, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		rec.Balance += amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.Balance, nil
}

// Debit subtracts amount from a player's balance. When the balance is short
// the record is left untouched and ok is false.
func (e *Engine) Debit(ctx context.Context, guildID, playerID, amount int64) (ok bool, balance int64, err error) {
	if amount <= 0 {
		return false, 0, ErrInvalidAmount
	}
	short := false
	rec, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		if rec.Balance < amount {
			short = true
			return nil
		}
		rec.Balance -= amount
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return !short, rec.Balance, nil
}

// DailyResult describes a successful daily claim.
type DailyResult struct {
	Base    int64
	Bonus   int64
	Reward  int64
	Streak  int
	Balance int64
}

// ClaimDaily claims the daily reward. Within the cooldown it fails with a
// TooSoonError and no mutation. A claim inside the grace window extends the
// streak; a later one resets it to 1. Reward = uniform(min,max) + streak*bonus,
// multiplied by an active "daily" booster if present.
func (e *Engine) ClaimDaily(ctx context.Context, guildID, playerID int64, now time.Time) (*DailyResult, error) {
	res := &DailyResult{}
	_, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		since := now.Unix() - rec.LastDaily
		if rec.LastDaily > 0 && since < int64(DailyCooldown.Seconds()) {
			remaining := time.Duration(int64(DailyCooldown.Seconds())-since) * time.Second
			return &TooSoonError{Remaining: remaining}
		}

		if rec.LastDaily > 0 && since < int64(DailyGrace.Seconds()) {
			rec.DailyStreak++
		} else {
			rec.DailyStreak = 1
		}

		res.Base = e.randn(e.cfg.DailyMin, e.cfg.DailyMax)
		res.Bonus = int64(rec.DailyStreak) * e.cfg.StreakBonus
		res.Reward = res.Base + res.Bonus

		if b := rec.ActiveBoosterFor("daily", now.Unix()); b != nil {
			res.Reward = int64(math.Floor(float64(res.Reward) * b.Multiplier))
		}

		rec.Balance += res.Reward
		rec.LastDaily = now.Unix()
		res.Streak = rec.DailyStreak
		res.Balance = rec.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int64("guild_id", guildID).
		Int64("player_id", playerID).
		Int64("reward", res.Reward).
		Int("streak", res.Streak).
		Msg("Daily reward claimed")
	return res, nil
}

// PruneStaleStreak zeroes a daily streak whose grace window has lapsed, so
// persisted records stop advertising streaks that can no longer be extended.
// Returns whether the record changed.
func (e *Engine) PruneStaleStreak(ctx context.Context, guildID, playerID int64, now time.Time) (bool, error) {
	pruned := false
	_, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		if rec.DailyStreak > 0 && rec.LastDaily > 0 &&
			now.Unix()-rec.LastDaily >= int64(DailyGrace.Seconds()) {
			rec.DailyStreak = 0
			pruned = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return pruned, nil
}

// WorkResult describes a successful work payout.
type WorkResult struct {
	Reward  int64
	Balance int64
}

// Work pays a small hourly reward.
func (e *Engine) Work(ctx context.Context, guildID, playerID int64, now time.Time) (*WorkResult, error) {
	res := &WorkResult{}
	_, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		since := now.Unix() - rec.LastWork
		if rec.LastWork > 0 && since < int64(WorkCooldown.Seconds()) {
			remaining := time.Duration(int64(WorkCooldown.Seconds())-since) * time.Second
			return &TooSoonError{Remaining: remaining}
		}
		res.Reward = e.randn(e.cfg.WorkMin, e.cfg.WorkMax)
		rec.Balance += res.Reward
		rec.LastWork = now.Unix()
		res.Balance = rec.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Multiplier maps a gamble roll in [1,100] to its payout multiplier.
func Multiplier(roll int) float64 {
	switch {
	case roll <= 30:
		return 0
	case roll <= 50:
		return 1
	case roll <= 70:
		return 1.5
	case roll <= 90:
		return 2
	case roll <= 99:
		return 3
	default: // roll == 100
		return 5
	}
}

// GambleResult describes one resolved gamble.
type GambleResult struct {
	Roll       int
	Multiplier float64
	Payout     int64
	Net        int64
	Balance    int64
}

// Gamble wagers an amount against a roll in [1,100]. The result is a pure
// function of (wager, roll); the roll itself is the only randomness and is
// supplied by the caller. Rejects non-positive wagers and wagers above the
// current balance without mutating the record.
func (e *Engine) Gamble(ctx context.Context, guildID, playerID, wager int64, roll int) (*GambleResult, error) {
	if wager <= 0 {
		return nil, ErrInvalidAmount
	}
	if roll < 1 || roll > 100 {
		return nil, fmt.Errorf("roll out of range: %d", roll)
	}

	res := &GambleResult{Roll: roll, Multiplier: Multiplier(roll)}
	res.Payout = int64(math.Floor(float64(wager) * res.Multiplier))
	res.Net = res.Payout - wager

	_, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		if rec.Balance < wager {
			return ErrInsufficientFunds
		}
		rec.Balance += res.Net
		res.Balance = rec.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Transfer moves amount from one player to another. The debit happens first;
// the credit only runs once the debit has committed, so a failed debit leaves
// the system untouched. A failed credit rolls the debit back.
func (e *Engine) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}

	ok, _, err := e.Debit(ctx, guildID, fromID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}

	if _, err := e.Credit(ctx, guildID, toID, amount); err != nil {
		// Return the escrowed amount to the sender.
		if _, rbErr := e.Credit(ctx, guildID, fromID, amount); rbErr != nil {
			log.Error().Err(rbErr).
				Int64("guild_id", guildID).
				Int64("from", fromID).
				Int64("amount", amount).
				Msg("Transfer rollback failed")
		}
		return fmt.Errorf("crediting recipient: %w", err)
	}
	return nil
}

// LeaderboardEntry is one row of the balance leaderboard.
type LeaderboardEntry struct {
	PlayerID int64
	Balance  int64
}

// Leaderboard returns the guild's top balances, descending.
func (e *Engine) Leaderboard(ctx context.Context, guildID int64, limit int) ([]LeaderboardEntry, error) {
	docs, err := e.store.List(ctx, store.CollectionEconomy, store.GuildPrefix(guildID))
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(docs))
	for key, doc := range docs {
		var playerID int64
		var g int64
		if _, err := fmt.Sscanf(key, "%d_%d", &g, &playerID); err != nil {
			continue
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			log.Warn().Str("key", key).Err(err).Msg("Skipping undecodable economy record")
			continue
		}
		entries = append(entries, LeaderboardEntry{PlayerID: playerID, Balance: rec.Balance})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
