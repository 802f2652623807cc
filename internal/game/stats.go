package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"minigame-bot/internal/model"
	"minigame-bot/internal/store"
)

// Stats persists per-game per-player counters (wins, losses, best scores) in
// the games collection, one record per (game, guild).
type Stats struct {
	store store.Store
}

// NewStats creates a Stats service over a store.
func NewStats(s store.Store) *Stats {
	return &Stats{store: s}
}

func (s *Stats) updateRecord(ctx context.Context, gameCommand string, guildID, playerID int64, fn func(ps *model.PlayerStats)) error {
	key := store.GameKey(gameCommand, guildID)
	return s.store.Update(ctx, store.CollectionGames, key, func(cur []byte) ([]byte, error) {
		rec := &model.GameStatsRecord{}
		if cur != nil {
			if err := json.Unmarshal(cur, rec); err != nil {
				return nil, fmt.Errorf("decoding game stats: %w", err)
			}
		}
		rec.Normalize()

		pid := strconv.FormatInt(playerID, 10)
		ps := rec.Players[pid]
		if ps.Counters == nil {
			ps.Counters = map[string]int64{}
		}
		fn(&ps)
		rec.Players[pid] = ps
		return json.Marshal(rec)
	})
}

// Record adds counter deltas for a player (e.g. wins+1, games+1).
func (s *Stats) Record(ctx context.Context, gameCommand string, guildID, playerID int64, deltas map[string]int64) error {
	return s.updateRecord(ctx, gameCommand, guildID, playerID, func(ps *model.PlayerStats) {
		for name, d := range deltas {
			ps.Counters[name] += d
		}
	})
}

// RecordBest raises a high-water counter to value if it is higher.
func (s *Stats) RecordBest(ctx context.Context, gameCommand string, guildID, playerID int64, counter string, value int64) error {
	return s.updateRecord(ctx, gameCommand, guildID, playerID, func(ps *model.PlayerStats) {
		if value > ps.Counters[counter] {
			ps.Counters[counter] = value
		}
	})
}

// Player returns one player's counters for a game. Unknown players get empty
// stats.
func (s *Stats) Player(ctx context.Context, gameCommand string, guildID, playerID int64) (model.PlayerStats, error) {
	doc, err := s.store.Get(ctx, store.CollectionGames, store.GameKey(gameCommand, guildID))
	if errors.Is(err, store.ErrNotFound) {
		return model.PlayerStats{Counters: map[string]int64{}}, nil
	}
	if err != nil {
		return model.PlayerStats{}, err
	}

	var rec model.GameStatsRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return model.PlayerStats{}, fmt.Errorf("decoding game stats: %w", err)
	}
	rec.Normalize()

	ps, ok := rec.Players[strconv.FormatInt(playerID, 10)]
	if !ok || ps.Counters == nil {
		return model.PlayerStats{Counters: map[string]int64{}}, nil
	}
	return ps, nil
}

// StatEntry is one leaderboard row.
type StatEntry struct {
	PlayerID int64
	Value    int64
}

// Leaderboard ranks players of a game by one counter, descending.
func (s *Stats) Leaderboard(ctx context.Context, gameCommand string, guildID int64, counter string, limit int) ([]StatEntry, error) {
	doc, err := s.store.Get(ctx, store.CollectionGames, store.GameKey(gameCommand, guildID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec model.GameStatsRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decoding game stats: %w", err)
	}
	rec.Normalize()

	entries := make([]StatEntry, 0, len(rec.Players))
	for pid, ps := range rec.Players {
		id, err := strconv.ParseInt(pid, 10, 64)
		if err != nil {
			continue
		}
		if v, ok := ps.Counters[counter]; ok {
			entries = append(entries, StatEntry{PlayerID: id, Value: v})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
