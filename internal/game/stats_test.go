package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame-bot/internal/store"
)

func newTestStats(t *testing.T) *Stats {
	t.Helper()
	s, err := store.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewStats(s)
}

func TestStatsRecordAndPlayer(t *testing.T) {
	st := newTestStats(t)
	ctx := context.Background()

	require.NoError(t, st.Record(ctx, "hangman", 1000, 42, map[string]int64{"wins": 1, "games": 1}))
	require.NoError(t, st.Record(ctx, "hangman", 1000, 42, map[string]int64{"losses": 1, "games": 1}))

	ps, err := st.Player(ctx, "hangman", 1000, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps.Counters["wins"])
	assert.Equal(t, int64(1), ps.Counters["losses"])
	assert.Equal(t, int64(2), ps.Counters["games"])

	// Unknown player and unknown game both read as empty.
	ps, err = st.Player(ctx, "hangman", 1000, 99)
	require.NoError(t, err)
	assert.Empty(t, ps.Counters)
	ps, err = st.Player(ctx, "snake", 1000, 42)
	require.NoError(t, err)
	assert.Empty(t, ps.Counters)
}

func TestStatsRecordBest(t *testing.T) {
	st := newTestStats(t)
	ctx := context.Background()

	require.NoError(t, st.RecordBest(ctx, "snake", 1000, 42, "best_score", 120))
	require.NoError(t, st.RecordBest(ctx, "snake", 1000, 42, "best_score", 80))
	require.NoError(t, st.RecordBest(ctx, "snake", 1000, 42, "best_score", 150))

	ps, err := st.Player(ctx, "snake", 1000, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(150), ps.Counters["best_score"], "only higher values stick")
}

func TestStatsLeaderboard(t *testing.T) {
	st := newTestStats(t)
	ctx := context.Background()

	require.NoError(t, st.Record(ctx, "numguess", 1000, 1, map[string]int64{"wins": 3}))
	require.NoError(t, st.Record(ctx, "numguess", 1000, 2, map[string]int64{"wins": 5}))
	require.NoError(t, st.Record(ctx, "numguess", 1000, 3, map[string]int64{"wins": 5}))
	require.NoError(t, st.Record(ctx, "numguess", 1000, 4, map[string]int64{"losses": 9}))
	// Another guild's record stays separate.
	require.NoError(t, st.Record(ctx, "numguess", 2000, 8, map[string]int64{"wins": 100}))

	entries, err := st.Leaderboard(ctx, "numguess", 1000, "wins", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3, "players without the counter are excluded")
	assert.Equal(t, int64(2), entries[0].PlayerID, "ties broken by player id")
	assert.Equal(t, int64(3), entries[1].PlayerID)
	assert.Equal(t, int64(1), entries[2].PlayerID)

	entries, err = st.Leaderboard(ctx, "numguess", 3000, "wins", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
