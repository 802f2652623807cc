package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSessionStartAndEnd(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()

	s, err := r.Start("blackjack", now, PlayerKey(1))
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = r.Start("hangman", now, PlayerKey(1))
	assert.ErrorIs(t, err, ErrAlreadyActive)

	active, ok := r.Active(PlayerKey(1))
	require.True(t, ok)
	assert.Equal(t, s.ID, active.ID)

	r.End(s)
	_, ok = r.Active(PlayerKey(1))
	assert.False(t, ok)

	// Ending twice is harmless.
	r.End(s)

	_, err = r.Start("hangman", now, PlayerKey(1))
	assert.NoError(t, err)
}

func TestSessionMultiKeyClaimsAllOrNothing(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()

	_, err := r.Start("snake", now, PlayerKey(2))
	require.NoError(t, err)

	// A channel challenge involving a busy player claims nothing.
	_, err = r.Start("tictactoe", now, ChannelKey(100), PlayerKey(1), PlayerKey(2))
	assert.ErrorIs(t, err, ErrAlreadyActive)

	_, ok := r.Active(ChannelKey(100))
	assert.False(t, ok, "failed start must not leave partial claims")
	_, ok = r.Active(PlayerKey(1))
	assert.False(t, ok)
}

// TestSessionExclusivityProperty races N starts for the same key and checks
// exactly one wins.
func TestSessionExclusivityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewSessionRegistry()
		workers := rapid.IntRange(2, 16).Draw(rt, "workers")

		var wg sync.WaitGroup
		results := make([]error, workers)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, results[i] = r.Start("memory", time.Now(), PlayerKey(7))
			}(i)
		}
		close(start)
		wg.Wait()

		won := 0
		for _, err := range results {
			if err == nil {
				won++
			}
		}
		if won != 1 {
			rt.Fatalf("expected exactly 1 successful start, got %d of %d", won, workers)
		}
	})
}

func TestSweepStale(t *testing.T) {
	r := NewSessionRegistry()
	base := time.Now()

	old, err := r.Start("hangman", base, PlayerKey(1))
	require.NoError(t, err)
	_, err = r.Start("snake", base.Add(25*time.Minute), PlayerKey(2))
	require.NoError(t, err)

	removed := r.SweepStale(30*time.Minute, base.Add(40*time.Minute))
	assert.Equal(t, 1, removed)

	_, ok := r.Active(PlayerKey(1))
	assert.False(t, ok, "stale session released")
	_, ok = r.Active(PlayerKey(2))
	assert.True(t, ok, "fresh session survives")
	_ = old
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Descriptor{Command: "", New: func(Options) (Engine, error) { return nil, nil }})
	assert.Error(t, err)
	err = r.Register(Descriptor{Command: "rps"})
	assert.Error(t, err, "factory required")

	factory := func(Options) (Engine, error) { return nil, nil }
	require.NoError(t, r.Register(Descriptor{Name: "Rock Paper Scissors", Command: "rps", MinPlayers: 1, MaxPlayers: 2, New: factory}))
	require.NoError(t, r.Register(Descriptor{Name: "Blackjack", Command: "blackjack", MinPlayers: 1, MaxPlayers: 1, New: factory}))

	d, ok := r.Get("rps")
	require.True(t, ok)
	assert.Equal(t, "Rock Paper Scissors", d.Name)

	assert.Equal(t, []string{"blackjack", "rps"}, r.Commands())
	assert.Equal(t, 2, r.Count())

	assert.True(t, r.Unregister("rps"))
	assert.False(t, r.Unregister("rps"))
}
