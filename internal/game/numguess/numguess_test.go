package numguess

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"minigame-bot/internal/game"
)

const player = int64(42)

func newRound(t *testing.T, difficulty string) *Engine {
	t.Helper()
	eng, err := New(game.Options{Players: []int64{player}, Difficulty: difficulty, Rand: rand.New(rand.NewSource(5))})
	require.NoError(t, err)
	return eng.(*Engine)
}

func TestDifficultyRanges(t *testing.T) {
	tests := []struct {
		difficulty string
		min, max   int
		attempts   int
	}{
		{"easy", 1, 50, 6},
		{"normal", 1, 100, 7},
		{"hard", 1, 200, 8},
		{"expert", 1, 500, 9},
		{"bogus", 1, 100, 7},
	}
	for _, tt := range tests {
		e := newRound(t, tt.difficulty)
		lo, hi := e.Range()
		assert.Equal(t, tt.min, lo, tt.difficulty)
		assert.Equal(t, tt.max, hi, tt.difficulty)
		assert.Equal(t, tt.attempts, e.Remaining())
		assert.GreaterOrEqual(t, e.secret, lo)
		assert.LessOrEqual(t, e.secret, hi)
	}
}

func TestReward(t *testing.T) {
	assert.Equal(t, int64(65), Reward("easy", 3), "50 base + 3 spare attempts at 5 each")
	assert.Equal(t, int64(100), Reward("normal", 0))
	assert.Equal(t, int64(170), Reward("normal", 7))
	assert.Equal(t, int64(950), Reward("expert", 9))
}

func TestWinWithSpareAttempts(t *testing.T) {
	e := newRound(t, "easy")
	e.secret = 25

	for _, g := range []string{"10", "40", "25"} {
		require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: g}))
	}

	require.True(t, e.IsTerminal())
	res := e.Result()
	assert.Equal(t, game.OutcomeWin, res.Outcome)
	assert.Equal(t, int64(65), res.Reward)
	assert.Equal(t, 25, res.Detail["secret"])
}

func TestHints(t *testing.T) {
	e := newRound(t, "easy")
	e.secret = 30

	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "10"}))
	assert.Contains(t, e.Render(), "higher")
	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "45"}))
	assert.Contains(t, e.Render(), "lower")
}

func TestExhaustedAttemptsLose(t *testing.T) {
	e := newRound(t, "easy")
	e.secret = 50

	for i := 1; i <= 6; i++ {
		require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: strconv.Itoa(i)}))
	}

	require.True(t, e.IsTerminal())
	res := e.Result()
	assert.Equal(t, game.OutcomeLoss, res.Outcome)
	assert.Equal(t, int64(0), res.Reward)
	assert.Equal(t, 50, res.Detail["secret"], "secret revealed on loss")
}

func TestInvalidGuessesCostNothing(t *testing.T) {
	e := newRound(t, "easy")

	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "abc"}), game.ErrInvalidMove)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "0"}), game.ErrInvalidMove)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "51"}), game.ErrInvalidMove)
	assert.Equal(t, 6, e.Remaining(), "rejected guesses keep all attempts")

	assert.ErrorIs(t, e.ApplyMove(99, game.Move{Kind: MoveGuess, Data: "10"}), game.ErrNotParticipant)
}

func TestTimeout(t *testing.T) {
	e := newRound(t, "normal")
	require.NoError(t, e.ApplyMove(0, game.TimedOut))
	assert.Equal(t, game.OutcomeTimeout, e.Result().Outcome)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "10"}), game.ErrGameOver)
}

// TestBinarySearchAlwaysWinsProperty checks the attempt budgets are generous
// enough that following the hints always finds the secret.
func TestBinarySearchAlwaysWinsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		diff := rapid.SampledFrom([]string{"easy", "normal", "hard", "expert"}).Draw(rt, "difficulty")

		eng, err := New(game.Options{Players: []int64{player}, Difficulty: diff, Rand: rand.New(rand.NewSource(seed))})
		if err != nil {
			rt.Fatalf("new: %v", err)
		}
		e := eng.(*Engine)

		lo, hi := e.Range()
		for !e.IsTerminal() {
			mid := (lo + hi) / 2
			if err := e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: strconv.Itoa(mid)}); err != nil {
				rt.Fatalf("guess %d: %v", mid, err)
			}
			if e.IsTerminal() {
				break
			}
			if mid < e.secret {
				lo = mid + 1
			} else {
				hi = mid - 1
			}
		}

		res := e.Result()
		if res.Outcome != game.OutcomeWin {
			rt.Fatalf("binary search lost on %s with secret %d", diff, e.secret)
		}
		if res.Reward != Reward(diff, e.Remaining()) {
			rt.Fatalf("reward mismatch: %d", res.Reward)
		}
	})
}
