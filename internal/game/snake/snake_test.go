package snake

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"minigame-bot/internal/game"
)

const player = int64(42)

func newRun(t *testing.T, difficulty string, seed int64) *Engine {
	t.Helper()
	eng, err := New(game.Options{Players: []int64{player}, Difficulty: difficulty, Rand: rand.New(rand.NewSource(seed))})
	require.NoError(t, err)
	return eng.(*Engine)
}

func TestDifficultyGrids(t *testing.T) {
	tests := []struct {
		difficulty    string
		width, height int
	}{
		{"easy", 8, 8},
		{"normal", 10, 10},
		{"hard", 12, 12},
		{"expert", 15, 15},
		{"bogus", 10, 10}, // falls back to normal
	}
	for _, tt := range tests {
		e := newRun(t, tt.difficulty, 1)
		assert.Equal(t, tt.width, e.width, tt.difficulty)
		assert.Equal(t, tt.height, e.height, tt.difficulty)
	}
}

func TestReward(t *testing.T) {
	assert.Equal(t, int64(50), Reward(5, "easy"))
	assert.Equal(t, int64(75), Reward(5, "normal"))
	assert.Equal(t, int64(100), Reward(5, "hard"))
	assert.Equal(t, int64(150), Reward(5, "expert"))
	assert.Equal(t, int64(0), Reward(0, "expert"))
	assert.Equal(t, int64(75), Reward(5, "bogus"), "unknown difficulty scores as normal")
}

func TestWrapsAroundEdges(t *testing.T) {
	e := newRun(t, "easy", 1) // 8x8, head starts at (4,4) heading right

	for i := 0; i < 8; i++ {
		require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTick}))
	}
	require.False(t, e.IsTerminal(), "walls do not kill")
	assert.Equal(t, Point{4, 4}, e.Head(), "full lap wraps back to start")
}

func TestReversalIgnored(t *testing.T) {
	e := newRun(t, "normal", 1) // heading right

	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTurn, Data: "left"}))
	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTick}))
	assert.Equal(t, Point{6, 5}, e.Head(), "reversal is a no-op, keeps heading right")

	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTurn, Data: "up"}))
	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTick}))
	assert.Equal(t, Point{6, 4}, e.Head())

	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveTurn, Data: "diagonal"}), game.ErrInvalidMove)
}

func TestEatingGrowsAndScores(t *testing.T) {
	e := newRun(t, "normal", 1)
	// Steer the food in front of the head instead of chasing the rng.
	e.food = Point{e.Head().X + 1, e.Head().Y}
	e.hasFood = true

	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveTick}))
	assert.Equal(t, 1, e.Score())
	assert.Equal(t, 2, e.Len())
	assert.True(t, e.hasFood, "new food placed")
	assert.False(t, e.occupied(e.food), "food never spawns on the snake")
}

func TestQuitAndTimeoutPayForScore(t *testing.T) {
	e := newRun(t, "hard", 1)
	e.score = 7

	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveQuit}))
	res := e.Result()
	assert.Equal(t, game.OutcomeWin, res.Outcome)
	assert.Equal(t, int64(140), res.Reward)

	e2 := newRun(t, "hard", 1)
	e2.score = 7
	require.NoError(t, e2.ApplyMove(0, game.TimedOut))
	res2 := e2.Result()
	assert.Equal(t, game.OutcomeTimeout, res2.Outcome)
	assert.Equal(t, int64(140), res2.Reward, "timeout still pays for food eaten")
}

// TestRunInvariantsProperty drives random runs and checks the body never
// overlaps itself, stays in bounds and grows only by eating.
func TestRunInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		diff := rapid.SampledFrom([]string{"easy", "normal", "hard", "expert"}).Draw(rt, "difficulty")
		eng, err := New(game.Options{Players: []int64{player}, Difficulty: diff, Rand: rand.New(rand.NewSource(seed))})
		if err != nil {
			rt.Fatalf("new: %v", err)
		}
		e := eng.(*Engine)

		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps && !e.IsTerminal(); i++ {
			if rapid.Bool().Draw(rt, "turn") {
				d := rapid.SampledFrom([]string{"up", "down", "left", "right"}).Draw(rt, "dir")
				if err := e.ApplyMove(player, game.Move{Kind: MoveTurn, Data: d}); err != nil {
					rt.Fatalf("turn: %v", err)
				}
			}
			if err := e.ApplyMove(player, game.Move{Kind: MoveTick}); err != nil {
				rt.Fatalf("tick: %v", err)
			}

			seen := make(map[Point]bool, len(e.body))
			for _, p := range e.body {
				if p.X < 0 || p.X >= e.width || p.Y < 0 || p.Y >= e.height {
					rt.Fatalf("body out of bounds: %+v", p)
				}
				if seen[p] {
					rt.Fatalf("body overlaps at %+v", p)
				}
				seen[p] = true
			}
			if e.Len() != e.Score()+1 {
				rt.Fatalf("length %d inconsistent with score %d", e.Len(), e.Score())
			}
		}

		if e.IsTerminal() {
			if got := e.Result().Reward; got != Reward(e.Score(), diff) {
				rt.Fatalf("reward %d != expected for score %d", got, e.Score())
			}
		}
	})
}
