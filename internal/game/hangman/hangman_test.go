package hangman

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"minigame-bot/internal/game"
)

const player = int64(42)

func newRound(t *testing.T, category string) *Engine {
	t.Helper()
	eng, err := New(game.Options{Players: []int64{player}, Category: category, Rand: rand.New(rand.NewSource(11))})
	require.NoError(t, err)
	return eng.(*Engine)
}

func guess(t *testing.T, e *Engine, data string) {
	t.Helper()
	require.NoError(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: data}))
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"animals", "countries", "food", "movies", "sports"}, Categories())

	e := newRound(t, "food")
	assert.Equal(t, "food", e.Category())

	_, err := New(game.Options{Players: []int64{player}, Category: "colors", Rand: rand.New(rand.NewSource(1))})
	assert.Error(t, err)

	// Empty category picks one at random.
	e = newRound(t, "")
	assert.Contains(t, Categories(), e.Category())
}

func TestReward(t *testing.T) {
	assert.Equal(t, int64(70), Reward("penguin"), "7 distinct letters")
	assert.Equal(t, int64(40), Reward("banana"), "duplicates count once")
}

func TestSolveByLetters(t *testing.T) {
	e := newRound(t, "animals")

	distinct := map[string]bool{}
	for _, r := range e.word {
		distinct[string(r)] = true
	}
	for l := range distinct {
		guess(t, e, l)
	}

	require.True(t, e.IsTerminal())
	res := e.Result()
	assert.Equal(t, game.OutcomeWin, res.Outcome)
	assert.Equal(t, player, res.WinnerID)
	assert.Equal(t, Reward(e.word), res.Reward)
	assert.Equal(t, e.word, e.Progress(), "all letters revealed")
}

func TestWholeWordGuess(t *testing.T) {
	e := newRound(t, "movies")

	guess(t, e, e.word)
	require.True(t, e.IsTerminal())
	assert.Equal(t, game.OutcomeWin, e.Result().Outcome)

	// A wrong word guess costs two strikes.
	e2 := newRound(t, "movies")
	guess(t, e2, "notaword")
	assert.Equal(t, 2, e2.Wrong())
	assert.False(t, e2.IsTerminal())
}

func TestWrongWordStrikesClamp(t *testing.T) {
	e := newRound(t, "sports")

	guess(t, e, "notaword")
	guess(t, e, "alsowrong")
	assert.Equal(t, 4, e.Wrong())
	guess(t, e, "stillwrong")
	assert.Equal(t, MaxWrong, e.Wrong(), "strikes clamp at the losing stage")
	require.True(t, e.IsTerminal())
	assert.Equal(t, game.OutcomeLoss, e.Result().Outcome)
	assert.Equal(t, int64(0), e.Result().Reward)
}

func TestSixWrongLettersLose(t *testing.T) {
	e := newRound(t, "countries")

	wrongs := 0
	for _, l := range "abcdefghijklmnopqrstuvwxyz" {
		if !strings.ContainsRune(e.word, l) {
			guess(t, e, string(l))
			wrongs++
			if wrongs == MaxWrong {
				break
			}
		}
	}
	require.True(t, e.IsTerminal())
	assert.Equal(t, game.OutcomeLoss, e.Result().Outcome)
	assert.Equal(t, e.word, e.Result().Detail["word"], "word revealed on loss")
}

func TestGuessValidation(t *testing.T) {
	e := newRound(t, "animals")

	assert.ErrorIs(t, e.ApplyMove(99, game.Move{Kind: MoveGuess, Data: "a"}), game.ErrNotParticipant)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: "3"}), game.ErrInvalidMove)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: ""}), game.ErrInvalidMove)

	first := string(e.word[0])
	guess(t, e, first)
	assert.ErrorIs(t, e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: first}), game.ErrInvalidMove, "duplicate letter rejected")
	assert.Equal(t, 0, e.Wrong(), "duplicate does not strike")
}

func TestTimeout(t *testing.T) {
	e := newRound(t, "animals")
	require.NoError(t, e.ApplyMove(0, game.TimedOut))
	assert.Equal(t, game.OutcomeTimeout, e.Result().Outcome)
	assert.Equal(t, int64(0), e.Result().Reward)
}

// TestGuessBookkeepingProperty guesses random letters and checks the strike
// count always equals the guessed letters absent from the word, and the game
// never runs past its terminal state.
func TestGuessBookkeepingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		eng, err := New(game.Options{Players: []int64{player}, Rand: rand.New(rand.NewSource(seed))})
		if err != nil {
			rt.Fatalf("new: %v", err)
		}
		e := eng.(*Engine)

		letters := rapid.SliceOfDistinct(
			rapid.SampledFrom([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
				"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z"}),
			func(s string) string { return s },
		).Draw(rt, "letters")

		wrong := 0
		for _, l := range letters {
			if e.IsTerminal() {
				break
			}
			if err := e.ApplyMove(player, game.Move{Kind: MoveGuess, Data: l}); err != nil {
				rt.Fatalf("guess %q: %v", l, err)
			}
			if !strings.Contains(e.word, l) {
				wrong++
			}
			if e.Wrong() != wrong {
				rt.Fatalf("wrong count drift: engine=%d expected=%d", e.Wrong(), wrong)
			}
			if e.Wrong() > MaxWrong {
				rt.Fatalf("wrong count exceeded max: %d", e.Wrong())
			}
		}

		if e.IsTerminal() && e.Result().Outcome == game.OutcomeWin {
			if e.Progress() != e.word {
				rt.Fatalf("won without revealing the word: %q", e.Progress())
			}
		}
	})
}
