// Package numguess implements the number guessing game: the bot picks a
// secret in a difficulty-dependent range and answers higher/lower. Unused
// attempts add a bonus to the base reward.
package numguess

import (
	"fmt"
	"strconv"

	"minigame-bot/internal/game"
)

// MoveGuess submits a guess; Data is the number.
const MoveGuess = "guess"

type difficultyParams struct {
	min, max   int
	attempts   int
	baseReward int64
}

var difficulties = map[string]difficultyParams{
	"easy":   {1, 50, 6, 50},
	"normal": {1, 100, 7, 100},
	"hard":   {1, 200, 8, 200},
	"expert": {1, 500, 9, 500},
}

// Reward returns the payout for a win: the base plus 10% of it per unused
// attempt.
func Reward(difficulty string, remaining int) int64 {
	p, ok := difficulties[difficulty]
	if !ok {
		p = difficulties["normal"]
	}
	bonus := int64(float64(p.baseReward) * float64(remaining) * 0.1)
	return p.baseReward + bonus
}

// Engine is one guessing round.
type Engine struct {
	playerID   int64
	difficulty string
	secret     int
	min, max   int
	attempts   int
	used       int
	lastHint   string

	terminal bool
	result   game.Result
}

// New picks a secret. Unknown difficulties fall back to normal.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 1 {
		return nil, fmt.Errorf("numguess takes exactly one player")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("numguess requires a random source")
	}

	diff := opts.Difficulty
	p, ok := difficulties[diff]
	if !ok {
		diff = "normal"
		p = difficulties[diff]
	}

	return &Engine{
		playerID:   opts.Players[0],
		difficulty: diff,
		secret:     p.min + opts.Rand.Intn(p.max-p.min+1),
		min:        p.min,
		max:        p.max,
		attempts:   p.attempts,
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Number Guess" }

// Remaining returns the attempts left.
func (e *Engine) Remaining() int { return e.attempts - e.used }

// Range returns the guessing bounds.
func (e *Engine) Range() (int, int) { return e.min, e.max }

// ApplyMove implements game.Engine. Out-of-range and unparsable guesses are
// rejected without consuming an attempt.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}
	if actor != e.playerID && !mv.IsTimeout() {
		return game.ErrNotParticipant
	}

	if mv.IsTimeout() {
		e.finish(game.OutcomeTimeout)
		return nil
	}
	if mv.Kind != MoveGuess {
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}

	n, err := strconv.Atoi(mv.Data)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", game.ErrInvalidMove, mv.Data)
	}
	if n < e.min || n > e.max {
		return fmt.Errorf("%w: %d outside %d-%d", game.ErrInvalidMove, n, e.min, e.max)
	}

	e.used++
	switch {
	case n == e.secret:
		e.finish(game.OutcomeWin)
	case e.used >= e.attempts:
		e.finish(game.OutcomeLoss)
	case n < e.secret:
		e.lastHint = "higher"
	default:
		e.lastHint = "lower"
	}
	return nil
}

func (e *Engine) finish(outcome game.Outcome) {
	e.terminal = true
	res := game.Result{
		Outcome: outcome,
		Detail: map[string]any{
			"secret":     e.secret,
			"difficulty": e.difficulty,
			"used":       e.used,
		},
	}
	if outcome == game.OutcomeWin {
		res.WinnerID = e.playerID
		res.Reward = Reward(e.difficulty, e.Remaining())
	}
	e.result = res
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Render implements game.Engine.
func (e *Engine) Render() string {
	if e.lastHint == "" {
		return fmt.Sprintf("Guess a number between %d and %d. Attempts left: %d", e.min, e.max, e.Remaining())
	}
	return fmt.Sprintf("Try %s. Attempts left: %d", e.lastHint, e.Remaining())
}

// Descriptor returns the registry entry for the number guessing game.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Number Guess",
		Command:     "numguess",
		Description: "Find the secret number in limited attempts",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
