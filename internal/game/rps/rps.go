// Package rps implements rock-paper-scissors, either against the house or as
// a two-player duel with hidden simultaneous choices.
package rps

import (
	"fmt"
	"math/rand"

	"minigame-bot/internal/game"
)

// MoveChoose submits a choice; Data is "rock", "paper" or "scissors".
const MoveChoose = "choose"

// Flat rewards for the solo game.
const (
	SoloWinReward = 20
	SoloTieReward = 5
)

// Choices in beat order: each choice beats the next one cyclically.
var choices = []string{"rock", "scissors", "paper"}

func validChoice(c string) bool {
	for _, v := range choices {
		if v == c {
			return true
		}
	}
	return false
}

// Beats reports whether choice a beats choice b.
func Beats(a, b string) bool {
	switch a {
	case "rock":
		return b == "scissors"
	case "paper":
		return b == "rock"
	case "scissors":
		return b == "paper"
	}
	return false
}

// Engine is one round of rock-paper-scissors. With one player the house picks
// uniformly; with two, both submit hidden choices and the round resolves when
// the second arrives.
type Engine struct {
	players []int64
	wager   int64
	rng     *rand.Rand

	chosen   map[int64]string
	terminal bool
	result   game.Result
}

// New starts a round for one or two players.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) < 1 || len(opts.Players) > 2 {
		return nil, fmt.Errorf("rps takes one or two players")
	}
	if len(opts.Players) == 2 && opts.Players[0] == opts.Players[1] {
		return nil, fmt.Errorf("players must be distinct")
	}
	if opts.Wager < 0 {
		return nil, fmt.Errorf("wager cannot be negative")
	}
	if len(opts.Players) == 1 && opts.Rand == nil {
		return nil, fmt.Errorf("solo rps requires a random source")
	}
	return &Engine{
		players: opts.Players,
		wager:   opts.Wager,
		rng:     opts.Rand,
		chosen:  make(map[int64]string),
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Rock Paper Scissors" }

// HasChosen reports whether a player has already locked a choice.
func (e *Engine) HasChosen(playerID int64) bool {
	_, ok := e.chosen[playerID]
	return ok
}

// ApplyMove implements game.Engine. A timeout before both choices are in
// voids the round; wagers refund.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}

	if mv.IsTimeout() {
		e.terminal = true
		e.result = game.Result{
			Outcome: game.OutcomeTimeout,
			Reward:  e.wager, // refund
			Detail:  map[string]any{"chosen": len(e.chosen)},
		}
		return nil
	}

	participant := false
	for _, p := range e.players {
		if p == actor {
			participant = true
			break
		}
	}
	if !participant {
		return game.ErrNotParticipant
	}
	if mv.Kind != MoveChoose || !validChoice(mv.Data) {
		return fmt.Errorf("%w: %q", game.ErrInvalidMove, mv.Data)
	}
	if _, ok := e.chosen[actor]; ok {
		return fmt.Errorf("%w: choice already locked", game.ErrInvalidMove)
	}

	e.chosen[actor] = mv.Data

	if len(e.players) == 1 {
		e.resolveSolo()
	} else if len(e.chosen) == 2 {
		e.resolveDuel()
	}
	return nil
}

func (e *Engine) resolveSolo() {
	player := e.players[0]
	mine := e.chosen[player]
	house := choices[e.rng.Intn(len(choices))]

	detail := map[string]any{"player": mine, "house": house}
	switch {
	case mine == house:
		e.result = game.Result{Outcome: game.OutcomeDraw, Reward: SoloTieReward, Detail: detail}
	case Beats(mine, house):
		e.result = game.Result{Outcome: game.OutcomeWin, WinnerID: player, Reward: SoloWinReward, Detail: detail}
	default:
		e.result = game.Result{Outcome: game.OutcomeLoss, Detail: detail}
	}
	e.terminal = true
}

func (e *Engine) resolveDuel() {
	p1, p2 := e.players[0], e.players[1]
	c1, c2 := e.chosen[p1], e.chosen[p2]

	detail := map[string]any{"challenger": c1, "opponent": c2}
	switch {
	case c1 == c2:
		e.result = game.Result{Outcome: game.OutcomeDraw, Reward: e.wager, Detail: detail}
	case Beats(c1, c2):
		e.result = game.Result{Outcome: game.OutcomeWin, WinnerID: p1, Reward: e.wager * 2, Detail: detail}
	default:
		e.result = game.Result{Outcome: game.OutcomeLoss, WinnerID: p2, Reward: e.wager * 2, Detail: detail}
	}
	e.terminal = true
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Render implements game.Engine. Choices stay hidden until the round ends.
func (e *Engine) Render() string {
	if !e.terminal {
		return fmt.Sprintf("Waiting for choices (%d/%d locked)", len(e.chosen), len(e.players))
	}
	if len(e.players) == 1 {
		return fmt.Sprintf("You: %s vs House: %s", e.result.Detail["player"], e.result.Detail["house"])
	}
	return fmt.Sprintf("%s vs %s", e.result.Detail["challenger"], e.result.Detail["opponent"])
}

// Descriptor returns the registry entry for rock-paper-scissors.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Rock Paper Scissors",
		Command:     "rps",
		Description: "Solo against the house or a duel with hidden picks",
		MinPlayers:  1,
		MaxPlayers:  2,
		New:         New,
	}
}
