// Package game defines the engine interface, registry and session tracking
// shared by all mini-games. Each game is a pure state machine: the chat layer
// feeds it player moves (including timeouts) and reads the terminal result,
// so game rules never touch the transport or the ledger directly.
package game

import (
	"errors"
	"math/rand"
)

// Common errors returned by engines from ApplyMove.
var (
	ErrNotYourTurn    = errors.New("not your turn")
	ErrInvalidMove    = errors.New("invalid move")
	ErrNotParticipant = errors.New("not a participant in this game")
	ErrGameOver       = errors.New("game is already over")
)

// Move is one player input. Kind names the action ("hit", "place", "guess",
// ...); Data carries its argument ("a1", "7", "rock", ...).
type Move struct {
	Kind string
	Data string
}

// KindTimeout marks the expiry of a move deadline. Engines treat it like any
// other input and transition to a terminal timeout outcome.
const KindTimeout = "timeout"

// TimedOut is the move the runner feeds an engine when the current player's
// deadline expires.
var TimedOut = Move{Kind: KindTimeout}

// IsTimeout reports whether the move is the timeout sentinel.
func (m Move) IsTimeout() bool { return m.Kind == KindTimeout }

// Outcome classifies a finished game.
type Outcome string

const (
	OutcomeWin     Outcome = "win"     // the challenger (or WinnerID) won
	OutcomeLoss    Outcome = "loss"    // the challenger lost
	OutcomeDraw    Outcome = "draw"    // no winner, wagers refund
	OutcomeTimeout Outcome = "timeout" // deadline expired, round voided or forfeited
)

// Result is the terminal state of a game. Reward is the net coins to credit
// the winner (the runner handles wager escrow separately). Detail carries
// game-specific values for the final message.
type Result struct {
	Outcome  Outcome
	WinnerID int64
	Score    int64
	Reward   int64
	Detail   map[string]any
}

// Engine is the state machine every game implements. ApplyMove mutates the
// state or rejects the input; once IsTerminal reports true further moves fail
// with ErrGameOver and Result is stable.
type Engine interface {
	// Name returns the game's display name (e.g. "Blackjack").
	Name() string

	// ApplyMove advances the game with one player input.
	ApplyMove(actor int64, mv Move) error

	// IsTerminal reports whether the game has finished.
	IsTerminal() bool

	// Result returns the outcome. Only meaningful once IsTerminal is true.
	Result() Result

	// Render returns the current state as chat text.
	Render() string
}

// Options carries the parameters a factory needs to start a game.
type Options struct {
	Players    []int64 // seat order; single-player games use Players[0]
	Difficulty string
	Wager      int64
	Category   string // hangman word category, empty for random
	Rand       *rand.Rand
}

// Factory builds a fresh engine for one round.
type Factory func(opts Options) (Engine, error)

// Descriptor is the registry entry for one game.
type Descriptor struct {
	Name        string
	Command     string
	Description string
	MinPlayers  int
	MaxPlayers  int
	New         Factory
}
