// Package tictactoe implements two-player tic-tac-toe with an optional wager.
// The challenger plays X and moves first. The winner takes both wagers; a
// draw refunds them.
package tictactoe

import (
	"fmt"
	"strconv"
	"strings"

	"minigame-bot/internal/game"
)

// MovePlace places a mark; Data is the cell index "0".."8" (row-major).
const MovePlace = "place"

// Engine is one tic-tac-toe match.
type Engine struct {
	playerX int64
	playerO int64
	wager   int64

	board    [9]byte // 0, 'X' or 'O'
	turn     int64
	terminal bool
	result   game.Result
}

// New starts a match between Players[0] (X) and Players[1] (O).
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 2 {
		return nil, fmt.Errorf("tictactoe takes exactly two players")
	}
	if opts.Players[0] == opts.Players[1] {
		return nil, fmt.Errorf("players must be distinct")
	}
	if opts.Wager < 0 {
		return nil, fmt.Errorf("wager cannot be negative")
	}
	return &Engine{
		playerX: opts.Players[0],
		playerO: opts.Players[1],
		wager:   opts.Wager,
		turn:    opts.Players[0],
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Tic Tac Toe" }

// Turn returns whose move it is.
func (e *Engine) Turn() int64 { return e.turn }

// ApplyMove implements game.Engine. A timeout voids the match; neither
// player wins and both stakes come back.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}

	if mv.IsTimeout() {
		e.terminal = true
		e.result = game.Result{
			Outcome: game.OutcomeTimeout,
			Reward:  e.wager,
			Detail:  map[string]any{"timed_out": e.turn},
		}
		return nil
	}

	if actor != e.playerX && actor != e.playerO {
		return game.ErrNotParticipant
	}
	if actor != e.turn {
		return game.ErrNotYourTurn
	}
	if mv.Kind != MovePlace {
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}

	pos, err := strconv.Atoi(mv.Data)
	if err != nil || pos < 0 || pos > 8 {
		return fmt.Errorf("%w: cell %q", game.ErrInvalidMove, mv.Data)
	}
	if e.board[pos] != 0 {
		return fmt.Errorf("%w: cell %d is taken", game.ErrInvalidMove, pos)
	}

	mark := byte('X')
	if actor == e.playerO {
		mark = 'O'
	}
	e.board[pos] = mark

	if e.turn == e.playerX {
		e.turn = e.playerO
	} else {
		e.turn = e.playerX
	}

	e.checkGameOver()
	return nil
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

func (e *Engine) checkGameOver() {
	for _, l := range lines {
		m := e.board[l[0]]
		if m != 0 && m == e.board[l[1]] && m == e.board[l[2]] {
			winner := e.playerX
			if m == 'O' {
				winner = e.playerO
			}
			outcome := game.OutcomeWin
			if winner == e.playerO {
				outcome = game.OutcomeLoss
			}
			e.terminal = true
			e.result = game.Result{
				Outcome:  outcome,
				WinnerID: winner,
				Reward:   e.wager * 2,
				Detail:   map[string]any{"line": l},
			}
			return
		}
	}

	for _, c := range e.board {
		if c == 0 {
			return
		}
	}
	// Full board, no winner: wagers refund.
	e.terminal = true
	e.result = game.Result{
		Outcome: game.OutcomeDraw,
		Reward:  e.wager,
	}
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Render implements game.Engine.
func (e *Engine) Render() string {
	symbols := map[byte]string{0: "⬜", 'X': "❌", 'O': "⭕"}
	var b strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			b.WriteString(symbols[e.board[row*3+col]])
		}
		if row < 2 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Descriptor returns the registry entry for tic-tac-toe.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Tic-Tac-Toe",
		Command:     "tictactoe",
		Description: "Three in a row wins; challenger plays X",
		MinPlayers:  2,
		MaxPlayers:  2,
		New:         New,
	}
}
