// Package memory implements the single-player card matching game. Cards are
// picked in pairs; the score rewards speed and move efficiency.
package memory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"minigame-bot/internal/game"
)

// MovePick reveals a card; Data is "row,col" (zero-based).
const MovePick = "pick"

type difficultyParams struct {
	rows, cols int
	baseScore  int
	multiplier float64
}

var difficulties = map[string]difficultyParams{
	"easy":   {4, 4, 100, 1.0},
	"normal": {4, 6, 200, 1.2},
	"hard":   {6, 6, 300, 1.5},
	"expert": {6, 8, 400, 2.0},
}

var emojiPool = []string{
	"🍎", "🍌", "🍇", "🍓", "🍊", "🍍", "🥝", "🍑",
	"🚗", "🚀", "⚽", "🎸", "🎲", "🎁", "⭐", "🌙",
	"🐶", "🐱", "🦊", "🐼", "🦁", "🐸", "🦋", "🐢",
}

// Score computes the performance score: base adjusted by a time factor
// (faster than two minutes scores up to 2x) and a move-efficiency factor
// (perfect memory scores up to 1.5x).
func Score(difficulty string, elapsed time.Duration, moves, pairs int) int64 {
	p, ok := difficulties[difficulty]
	if !ok {
		p = difficulties["normal"]
	}

	seconds := elapsed.Seconds()
	if seconds < 1 {
		seconds = 1
	}
	timeFactor := clamp(120/seconds, 0.5, 2.0)

	m := float64(moves) / 2
	if m < 1 {
		m = 1
	}
	moveFactor := clamp(float64(pairs)/m, 0.5, 1.5)

	return int64(float64(p.baseScore) * timeFactor * moveFactor)
}

// Reward converts a score to coins: score/4 capped at 500, then scaled by the
// difficulty multiplier.
func Reward(difficulty string, score int64) int64 {
	p, ok := difficulties[difficulty]
	if !ok {
		p = difficulties["normal"]
	}
	base := score / 4
	if base > 500 {
		base = 500
	}
	return int64(float64(base) * p.multiplier)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type cell struct {
	emoji    string
	revealed bool
}

// Engine is one memory run.
type Engine struct {
	playerID   int64
	difficulty string
	rows, cols int

	board [][]cell
	pairs int

	firstPick   *[2]int
	pendingHide [][2]int
	moves       int
	matches     int

	startedAt time.Time
	now       func() time.Time

	terminal bool
	result   game.Result
}

// New deals a shuffled board. Unknown difficulties fall back to normal.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 1 {
		return nil, fmt.Errorf("memory takes exactly one player")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("memory requires a random source")
	}

	diff := opts.Difficulty
	p, ok := difficulties[diff]
	if !ok {
		diff = "normal"
		p = difficulties[diff]
	}

	pairs := p.rows * p.cols / 2
	picked := append([]string(nil), emojiPool...)
	opts.Rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	deck := make([]string, 0, pairs*2)
	for _, e := range picked[:pairs] {
		deck = append(deck, e, e)
	}
	opts.Rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	board := make([][]cell, p.rows)
	idx := 0
	for r := 0; r < p.rows; r++ {
		board[r] = make([]cell, p.cols)
		for c := 0; c < p.cols; c++ {
			board[r][c] = cell{emoji: deck[idx]}
			idx++
		}
	}

	return &Engine{
		playerID:   opts.Players[0],
		difficulty: diff,
		rows:       p.rows,
		cols:       p.cols,
		board:      board,
		pairs:      pairs,
		startedAt:  time.Now(),
		now:        time.Now,
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Memory Match" }

// Moves returns the number of picks made so far.
func (e *Engine) Moves() int { return e.moves }

// Matches returns the pairs found so far.
func (e *Engine) Matches() int { return e.matches }

func parsePick(data string) (int, int, error) {
	parts := strings.SplitN(data, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: pick %q", game.ErrInvalidMove, data)
	}
	r, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	c, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: pick %q", game.ErrInvalidMove, data)
	}
	return r, c, nil
}

// ApplyMove implements game.Engine. A timeout ends the run with no reward.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}
	if actor != e.playerID && !mv.IsTimeout() {
		return game.ErrNotParticipant
	}

	if mv.IsTimeout() {
		e.terminal = true
		e.result = game.Result{
			Outcome: game.OutcomeTimeout,
			Detail:  map[string]any{"matches": e.matches, "pairs": e.pairs},
		}
		return nil
	}
	if mv.Kind != MovePick {
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}

	r, c, err := parsePick(mv.Data)
	if err != nil {
		return err
	}
	if r < 0 || r >= e.rows || c < 0 || c >= e.cols {
		return fmt.Errorf("%w: cell %d,%d out of range", game.ErrInvalidMove, r, c)
	}

	// A new pick hides the previous mismatched pair first.
	for _, h := range e.pendingHide {
		e.board[h[0]][h[1]].revealed = false
	}
	e.pendingHide = nil

	if e.board[r][c].revealed {
		return fmt.Errorf("%w: cell %d,%d already revealed", game.ErrInvalidMove, r, c)
	}

	e.moves++
	e.board[r][c].revealed = true

	if e.firstPick == nil {
		e.firstPick = &[2]int{r, c}
		return nil
	}

	first := *e.firstPick
	e.firstPick = nil
	if e.board[first[0]][first[1]].emoji == e.board[r][c].emoji {
		e.matches++
		if e.matches == e.pairs {
			e.finish()
		}
		return nil
	}

	// Mismatch: both cards flip back on the next pick.
	e.pendingHide = [][2]int{first, {r, c}}
	return nil
}

func (e *Engine) finish() {
	elapsed := e.now().Sub(e.startedAt)
	score := Score(e.difficulty, elapsed, e.moves, e.pairs)
	e.terminal = true
	e.result = game.Result{
		Outcome:  game.OutcomeWin,
		WinnerID: e.playerID,
		Score:    score,
		Reward:   Reward(e.difficulty, score),
		Detail: map[string]any{
			"difficulty": e.difficulty,
			"moves":      e.moves,
			"elapsed":    elapsed.Round(time.Second).String(),
		},
	}
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Render implements game.Engine.
func (e *Engine) Render() string {
	var b strings.Builder
	for r := 0; r < e.rows; r++ {
		for c := 0; c < e.cols; c++ {
			if e.board[r][c].revealed {
				b.WriteString(e.board[r][c].emoji)
			} else {
				b.WriteString("🟦")
			}
		}
		if r < e.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Descriptor returns the registry entry for the memory match game.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Memory Match",
		Command:     "memory",
		Description: "Flip cards and match every pair",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
