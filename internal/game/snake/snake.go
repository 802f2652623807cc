// Package snake implements single-player snake on a toroidal grid: moving off
// one edge wraps to the opposite side, so only self-collision ends the game.
package snake

import (
	"fmt"
	"math/rand"
	"strings"

	"minigame-bot/internal/game"
)

// Move kinds accepted by the engine.
const (
	MoveTurn = "turn" // Data: "up", "down", "left", "right"
	MoveTick = "tick" // advance one step
	MoveQuit = "quit" // cash out voluntarily
)

// Point is a grid cell.
type Point struct {
	X, Y int
}

var directions = map[string]Point{
	"up":    {0, -1},
	"down":  {0, 1},
	"left":  {-1, 0},
	"right": {1, 0},
}

type difficultyParams struct {
	width, height int
	multiplier    float64
}

var difficulties = map[string]difficultyParams{
	"easy":   {8, 8, 1.0},
	"normal": {10, 10, 1.5},
	"hard":   {12, 12, 2.0},
	"expert": {15, 15, 3.0},
}

// Reward returns the coin payout for a final score at a difficulty.
func Reward(score int, difficulty string) int64 {
	p, ok := difficulties[difficulty]
	if !ok {
		p = difficulties["normal"]
	}
	return int64(float64(score*10) * p.multiplier)
}

// Engine is one snake run. The runner drives it with periodic tick moves and
// turn moves from the player's reactions.
type Engine struct {
	playerID   int64
	difficulty string
	width      int
	height     int
	rng        *rand.Rand

	body    []Point // head first
	dir     Point
	nextDir Point
	food    Point
	hasFood bool
	score   int

	terminal bool
	result   game.Result
}

// New starts a run. Unknown difficulties fall back to normal.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 1 {
		return nil, fmt.Errorf("snake takes exactly one player")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("snake requires a random source")
	}

	diff := opts.Difficulty
	p, ok := difficulties[diff]
	if !ok {
		diff = "normal"
		p = difficulties[diff]
	}

	e := &Engine{
		playerID:   opts.Players[0],
		difficulty: diff,
		width:      p.width,
		height:     p.height,
		rng:        opts.Rand,
		body:       []Point{{p.width / 2, p.height / 2}},
		dir:        directions["right"],
		nextDir:    directions["right"],
	}
	e.placeFood()
	return e, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Snake" }

// Score returns the current score.
func (e *Engine) Score() int { return e.score }

func (e *Engine) occupied(p Point) bool {
	for _, b := range e.body {
		if b == p {
			return true
		}
	}
	return false
}

func (e *Engine) placeFood() {
	empty := make([]Point, 0, e.width*e.height-len(e.body))
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			if !e.occupied(Point{x, y}) {
				empty = append(empty, Point{x, y})
			}
		}
	}
	if len(empty) == 0 {
		e.hasFood = false
		return
	}
	e.food = empty[e.rng.Intn(len(empty))]
	e.hasFood = true
}

// ApplyMove implements game.Engine. A timeout ends the run like a quit: the
// score earned so far still pays out.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}
	if actor != e.playerID && !mv.IsTimeout() {
		return game.ErrNotParticipant
	}

	switch mv.Kind {
	case MoveTurn:
		d, ok := directions[mv.Data]
		if !ok {
			return fmt.Errorf("%w: direction %q", game.ErrInvalidMove, mv.Data)
		}
		// A 180-degree reversal is ignored, matching the current heading.
		if d.X == -e.dir.X && d.Y == -e.dir.Y {
			return nil
		}
		e.nextDir = d
		return nil

	case MoveTick:
		e.step()
		return nil

	case MoveQuit:
		e.finish(game.OutcomeWin)
		return nil

	case game.KindTimeout:
		e.finish(game.OutcomeTimeout)
		return nil

	default:
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}
}

func (e *Engine) step() {
	e.dir = e.nextDir

	head := e.body[0]
	newHead := Point{
		X: ((head.X+e.dir.X)%e.width + e.width) % e.width,
		Y: ((head.Y+e.dir.Y)%e.height + e.height) % e.height,
	}

	// Only the body kills; walls wrap.
	if e.occupied(newHead) {
		e.finish(game.OutcomeLoss)
		return
	}

	e.body = append([]Point{newHead}, e.body...)
	if e.hasFood && newHead == e.food {
		e.score++
		e.placeFood()
	} else {
		e.body = e.body[:len(e.body)-1]
	}
}

// finish ends the run. The reward depends only on the score, so dying,
// quitting and timing out all pay for food already eaten.
func (e *Engine) finish(outcome game.Outcome) {
	e.terminal = true
	winner := int64(0)
	if outcome == game.OutcomeWin {
		winner = e.playerID
	}
	e.result = game.Result{
		Outcome:  outcome,
		WinnerID: winner,
		Score:    int64(e.score),
		Reward:   Reward(e.score, e.difficulty),
		Detail: map[string]any{
			"difficulty": e.difficulty,
			"length":     len(e.body),
		},
	}
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Head returns the head position.
func (e *Engine) Head() Point { return e.body[0] }

// Len returns the snake's length.
func (e *Engine) Len() int { return len(e.body) }

// Render implements game.Engine.
func (e *Engine) Render() string {
	var b strings.Builder
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			p := Point{x, y}
			switch {
			case p == e.body[0]:
				b.WriteString("🟢")
			case e.occupied(p):
				b.WriteString("🟩")
			case e.hasFood && p == e.food:
				b.WriteString("🍎")
			default:
				b.WriteString("⬛")
			}
		}
		if y < e.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Descriptor returns the registry entry for snake.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Snake",
		Command:     "snake",
		Description: "Steer the snake, eat food, cash out before you crash",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
