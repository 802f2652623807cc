// Package scramble implements the channel-wide word scramble: the bot posts a
// shuffled word and anyone in the chat may answer. The time bonus decays to
// zero over the first minute; the first correct answer wins.
package scramble

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"minigame-bot/internal/game"
)

// Move kinds accepted by the engine.
const (
	MoveAnswer = "answer" // Data: the guessed word; any chat member may send it
	MoveHint   = "hint"   // runner-driven: the scheduled hint reveals
)

var wordLists = map[string][]string{
	"easy": {"cat", "dog", "run", "jump", "play", "book", "fish", "swim", "cake",
		"game", "sing", "moon", "star", "tree", "bird", "card", "hand", "ball",
		"hat", "pen", "car", "rain", "sun", "door", "rock", "baby", "love"},
	"medium": {"music", "water", "earth", "apple", "bread", "dance", "pizza", "river",
		"beach", "light", "clock", "paper", "happy", "table", "sheep", "mouse",
		"house", "money", "phone", "space", "dream", "queen", "wagon", "cloud",
		"plant", "fruit", "smile", "snake", "tiger", "ghost", "story"},
	"hard": {"puzzle", "morning", "language", "mountain", "rainbow", "holiday",
		"library", "elephant", "chocolate", "hospital", "butterfly", "universe",
		"adventure", "treasure", "dinosaur", "keyboard", "computer", "calendar",
		"firework", "festival", "symphony", "umbrella", "sandwich", "building",
		"question", "painting", "whisper", "crystal", "triangle", "airplane"},
	"expert": {"government", "algorithm", "philosophy", "revolution", "technology",
		"imagination", "celebration", "university", "confidence", "dictionary",
		"development", "enthusiastic", "significance", "achievement", "mysterious",
		"conversation", "photography", "temperature", "environment", "innovation",
		"opportunity", "experience", "community", "inspiration", "vocabulary",
		"impossible", "perspective", "knowledge", "challenge", "atmosphere"},
}

// bonusWindow is how long the time bonus takes to decay from the full base
// reward to nothing.
const bonusWindow = time.Minute

var baseRewards = map[string]int64{
	"easy":   30,
	"medium": 60,
	"hard":   100,
	"expert": 200,
}

// Scramble shuffles a word, guaranteed different from the original. Short
// words reverse; longer ones reshuffle up to ten times, then fall back to a
// rotation.
func Scramble(word string, rng *rand.Rand) string {
	if len(word) <= 3 {
		rev := reverse(word)
		if rev != word {
			return rev
		}
		return rotate(word)
	}

	letters := []byte(word)
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(letters), func(a, b int) {
			letters[a], letters[b] = letters[b], letters[a]
		})
		if string(letters) != word {
			return string(letters)
		}
	}
	return rotate(word)
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func rotate(s string) string {
	return s[1:] + s[:1]
}

// Engine is one scramble round. Unlike the other games it has no fixed player
// set: the first correct answer from anyone wins.
type Engine struct {
	difficulty string
	word       string
	scrambled  string
	baseReward int64
	hints      int

	startedAt time.Time
	now       func() time.Time

	terminal bool
	result   game.Result
}

// New picks and scrambles a word. Unknown difficulties fall back to medium.
func New(opts game.Options) (game.Engine, error) {
	if opts.Rand == nil {
		return nil, fmt.Errorf("scramble requires a random source")
	}

	diff := opts.Difficulty
	words, ok := wordLists[diff]
	if !ok {
		diff = "medium"
		words = wordLists[diff]
	}

	word := words[opts.Rand.Intn(len(words))]
	return &Engine{
		difficulty: diff,
		word:       word,
		scrambled:  Scramble(word, opts.Rand),
		baseReward: baseRewards[diff],
		startedAt:  time.Now(),
		now:        time.Now,
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Word Scramble" }

// Scrambled returns the puzzle as shown in chat.
func (e *Engine) Scrambled() string { return e.scrambled }

// Hints returns how many hints have been revealed.
func (e *Engine) Hints() int { return e.hints }

// CurrentReward returns what a correct answer pays right now.
func (e *Engine) CurrentReward() int64 { return e.baseReward + e.timeBonus() }

// timeBonus scales the base reward down linearly with the solve time and
// bottoms out at zero once the window lapses.
func (e *Engine) timeBonus() int64 {
	elapsed := e.now().Sub(e.startedAt)
	if elapsed >= bonusWindow {
		return 0
	}
	bonus := int64(float64(e.baseReward) * (1 - elapsed.Seconds()/bonusWindow.Seconds()))
	if bonus < 0 {
		return 0
	}
	return bonus
}

// ApplyMove implements game.Engine. Wrong answers are not an error and do not
// end the round; they simply miss.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}

	switch mv.Kind {
	case MoveAnswer:
		if !strings.EqualFold(strings.TrimSpace(mv.Data), e.word) {
			return nil
		}
		e.terminal = true
		e.result = game.Result{
			Outcome:  game.OutcomeWin,
			WinnerID: actor,
			Reward:   e.baseReward + e.timeBonus(),
			Detail:   e.detail(),
		}
		return nil

	case MoveHint:
		// Hints only reveal letters; the payout already shrinks with the clock.
		e.hints++
		return nil

	case game.KindTimeout:
		e.terminal = true
		e.result = game.Result{
			Outcome: game.OutcomeTimeout,
			Detail:  e.detail(),
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}
}

func (e *Engine) detail() map[string]any {
	return map[string]any{
		"word":       e.word,
		"difficulty": e.difficulty,
		"hints":      e.hints,
	}
}

// HintText returns the chat text for the current hint level.
func (e *Engine) HintText() string {
	switch {
	case e.hints == 0:
		return ""
	case e.hints == 1 || len(e.word) < 2:
		return fmt.Sprintf("The word starts with %s", strings.ToUpper(e.word[:1]))
	default:
		return fmt.Sprintf("The word starts with %s and ends with %s",
			strings.ToUpper(e.word[:1]), strings.ToUpper(e.word[len(e.word)-1:]))
	}
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Render implements game.Engine.
func (e *Engine) Render() string {
	s := fmt.Sprintf("Unscramble: %s (%d letters)\nReward: %d", strings.ToUpper(e.scrambled), len(e.scrambled), e.CurrentReward())
	if h := e.HintText(); h != "" {
		s += "\n" + h
	}
	return s
}

// Descriptor returns the registry entry for word scramble.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Word Scramble",
		Command:     "scramble",
		Description: "First correct unscramble in the chat wins",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
