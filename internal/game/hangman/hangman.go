// Package hangman implements single-player hangman. Six wrong guesses lose;
// a wrong whole-word guess costs two. Winning pays per distinct letter in the
// word.
package hangman

import (
	"fmt"
	"sort"
	"strings"

	"minigame-bot/internal/game"
)

// MoveGuess submits a guess; Data is a single letter or a whole word.
const MoveGuess = "guess"

// MaxWrong is the number of wrong guesses that loses the game (the gallows
// has seven stages, 0 through 6).
const MaxWrong = 6

// RewardPerLetter is the coin payout per distinct letter in a solved word.
const RewardPerLetter = 10

var wordCategories = map[string][]string{
	"animals": {"elephant", "giraffe", "penguin", "dolphin", "kangaroo", "alligator", "rhinoceros",
		"squirrel", "hedgehog", "flamingo", "butterfly", "cheetah", "octopus", "panther"},
	"food": {"hamburger", "spaghetti", "chocolate", "pancakes", "sandwich", "quesadilla", "blueberry",
		"pineapple", "strawberry", "watermelon", "avocado", "cucumber", "broccoli"},
	"countries": {"australia", "canada", "germany", "brazil", "thailand", "egypt", "mexico",
		"netherlands", "switzerland", "singapore", "portugal", "argentina"},
	"sports": {"basketball", "volleyball", "swimming", "gymnastics", "skateboarding", "snowboarding",
		"surfing", "baseball", "football", "tennis", "hockey", "soccer", "cricket"},
	"movies": {"titanic", "avengers", "inception", "avatar", "frozen", "jaws", "ghostbusters",
		"matrix", "jumanji", "batman", "superman", "spiderman"},
}

// Categories returns the available word categories, sorted.
func Categories() []string {
	cats := make([]string, 0, len(wordCategories))
	for c := range wordCategories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Reward returns the payout for solving a word.
func Reward(word string) int64 {
	distinct := map[rune]bool{}
	for _, r := range word {
		distinct[r] = true
	}
	return int64(len(distinct) * RewardPerLetter)
}

// Engine is one hangman round.
type Engine struct {
	playerID int64
	category string
	word     string

	guessed map[string]bool
	wrong   int

	terminal bool
	result   game.Result
}

// New picks a word from the requested category, or a random category when
// none is given.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 1 {
		return nil, fmt.Errorf("hangman takes exactly one player")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("hangman requires a random source")
	}

	category := strings.ToLower(opts.Category)
	if category == "" {
		cats := Categories()
		category = cats[opts.Rand.Intn(len(cats))]
	}
	words, ok := wordCategories[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q, choose from %s", opts.Category, strings.Join(Categories(), ", "))
	}

	return &Engine{
		playerID: opts.Players[0],
		category: category,
		word:     words[opts.Rand.Intn(len(words))],
		guessed:  make(map[string]bool),
	}, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Hangman" }

// Category returns the word's category.
func (e *Engine) Category() string { return e.category }

// Wrong returns the wrong-guess count, which is also the gallows stage.
func (e *Engine) Wrong() int { return e.wrong }

// ApplyMove implements game.Engine.
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

	guess := strings.ToLower(strings.TrimSpace(mv.Data))
	if guess == "" || !isLetters(guess) {
		return fmt.Errorf("%w: guess %q", game.ErrInvalidMove, mv.Data)
	}

	if len(guess) > 1 {
		// Whole-word guess: right reveals everything, wrong costs two
		// strikes (clamped to the losing stage).
		if guess == e.word {
			for _, r := range e.word {
				e.guessed[string(r)] = true
			}
			e.finish(game.OutcomeWin)
			return nil
		}
		e.wrong += 2
		if e.wrong > MaxWrong {
			e.wrong = MaxWrong
		}
		if e.wrong >= MaxWrong {
			e.finish(game.OutcomeLoss)
		}
		return nil
	}

	if e.guessed[guess] {
		return fmt.Errorf("%w: letter %q already guessed", game.ErrInvalidMove, guess)
	}
	e.guessed[guess] = true

	if !strings.Contains(e.word, guess) {
		e.wrong++
		if e.wrong >= MaxWrong {
			e.finish(game.OutcomeLoss)
		}
		return nil
	}

	if e.solved() {
		e.finish(game.OutcomeWin)
	}
	return nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func (e *Engine) solved() bool {
	for _, r := range e.word {
		if !e.guessed[string(r)] {
			return false
		}
	}
	return true
}

func (e *Engine) finish(outcome game.Outcome) {
	e.terminal = true
	res := game.Result{
		Outcome: outcome,
		Detail: map[string]any{
			"word":     e.word,
			"category": e.category,
			"wrong":    e.wrong,
		},
	}
	if outcome == game.OutcomeWin {
		res.WinnerID = e.playerID
		res.Reward = Reward(e.word)
	}
	e.result = res
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// Progress returns the word with unguessed letters masked, e.g. "p_ng_in".
func (e *Engine) Progress() string {
	var b strings.Builder
	for _, r := range e.word {
		if e.guessed[string(r)] {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

var stages = [MaxWrong + 1]string{
	"   _____ \n  |     | \n  |       \n  |       \n  |       \n__|__",
	"   _____ \n  |     | \n  |     O \n  |       \n  |       \n__|__",
	"   _____ \n  |     | \n  |     O \n  |     | \n  |       \n__|__",
	"   _____ \n  |     | \n  |     O \n  |    /| \n  |       \n__|__",
	"   _____ \n  |     | \n  |     O \n  |    /|\\ \n  |       \n__|__",
	"   _____ \n  |     | \n  |     O \n  |    /|\\ \n  |    /  \n__|__",
	"   _____ \n  |     | \n  |     O \n  |    /|\\ \n  |    / \\ \n__|__",
}

// Render implements game.Engine.
func (e *Engine) Render() string {
	letters := make([]string, 0, len(e.guessed))
	for l := range e.guessed {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return fmt.Sprintf("%s\n\nWord: %s\nGuessed: %s\nWrong: %d/%d",
		stages[e.wrong], e.Progress(), strings.Join(letters, " "), e.wrong, MaxWrong)
}

// Descriptor returns the registry entry for hangman.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Hangman",
		Command:     "hangman",
		Description: "Guess the word before the gallows fill in",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
