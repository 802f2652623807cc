// Package blackjack implements single-player blackjack against the house.
// One 52-card deck, dealer stands on 17, natural pays 3:2.
package blackjack

import (
	"fmt"
	"math/rand"
	"strings"

	"minigame-bot/internal/game"
)

// Move kinds accepted by the engine.
const (
	MoveHit   = "hit"
	MoveStand = "stand"
)

// Card is one playing card. Value 1 is the ace, 11-13 are face cards.
type Card struct {
	Suit  string
	Value int
}

var suitSymbols = map[string]string{
	"hearts":   "♥️",
	"diamonds": "♦️",
	"clubs":    "♣️",
	"spades":   "♠️",
}

// Display returns the card as text, e.g. "A♠️" or "10♥️".
func (c Card) Display() string {
	names := map[int]string{1: "A", 11: "J", 12: "Q", 13: "K"}
	v, ok := names[c.Value]
	if !ok {
		v = fmt.Sprintf("%d", c.Value)
	}
	return v + suitSymbols[c.Suit]
}

// counting value: ace counts 11 until the hand busts, faces count 10.
func (c Card) points() int {
	switch {
	case c.Value == 1:
		return 11
	case c.Value >= 10:
		return 10
	default:
		return c.Value
	}
}

// HandValue totals a hand, demoting aces from 11 to 1 while the hand busts.
func HandValue(hand []Card) int {
	value := 0
	aces := 0
	for _, c := range hand {
		value += c.points()
		if c.Value == 1 {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

// IsNatural reports whether a two-card hand is a natural blackjack.
func IsNatural(hand []Card) bool {
	if len(hand) != 2 {
		return false
	}
	return (hand[0].Value == 1 && hand[1].points() >= 10) ||
		(hand[1].Value == 1 && hand[0].points() >= 10)
}

type deck struct {
	cards []Card
	rng   *rand.Rand
}

func newDeck(rng *rand.Rand) *deck {
	d := &deck{rng: rng}
	d.build()
	d.shuffle()
	return d
}

func (d *deck) build() {
	suits := []string{"hearts", "diamonds", "clubs", "spades"}
	d.cards = d.cards[:0]
	for _, s := range suits {
		for v := 1; v <= 13; v++ {
			d.cards = append(d.cards, Card{Suit: s, Value: v})
		}
	}
}

func (d *deck) shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *deck) deal() Card {
	if len(d.cards) == 0 {
		d.build()
		d.shuffle()
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c
}

// Engine is one round of blackjack. Not safe for concurrent use; the runner
// serializes moves.
type Engine struct {
	playerID int64
	wager    int64
	deck     *deck

	playerHand []Card
	dealerHand []Card

	stood    bool
	terminal bool
	result   game.Result
	verdict  string
}

// New deals a fresh round. An opening natural (either side) ends the round
// immediately.
func New(opts game.Options) (game.Engine, error) {
	if len(opts.Players) != 1 {
		return nil, fmt.Errorf("blackjack takes exactly one player")
	}
	if opts.Wager <= 0 {
		return nil, fmt.Errorf("blackjack requires a positive wager")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("blackjack requires a random source")
	}

	e := &Engine{
		playerID: opts.Players[0],
		wager:    opts.Wager,
		deck:     newDeck(opts.Rand),
	}
	e.playerHand = append(e.playerHand, e.deck.deal())
	e.dealerHand = append(e.dealerHand, e.deck.deal())
	e.playerHand = append(e.playerHand, e.deck.deal())
	e.dealerHand = append(e.dealerHand, e.deck.deal())

	e.settle()
	return e, nil
}

// Name implements game.Engine.
func (e *Engine) Name() string { return "Blackjack" }

// ApplyMove implements game.Engine.
func (e *Engine) ApplyMove(actor int64, mv game.Move) error {
	if e.terminal {
		return game.ErrGameOver
	}
	if actor != e.playerID && !mv.IsTimeout() {
		return game.ErrNotParticipant
	}

	switch mv.Kind {
	case MoveHit:
		e.playerHand = append(e.playerHand, e.deck.deal())
		e.settle()
		return nil

	case MoveStand:
		e.stood = true
		// Dealer draws to 17.
		for HandValue(e.dealerHand) < 17 {
			e.dealerHand = append(e.dealerHand, e.deck.deal())
		}
		e.settle()
		return nil

	case game.KindTimeout:
		// A walked-away hand is voided; the wager comes back like a push.
		e.terminal = true
		e.verdict = "timeout"
		e.result = game.Result{
			Outcome: game.OutcomeTimeout,
			Reward:  Reward(e.verdict, e.wager),
			Detail:  e.detail(),
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", game.ErrInvalidMove, mv.Kind)
	}
}

// settle recomputes the verdict after each state change.
func (e *Engine) settle() {
	playerValue := HandValue(e.playerHand)
	dealerValue := HandValue(e.dealerHand)
	playerNatural := IsNatural(e.playerHand)
	dealerNatural := IsNatural(e.dealerHand)

	switch {
	case playerNatural && dealerNatural:
		e.verdict = "push"
	case playerNatural:
		e.verdict = "blackjack"
	case dealerNatural:
		e.verdict = "dealer_blackjack"
	case playerValue > 21:
		e.verdict = "bust"
	case e.stood:
		switch {
		case dealerValue > 21:
			e.verdict = "dealer_bust"
		case dealerValue > playerValue:
			e.verdict = "dealer_wins"
		case dealerValue < playerValue:
			e.verdict = "player_wins"
		default:
			e.verdict = "push"
		}
	default:
		return // round continues
	}

	e.terminal = true
	e.result = game.Result{
		Outcome:  outcomeFor(e.verdict),
		WinnerID: e.winnerFor(e.verdict),
		Reward:   Reward(e.verdict, e.wager),
		Detail:   e.detail(),
	}
}

func (e *Engine) detail() map[string]any {
	return map[string]any{
		"verdict":      e.verdict,
		"player_value": HandValue(e.playerHand),
		"dealer_value": HandValue(e.dealerHand),
	}
}

func outcomeFor(verdict string) game.Outcome {
	switch verdict {
	case "blackjack", "player_wins", "dealer_bust":
		return game.OutcomeWin
	case "push":
		return game.OutcomeDraw
	case "timeout":
		return game.OutcomeTimeout
	default:
		return game.OutcomeLoss
	}
}

func (e *Engine) winnerFor(verdict string) int64 {
	if outcomeFor(verdict) == game.OutcomeWin {
		return e.playerID
	}
	return 0
}

// Reward returns the gross payout for a verdict: a natural pays 3:2, a
// regular win 1:1, a push or a timeout refunds the wager.
func Reward(verdict string, wager int64) int64 {
	switch verdict {
	case "blackjack":
		return int64(float64(wager) * 2.5)
	case "player_wins", "dealer_bust":
		return wager * 2
	case "push", "timeout":
		return wager
	default:
		return 0
	}
}

// IsTerminal implements game.Engine.
func (e *Engine) IsTerminal() bool { return e.terminal }

// Result implements game.Engine.
func (e *Engine) Result() game.Result { return e.result }

// PlayerHand returns a copy of the player's cards.
func (e *Engine) PlayerHand() []Card { return append([]Card(nil), e.playerHand...) }

// DealerHand returns a copy of the dealer's cards.
func (e *Engine) DealerHand() []Card { return append([]Card(nil), e.dealerHand...) }

// Render implements game.Engine. The dealer's hole card stays hidden until
// the player stands or the round ends.
func (e *Engine) Render() string {
	var b strings.Builder

	b.WriteString("Your hand: ")
	for i, c := range e.playerHand {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Display())
	}
	fmt.Fprintf(&b, " (%d)", HandValue(e.playerHand))
	if IsNatural(e.playerHand) {
		b.WriteString(" Blackjack!")
	}
	b.WriteByte('\n')

	b.WriteString("Dealer: ")
	if !e.terminal && !e.stood {
		b.WriteString(e.dealerHand[0].Display())
		b.WriteString(" 🂠 (?)")
	} else {
		for i, c := range e.dealerHand {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(c.Display())
		}
		fmt.Fprintf(&b, " (%d)", HandValue(e.dealerHand))
	}
	return b.String()
}

// Descriptor returns the registry entry for blackjack.
func Descriptor() game.Descriptor {
	return game.Descriptor{
		Name:        "Blackjack",
		Command:     "blackjack",
		Description: "Beat the dealer to 21 without busting",
		MinPlayers:  1,
		MaxPlayers:  1,
		New:         New,
	}
}
