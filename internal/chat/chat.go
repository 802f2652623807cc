// Package chat defines the boundary between game and economy logic and the
// messaging platform. Handlers talk to a Transport; the concrete adapter
// (Telegram today) lives in internal/bot. Timeouts are returned values, not
// errors, so runners can feed them into engines as regular inputs.
package chat

import (
	"context"
	"time"
)

// MessageRef identifies a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is one inline-keyboard button. Data round-trips back in the
// Reaction when the button is pressed.
type Button struct {
	Label string
	Data  string
}

// Reaction is a button press on a message the bot sent.
type Reaction struct {
	PlayerID int64
	Data     string
}

// Transport sends and edits chat messages and waits for player input.
//
// AwaitReaction blocks until a button press on ref passes accept, the timeout
// expires, or ctx is cancelled. AwaitTextReply does the same for plain text
// messages in a chat. Both report expiry via the timedOut return; err is
// reserved for transport failures.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]Button) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string, buttons [][]Button) error
	AwaitReaction(ctx context.Context, ref MessageRef, accept func(Reaction) bool, timeout time.Duration) (Reaction, bool, error)
	AwaitTextReply(ctx context.Context, chatID int64, accept func(playerID int64, text string) bool, timeout time.Duration) (playerID int64, text string, timedOut bool, err error)
}

// ContentProvider fetches light entertainment content (jokes, facts).
// Failures are soft: callers show a fallback message and move on.
type ContentProvider interface {
	Fetch(ctx context.Context, kind string) (string, error)
}

// Content kinds understood by providers.
const (
	KindJoke = "joke"
	KindFact = "fact"
)
