package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/chat"
)

// TeleTransport implements chat.Transport on top of telebot. Button presses
// and text messages are routed to the goroutine awaiting them; everything
// else is dropped with an ack so the client stops its loading spinner.
type TeleTransport struct {
	bot *tele.Bot

	mu              sync.Mutex
	reactionWaiters map[string][]*reactionWaiter // key: "chatID:messageID"
	textWaiters     map[int64][]*textWaiter      // key: chatID
}

type reactionWaiter struct {
	id     string
	accept func(chat.Reaction) bool
	ch     chan chat.Reaction
}

type textWaiter struct {
	id     string
	accept func(int64, string) bool
	ch     chan textEvent
}

type textEvent struct {
	playerID int64
	text     string
}

// NewTeleTransport creates a transport bound to a telebot instance.
func NewTeleTransport(b *tele.Bot) *TeleTransport {
	return &TeleTransport{
		bot:             b,
		reactionWaiters: make(map[string][]*reactionWaiter),
		textWaiters:     make(map[int64][]*textWaiter),
	}
}

func messageKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func buildMarkup(buttons [][]chat.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, len(buttons))
	for _, row := range buttons {
		btns := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tele.InlineButton{Text: b.Label, Data: b.Data})
		}
		rows = append(rows, btns)
	}
	markup.InlineKeyboard = rows
	return markup
}

// SendMessage sends text with an optional inline keyboard.
func (t *TeleTransport) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]chat.Button) (chat.MessageRef, error) {
	recipient := &tele.Chat{ID: chatID}

	var (
		msg *tele.Message
		err error
	)
	if markup := buildMarkup(buttons); markup != nil {
		msg, err = t.bot.Send(recipient, text, markup)
	} else {
		msg, err = t.bot.Send(recipient, text)
	}
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return chat.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// EditMessage replaces the text and keyboard of a previously sent message.
func (t *TeleTransport) EditMessage(ctx context.Context, ref chat.MessageRef, text string, buttons [][]chat.Button) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}

	var err error
	if markup := buildMarkup(buttons); markup != nil {
		_, err = t.bot.Edit(stored, text, markup)
	} else {
		_, err = t.bot.Edit(stored, text)
	}
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AwaitReaction blocks until an accepted button press lands on ref, the
// timeout fires, or ctx is cancelled.
func (t *TeleTransport) AwaitReaction(ctx context.Context, ref chat.MessageRef, accept func(chat.Reaction) bool, timeout time.Duration) (chat.Reaction, bool, error) {
	w := &reactionWaiter{
		id:     uuid.NewString(),
		accept: accept,
		ch:     make(chan chat.Reaction, 1),
	}
	key := messageKey(ref.ChatID, ref.MessageID)

	t.mu.Lock()
	t.reactionWaiters[key] = append(t.reactionWaiters[key], w)
	t.mu.Unlock()

	defer t.removeReactionWaiter(key, w.id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-w.ch:
		return r, false, nil
	case <-timer.C:
		return chat.Reaction{}, true, nil
	case <-ctx.Done():
		return chat.Reaction{}, false, ctx.Err()
	}
}

// AwaitTextReply blocks until an accepted text message arrives in the chat,
// the timeout fires, or ctx is cancelled.
func (t *TeleTransport) AwaitTextReply(ctx context.Context, chatID int64, accept func(int64, string) bool, timeout time.Duration) (int64, string, bool, error) {
	w := &textWaiter{
		id:     uuid.NewString(),
		accept: accept,
		ch:     make(chan textEvent, 1),
	}

	t.mu.Lock()
	t.textWaiters[chatID] = append(t.textWaiters[chatID], w)
	t.mu.Unlock()

	defer t.removeTextWaiter(chatID, w.id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-w.ch:
		return ev.playerID, ev.text, false, nil
	case <-timer.C:
		return 0, "", true, nil
	case <-ctx.Done():
		return 0, "", false, ctx.Err()
	}
}

func (t *TeleTransport) removeReactionWaiter(key, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	waiters := t.reactionWaiters[key]
	for i, w := range waiters {
		if w.id == id {
			t.reactionWaiters[key] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(t.reactionWaiters[key]) == 0 {
		delete(t.reactionWaiters, key)
	}
}

func (t *TeleTransport) removeTextWaiter(chatID int64, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	waiters := t.textWaiters[chatID]
	for i, w := range waiters {
		if w.id == id {
			t.textWaiters[chatID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(t.textWaiters[chatID]) == 0 {
		delete(t.textWaiters, chatID)
	}
}

// HandleCallback routes a button press to the first waiter that accepts it.
// Unmatched presses get a silent ack.
func (t *TeleTransport) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil || callback.Message == nil || callback.Sender == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	r := chat.Reaction{PlayerID: callback.Sender.ID, Data: data}

	if !t.dispatchReaction(callback.Message.Chat.ID, callback.Message.ID, r) {
		log.Debug().
			Int64("user_id", r.PlayerID).
			Str("data", data).
			Msg("Button press with no matching waiter")
	}
	return c.Respond(&tele.CallbackResponse{})
}

// dispatchReaction offers a button press to the waiters on a message.
func (t *TeleTransport) dispatchReaction(chatID int64, messageID int, r chat.Reaction) bool {
	key := messageKey(chatID, messageID)

	t.mu.Lock()
	var matched *reactionWaiter
	for _, w := range t.reactionWaiters[key] {
		if w.accept(r) {
			matched = w
			break
		}
	}
	t.mu.Unlock()

	if matched == nil {
		return false
	}
	select {
	case matched.ch <- r:
	default:
		// Waiter already consumed a reaction this round.
	}
	return true
}

// HandleText routes a plain text message to the first waiter that accepts it.
// Returns true if a waiter consumed the message.
func (t *TeleTransport) HandleText(c tele.Context) bool {
	sender := c.Sender()
	tchat := c.Chat()
	if sender == nil || tchat == nil {
		return false
	}

	text := strings.TrimSpace(c.Text())
	if text == "" || strings.HasPrefix(text, "/") {
		return false
	}
	return t.dispatchText(tchat.ID, sender.ID, text)
}

// dispatchText offers a text message to the waiters on a chat.
func (t *TeleTransport) dispatchText(chatID, playerID int64, text string) bool {
	t.mu.Lock()
	var matched *textWaiter
	for _, w := range t.textWaiters[chatID] {
		if w.accept(playerID, text) {
			matched = w
			break
		}
	}
	t.mu.Unlock()

	if matched == nil {
		return false
	}

	select {
	case matched.ch <- textEvent{playerID: playerID, text: text}:
	default:
	}
	return true
}
