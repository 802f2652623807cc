package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame-bot/internal/chat"
)

func newTestTransport() *TeleTransport {
	return &TeleTransport{
		reactionWaiters: make(map[string][]*reactionWaiter),
		textWaiters:     make(map[int64][]*textWaiter),
	}
}

func TestAwaitReactionDelivered(t *testing.T) {
	tr := newTestTransport()
	ref := chat.MessageRef{ChatID: 100, MessageID: 7}

	type result struct {
		r        chat.Reaction
		timedOut bool
		err      error
	}
	done := make(chan result, 1)
	go func() {
		r, timedOut, err := tr.AwaitReaction(context.Background(), ref, func(r chat.Reaction) bool {
			return r.PlayerID == 42
		}, time.Second)
		done <- result{r, timedOut, err}
	}()

	// Wait for the waiter to register, then press buttons.
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.reactionWaiters) == 1
	}, time.Second, time.Millisecond)

	// Wrong player is ignored.
	assert.False(t, tr.dispatchReaction(100, 7, chat.Reaction{PlayerID: 99, Data: "hit"}))
	// Wrong message is ignored.
	assert.False(t, tr.dispatchReaction(100, 8, chat.Reaction{PlayerID: 42, Data: "hit"}))
	// Right player on the right message is delivered.
	assert.True(t, tr.dispatchReaction(100, 7, chat.Reaction{PlayerID: 42, Data: "hit"}))

	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.timedOut)
	assert.Equal(t, int64(42), res.r.PlayerID)
	assert.Equal(t, "hit", res.r.Data)

	// Waiter is removed after delivery.
	tr.mu.Lock()
	assert.Empty(t, tr.reactionWaiters)
	tr.mu.Unlock()
}

func TestAwaitReactionTimeout(t *testing.T) {
	tr := newTestTransport()
	ref := chat.MessageRef{ChatID: 100, MessageID: 7}

	_, timedOut, err := tr.AwaitReaction(context.Background(), ref, func(chat.Reaction) bool { return true }, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, timedOut)

	tr.mu.Lock()
	assert.Empty(t, tr.reactionWaiters)
	tr.mu.Unlock()
}

func TestAwaitReactionContextCancel(t *testing.T) {
	tr := newTestTransport()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, timedOut, err := tr.AwaitReaction(ctx, chat.MessageRef{ChatID: 1, MessageID: 1}, func(chat.Reaction) bool { return true }, time.Second)
	assert.False(t, timedOut)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitTextReplyDelivered(t *testing.T) {
	tr := newTestTransport()

	type result struct {
		playerID int64
		text     string
		timedOut bool
		err      error
	}
	done := make(chan result, 1)
	go func() {
		playerID, text, timedOut, err := tr.AwaitTextReply(context.Background(), 200, func(_ int64, text string) bool {
			return text == "golang"
		}, time.Second)
		done <- result{playerID, text, timedOut, err}
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.textWaiters) == 1
	}, time.Second, time.Millisecond)

	assert.False(t, tr.dispatchText(200, 5, "python"))
	assert.True(t, tr.dispatchText(200, 5, "golang"))

	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.timedOut)
	assert.Equal(t, int64(5), res.playerID)
	assert.Equal(t, "golang", res.text)
}

func TestTwoWaitersSameMessage(t *testing.T) {
	tr := newTestTransport()
	ref := chat.MessageRef{ChatID: 300, MessageID: 1}

	got := make(chan int64, 2)
	for _, id := range []int64{10, 11} {
		id := id
		go func() {
			r, timedOut, err := tr.AwaitReaction(context.Background(), ref, func(r chat.Reaction) bool {
				return r.PlayerID == id
			}, time.Second)
			if err == nil && !timedOut {
				got <- r.PlayerID
			}
		}()
	}

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.reactionWaiters[messageKey(300, 1)]) == 2
	}, time.Second, time.Millisecond)

	assert.True(t, tr.dispatchReaction(300, 1, chat.Reaction{PlayerID: 10, Data: "rock"}))
	assert.True(t, tr.dispatchReaction(300, 1, chat.Reaction{PlayerID: 11, Data: "paper"}))

	seen := map[int64]bool{<-got: true, <-got: true}
	assert.True(t, seen[10])
	assert.True(t, seen[11])
}
