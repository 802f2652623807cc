package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/chat"
)

// ContentHandler serves jokes and facts from an external provider.
type ContentHandler struct {
	provider chat.ContentProvider
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(provider chat.ContentProvider) *ContentHandler {
	return &ContentHandler{provider: provider}
}

// HandleJoke handles /joke.
func (h *ContentHandler) HandleJoke(c tele.Context) error {
	return h.fetch(c, chat.KindJoke, "😅 The joke vault is closed right now, try again later")
}

// HandleFact handles /fact.
func (h *ContentHandler) HandleFact(c tele.Context) error {
	return h.fetch(c, chat.KindFact, "🤔 No facts available right now, try again later")
}

func (h *ContentHandler) fetch(c tele.Context, kind, fallback string) error {
	text, err := h.provider.Fetch(context.Background(), kind)
	if err != nil {
		log.Debug().Err(err).Str("kind", kind).Msg("Content fetch failed")
		return c.Reply(fallback)
	}
	return c.Reply(text)
}
