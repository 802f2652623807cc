// Package bot wires the Telegram transport to the command handlers.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/chat"
	"minigame-bot/internal/config"
	"minigame-bot/internal/economy"
	"minigame-bot/internal/game"
	"minigame-bot/internal/handler"
	"minigame-bot/internal/pkg/lock"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot       *tele.Bot
	cfg       *config.Config
	transport *TeleTransport
	registry  *game.Registry

	economyHandler *handler.EconomyHandler
	shopHandler    *handler.ShopHandler
	gameHandler    *handler.GameHandler
	contentHandler *handler.ContentHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config   *config.Config
	Economy  *economy.Engine
	Stats    *game.Stats
	Sessions *game.SessionRegistry
	Registry *game.Registry
	Content  chat.ContentProvider
	UserLock *lock.KeyLock
}

// New creates a Bot with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	transport := NewTeleTransport(teleBot)

	b := &Bot{
		bot:       teleBot,
		cfg:       deps.Config,
		transport: transport,
		registry:  deps.Registry,
	}

	b.economyHandler = handler.NewEconomyHandler(deps.Economy, deps.UserLock)
	b.shopHandler = handler.NewShopHandler(deps.Economy, deps.UserLock)
	b.gameHandler = handler.NewGameHandler(deps.Config, deps.Economy, deps.Stats, deps.Sessions, deps.Registry, transport)
	b.contentHandler = handler.NewContentHandler(deps.Content)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command, callback and text handlers.
func (b *Bot) registerHandlers() {
	// Economy
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/balance", b.economyHandler.HandleBalance)
	b.bot.Handle("/daily", b.economyHandler.HandleDaily)
	b.bot.Handle("/work", b.economyHandler.HandleWork)
	b.bot.Handle("/gamble", b.economyHandler.HandleGamble)
	b.bot.Handle("/pay", b.economyHandler.HandlePay)
	b.bot.Handle("/top", b.economyHandler.HandleTop)

	// Shop and inventory
	b.bot.Handle("/shop", b.shopHandler.HandleShop)
	b.bot.Handle("/buy", b.shopHandler.HandleBuy)
	b.bot.Handle("/inventory", b.shopHandler.HandleInventory)
	b.bot.Handle("/use", b.shopHandler.HandleUse)
	b.bot.Handle("/gift", b.shopHandler.HandleGift)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/shop_add", b.shopHandler.HandleShopAdd)
	adminGroup.Handle("/shop_remove", b.shopHandler.HandleShopRemove)

	// Games
	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/gtop", b.gameHandler.HandleGameTop)
	b.bot.Handle("/gstats", b.gameHandler.HandleGameStats)
	b.bot.Handle("/blackjack", b.gameHandler.HandleBlackjack)
	b.bot.Handle("/tictactoe", b.gameHandler.HandleTicTacToe)
	b.bot.Handle("/rps", b.gameHandler.HandleRPS)
	b.bot.Handle("/snake", b.gameHandler.HandleSnake)
	b.bot.Handle("/memory", b.gameHandler.HandleMemory)
	b.bot.Handle("/hangman", b.gameHandler.HandleHangman)
	b.bot.Handle("/numguess", b.gameHandler.HandleNumGuess)
	b.bot.Handle("/scramble", b.gameHandler.HandleScramble)

	// Content
	b.bot.Handle("/joke", b.contentHandler.HandleJoke)
	b.bot.Handle("/fact", b.contentHandler.HandleFact)

	// Button presses feed the transport's pending awaits.
	b.bot.Handle(tele.OnCallback, b.transport.HandleCallback)

	// Plain text first goes to game awaits (guesses, answers); anything
	// unclaimed is ignored.
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		b.transport.HandleText(c)
		return nil
	})
}

// handleStart greets the user and lists the basics.
func (b *Bot) handleStart(c tele.Context) error {
	sender := c.Sender()
	name := "there"
	if sender != nil && sender.FirstName != "" {
		name = sender.FirstName
	}
	return c.Reply(fmt.Sprintf(
		"👋 Hi %s!\n\n"+
			"💰 /balance /daily /work /gamble /pay /top\n"+
			"🏪 /shop /buy /inventory /use /gift\n"+
			"🎮 /games to see the mini-games\n"+
			"😄 /joke /fact",
		name,
	))
}

// Start starts the bot polling loop.
func (b *Bot) Start() {
	log.Info().
		Int("game_count", b.registry.Count()).
		Strs("games", b.registry.Commands()).
		Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// Transport returns the chat transport backed by this bot.
func (b *Bot) Transport() chat.Transport {
	return b.transport
}
