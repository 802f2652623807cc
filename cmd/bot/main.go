// Package main is the entry point for the mini-game bot.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"minigame-bot/internal/bot"
	"minigame-bot/internal/config"
	"minigame-bot/internal/content"
	"minigame-bot/internal/economy"
	"minigame-bot/internal/game"
	"minigame-bot/internal/game/blackjack"
	"minigame-bot/internal/game/hangman"
	"minigame-bot/internal/game/memory"
	"minigame-bot/internal/game/numguess"
	"minigame-bot/internal/game/rps"
	"minigame-bot/internal/game/scramble"
	"minigame-bot/internal/game/snake"
	"minigame-bot/internal/game/tictactoe"
	"minigame-bot/internal/jobs"
	"minigame-bot/internal/pkg/lock"
	"minigame-bot/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("backend", cfg.Store.Backend).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger store
	ledger, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open the ledger store")
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Error().Err(err).Msg("Store close failed")
		}
	}()

	// Economy engine
	econCfg := economy.Config{
		DailyMin:    cfg.Economy.DailyMin,
		DailyMax:    cfg.Economy.DailyMax,
		StreakBonus: cfg.Economy.StreakBonus,
		WorkMin:     cfg.Economy.WorkMin,
		WorkMax:     cfg.Economy.WorkMax,
	}
	// The global rand source is goroutine-safe, which matters because telebot
	// runs each update on its own goroutine.
	econ := economy.NewEngine(ledger, econCfg, func(min, max int64) int64 {
		return min + rand.Int63n(max-min+1)
	})

	// Game infrastructure
	sessions := game.NewSessionRegistry()
	stats := game.NewStats(ledger)

	registry := game.NewRegistry()
	for _, d := range []game.Descriptor{
		blackjack.Descriptor(),
		tictactoe.Descriptor(),
		rps.Descriptor(),
		snake.Descriptor(),
		memory.Descriptor(),
		hangman.Descriptor(),
		numguess.Descriptor(),
		scramble.Descriptor(),
	} {
		if err := registry.Register(d); err != nil {
			log.Fatal().Err(err).Str("game", d.Command).Msg("Failed to register game")
		}
	}
	log.Info().
		Int("game_count", registry.Count()).
		Strs("games", registry.Commands()).
		Msg("Games registered")

	// Content provider
	provider := content.NewHTTPProvider(&cfg.Content)

	// Per-user locks for wallet commands
	userLock := lock.NewKeyLock()

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:   cfg,
		Economy:  econ,
		Stats:    stats,
		Sessions: sessions,
		Registry: registry,
		Content:  provider,
		UserLock: userLock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Maintenance sweeps
	scheduler := jobs.NewScheduler(sessions, econ, ledger, cfg.Games.SessionMaxAge())
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	scheduler.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openStore picks the ledger backend from configuration.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:            cfg.Store.Postgres.DSN(),
			PoolSize:       cfg.Store.Postgres.PoolSize,
			ConnectTimeout: cfg.Store.Postgres.ConnectTimeout,
		})
	case "redis":
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	default:
		return store.NewDocumentStore(cfg.Store.Dir)
	}
}
