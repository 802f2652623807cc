package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/chat"
	"minigame-bot/internal/config"
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
)

// Word scramble timeline: staged hints erode the time bonus, then a hard stop.
const (
	scrambleFirstHintAt  = 30 * time.Second
	scrambleSecondHintAt = 60 * time.Second
	scrambleDeadline     = 120 * time.Second
)

// GameHandler starts game rounds and runs their interaction loops. Each round
// runs on its own goroutine: the loop feeds transport input (button presses,
// text replies, timeouts) into the engine and settles coins when the engine
// goes terminal.
type GameHandler struct {
	cfg       *config.Config
	economy   *economy.Engine
	stats     *game.Stats
	sessions  *game.SessionRegistry
	registry  *game.Registry
	transport chat.Transport
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	cfg *config.Config,
	eng *economy.Engine,
	stats *game.Stats,
	sessions *game.SessionRegistry,
	registry *game.Registry,
	transport chat.Transport,
) *GameHandler {
	return &GameHandler{
		cfg:       cfg,
		economy:   eng,
		stats:     stats,
		sessions:  sessions,
		registry:  registry,
		transport: transport,
	}
}

// newRand seeds a per-round random source. Engines are single-goroutine so
// they each get their own.
func (h *GameHandler) newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// acceptButtons matches presses from one player on a fixed set of buttons.
func acceptButtons(playerID int64, datas ...string) func(chat.Reaction) bool {
	set := make(map[string]bool, len(datas))
	for _, d := range datas {
		set[d] = true
	}
	return func(r chat.Reaction) bool {
		return r.PlayerID == playerID && set[r.Data]
	}
}

// acceptAnyOf matches presses from any of the given players on a fixed set of
// buttons.
func acceptAnyOf(players []int64, datas ...string) func(chat.Reaction) bool {
	set := make(map[string]bool, len(datas))
	for _, d := range datas {
		set[d] = true
	}
	return func(r chat.Reaction) bool {
		if !set[r.Data] {
			return false
		}
		for _, p := range players {
			if p == r.PlayerID {
				return true
			}
		}
		return false
	}
}

// escrow debits the wager from every player. On a partial failure the debits
// already taken are refunded; the failing player is returned.
func (h *GameHandler) escrow(ctx context.Context, guild, wager int64, players ...int64) (int64, error) {
	if wager <= 0 {
		return 0, nil
	}
	for i, p := range players {
		ok, _, err := h.economy.Debit(ctx, guild, p, wager)
		if err == nil && ok {
			continue
		}
		for _, q := range players[:i] {
			if _, cerr := h.economy.Credit(ctx, guild, q, wager); cerr != nil {
				log.Error().Err(cerr).Int64("player_id", q).Msg("Escrow rollback failed")
			}
		}
		if err != nil {
			return p, err
		}
		return p, economy.ErrInsufficientFunds
	}
	return 0, nil
}

// settle pays out a terminal result. A result with a winner credits the
// winner; a winnerless reward (draw refund, void round, banked score) goes to
// every escrowed player.
func (h *GameHandler) settle(ctx context.Context, guild int64, players []int64, res game.Result) []string {
	var lines []string

	if res.Reward > 0 {
		if res.WinnerID != 0 {
			bal, err := h.economy.Credit(ctx, guild, res.WinnerID, res.Reward)
			if err != nil {
				log.Error().Err(err).Int64("player_id", res.WinnerID).Msg("Reward credit failed")
			} else {
				lines = append(lines, fmt.Sprintf("🏆 %d wins %d coins (balance %d)", res.WinnerID, res.Reward, bal))
			}
		} else {
			for _, p := range players {
				if _, err := h.economy.Credit(ctx, guild, p, res.Reward); err != nil {
					log.Error().Err(err).Int64("player_id", p).Msg("Refund credit failed")
				}
			}
			switch res.Outcome {
			case game.OutcomeDraw:
				lines = append(lines, "🤝 Draw, wagers refunded")
			case game.OutcomeTimeout:
				lines = append(lines, "⏰ Round voided, wagers refunded")
			default:
				lines = append(lines, fmt.Sprintf("💰 %d coins banked", res.Reward))
			}
		}
	} else {
		switch res.Outcome {
		case game.OutcomeDraw:
			lines = append(lines, "🤝 Draw")
		case game.OutcomeTimeout:
			lines = append(lines, "⏰ Timed out")
		case game.OutcomeLoss:
			lines = append(lines, "💸 Better luck next time")
		}
	}

	return lines
}

// recordStats writes per-player counters for a finished round.
func (h *GameHandler) recordStats(ctx context.Context, guild int64, command string, players []int64, res game.Result) {
	seen := make(map[int64]bool, len(players)+1)

	record := func(p int64) {
		if seen[p] {
			return
		}
		seen[p] = true

		deltas := map[string]int64{"plays": 1}
		switch res.Outcome {
		case game.OutcomeDraw:
			deltas["draws"] = 1
		case game.OutcomeTimeout:
			if p == res.WinnerID {
				deltas["wins"] = 1
			} else {
				deltas["timeouts"] = 1
			}
		default:
			if p == res.WinnerID {
				deltas["wins"] = 1
			} else {
				deltas["losses"] = 1
			}
		}
		if err := h.stats.Record(ctx, command, guild, p, deltas); err != nil {
			log.Error().Err(err).Str("game", command).Int64("player_id", p).Msg("Stats write failed")
		}
	}

	for _, p := range players {
		record(p)
	}
	// Open games (scramble) can be won by someone who didn't start the round.
	if res.WinnerID != 0 {
		record(res.WinnerID)
	}

	if res.Score > 0 {
		scorer := res.WinnerID
		if scorer == 0 && len(players) > 0 {
			scorer = players[0]
		}
		if scorer != 0 {
			if err := h.stats.RecordBest(ctx, command, guild, scorer, "best_score", res.Score); err != nil {
				log.Error().Err(err).Str("game", command).Msg("Best score write failed")
			}
		}
	}
}

// finish settles, records stats and posts the final board.
func (h *GameHandler) finish(ctx context.Context, guild int64, command string, players []int64, eng game.Engine, ref chat.MessageRef) {
	res := eng.Result()
	lines := h.settle(ctx, guild, players, res)
	h.recordStats(ctx, guild, command, players, res)

	text := eng.Render()
	if len(lines) > 0 {
		text += "\n\n" + strings.Join(lines, "\n")
	}
	if err := h.transport.EditMessage(ctx, ref, text, nil); err != nil {
		log.Debug().Err(err).Str("game", command).Msg("Final board edit failed")
	}
}

// replyStartError maps round-start failures to user notices.
func replyStartError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, game.ErrAlreadyActive):
		return c.Reply("❌ Finish your current game first")
	case errors.Is(err, economy.ErrInsufficientFunds):
		return c.Reply("❌ You don't have enough coins for that wager")
	default:
		return c.Reply("❌ Could not start the game, try again later")
	}
}

func parseWager(arg string) (int64, error) {
	wager, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || wager <= 0 {
		return 0, fmt.Errorf("bad wager %q", arg)
	}
	return wager, nil
}

// HandleGames handles /games: lists everything the registry knows.
func (h *GameHandler) HandleGames(c tele.Context) error {
	var sb strings.Builder
	sb.WriteString("🎮 Games\n")
	for _, d := range h.registry.List() {
		fmt.Fprintf(&sb, "/%s - %s\n", d.Command, d.Description)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleGameTop handles /gtop <game> [counter]: a per-game leaderboard.
func (h *GameHandler) HandleGameTop(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /gtop <game> [wins|plays|best_score]")
	}
	command := strings.TrimPrefix(strings.ToLower(args[0]), "/")
	if _, ok := h.registry.Get(command); !ok {
		return c.Reply("❌ Unknown game, see /games")
	}
	counter := "wins"
	if len(args) > 1 {
		counter = strings.ToLower(args[1])
	}

	entries, err := h.stats.Leaderboard(context.Background(), command, guildID(c), counter, 10)
	if err != nil {
		return c.Reply("❌ Could not fetch the leaderboard, try again later")
	}
	if len(entries) == 0 {
		return c.Reply("📊 No results for that game yet")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 %s: top %s\n", command, counter)
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %d: %d\n", i+1, e.PlayerID, e.Value)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleGameStats handles /gstats <game>: the caller's counters.
func (h *GameHandler) HandleGameStats(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /gstats <game>")
	}
	command := strings.TrimPrefix(strings.ToLower(args[0]), "/")
	if _, ok := h.registry.Get(command); !ok {
		return c.Reply("❌ Unknown game, see /games")
	}

	stats, err := h.stats.Player(context.Background(), command, guildID(c), sender.ID)
	if err != nil {
		return c.Reply("❌ Could not fetch your stats, try again later")
	}
	if len(stats.Counters) == 0 {
		return c.Reply("📊 You haven't played that game yet")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s stats for %s\n", command, displayName(sender))
	for _, key := range []string{"plays", "wins", "losses", "draws", "timeouts", "best_score"} {
		if v, ok := stats.Counters[key]; ok {
			fmt.Fprintf(&sb, "%s: %d\n", key, v)
		}
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleBlackjack handles /blackjack <wager>.
func (h *GameHandler) HandleBlackjack(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /blackjack <wager>")
	}
	wager, err := parseWager(args[0])
	if err != nil {
		return c.Reply("❌ The wager must be a positive number")
	}

	sess, err := h.sessions.Start("blackjack", time.Now(), game.PlayerKey(sender.ID))
	if err != nil {
		return replyStartError(c, err)
	}

	ctx := context.Background()
	if _, err := h.escrow(ctx, guild, wager, sender.ID); err != nil {
		h.sessions.End(sess)
		return replyStartError(c, err)
	}

	eng, err := blackjack.New(game.Options{Players: []int64{sender.ID}, Wager: wager, Rand: h.newRand()})
	if err != nil {
		h.refundAndEnd(ctx, guild, wager, []int64{sender.ID}, sess)
		return replyStartError(c, err)
	}

	go h.runBlackjack(guild, sender.ID, wager, sess, eng)
	return nil
}

func (h *GameHandler) runBlackjack(guild, player, wager int64, sess *game.Session, eng game.Engine) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	buttons := [][]chat.Button{{
		{Label: "🃏 Hit", Data: blackjack.MoveHit},
		{Label: "✋ Stand", Data: blackjack.MoveStand},
	}}

	ref, err := h.transport.SendMessage(ctx, guild, eng.Render(), buttons)
	if err != nil {
		h.abortRound(ctx, guild, "blackjack", wager, []int64{player}, err)
		return
	}

	for !eng.IsTerminal() {
		r, timedOut, err := h.transport.AwaitReaction(ctx, ref, acceptButtons(player, blackjack.MoveHit, blackjack.MoveStand), h.cfg.Games.MoveTimeout())
		if err != nil {
			timedOut = true
		}
		mv := game.TimedOut
		if !timedOut {
			mv = game.Move{Kind: r.Data}
		}
		if err := eng.ApplyMove(player, mv); err != nil {
			continue
		}
		if !eng.IsTerminal() {
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), buttons)
		}
	}

	h.finish(ctx, guild, "blackjack", []int64{player}, eng, ref)
}

// HandleTicTacToe handles /tictactoe <wager> sent as a reply to the opponent.
func (h *GameHandler) HandleTicTacToe(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	opponent, err := replyOpponent(c)
	if err != nil {
		return c.Reply("Usage: reply to your opponent with /tictactoe <wager>")
	}
	if opponent == sender.ID {
		return c.Reply("❌ You cannot challenge yourself")
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: reply to your opponent with /tictactoe <wager>")
	}
	wager, err := parseWager(args[0])
	if err != nil {
		return c.Reply("❌ The wager must be a positive number")
	}

	sess, err := h.sessions.Start("tictactoe", time.Now(),
		game.ChannelKey(guild), game.PlayerKey(sender.ID), game.PlayerKey(opponent))
	if err != nil {
		return replyStartError(c, err)
	}

	go h.runTicTacToe(guild, sender.ID, opponent, wager, sess)
	return nil
}

func (h *GameHandler) runTicTacToe(guild, challenger, opponent, wager int64, sess *game.Session) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	accepted, ref := h.runChallenge(ctx, guild, "Tic-Tac-Toe", challenger, opponent, wager)
	if !accepted {
		return
	}

	players := []int64{challenger, opponent}
	if _, err := h.escrow(ctx, guild, wager, players...); err != nil {
		_ = h.transport.EditMessage(ctx, ref, "❌ Challenge cancelled: a player can't cover the wager", nil)
		return
	}

	eng, err := tictactoe.New(game.Options{Players: players, Wager: wager})
	if err != nil {
		h.abortRound(ctx, guild, "tictactoe", wager, players, err)
		return
	}

	cells := make([]string, 9)
	for i := range cells {
		cells[i] = strconv.Itoa(i)
	}
	buttons := boardButtons()

	_ = h.transport.EditMessage(ctx, ref, eng.Render(), buttons)

	for !eng.IsTerminal() {
		r, timedOut, err := h.transport.AwaitReaction(ctx, ref, acceptAnyOf(players, cells...), h.cfg.Games.MoveTimeout())
		if err != nil {
			timedOut = true
		}
		if timedOut {
			_ = eng.ApplyMove(challenger, game.TimedOut)
			break
		}
		if err := eng.ApplyMove(r.PlayerID, game.Move{Kind: tictactoe.MovePlace, Data: r.Data}); err != nil {
			// Wrong turn or occupied cell: wait for a valid press.
			continue
		}
		if !eng.IsTerminal() {
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), buttons)
		}
	}

	h.finish(ctx, guild, "tictactoe", players, eng, ref)
}

// boardButtons lays out the 3x3 grid as numbered buttons.
func boardButtons() [][]chat.Button {
	rows := make([][]chat.Button, 3)
	for r := 0; r < 3; r++ {
		row := make([]chat.Button, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			row[c] = chat.Button{Label: strconv.Itoa(i + 1), Data: strconv.Itoa(i)}
		}
		rows[r] = row
	}
	return rows
}

// runChallenge posts an accept/decline prompt and waits for the opponent.
func (h *GameHandler) runChallenge(ctx context.Context, guild int64, name string, challenger, opponent, wager int64) (bool, chat.MessageRef) {
	text := fmt.Sprintf("⚔️ %d challenges %d to %s", challenger, opponent, name)
	if wager > 0 {
		text += fmt.Sprintf(" for %d coins", wager)
	}
	buttons := [][]chat.Button{{
		{Label: "✅ Accept", Data: "accept"},
		{Label: "❌ Decline", Data: "decline"},
	}}

	ref, err := h.transport.SendMessage(ctx, guild, text, buttons)
	if err != nil {
		log.Error().Err(err).Msg("Challenge message failed")
		return false, chat.MessageRef{}
	}

	r, timedOut, err := h.transport.AwaitReaction(ctx, ref, acceptButtons(opponent, "accept", "decline"), h.cfg.Games.AcceptTimeout())
	if err != nil || timedOut {
		_ = h.transport.EditMessage(ctx, ref, "⏰ Challenge expired", nil)
		return false, ref
	}
	if r.Data == "decline" {
		_ = h.transport.EditMessage(ctx, ref, "🚫 Challenge declined", nil)
		return false, ref
	}
	return true, ref
}

// HandleRPS handles /rps [wager]. Replying to another player starts a duel;
// otherwise the round is solo against the house.
func (h *GameHandler) HandleRPS(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	opponent, replyErr := replyOpponent(c)
	args := c.Args()

	var wager int64
	if len(args) > 0 {
		w, err := parseWager(args[0])
		if err != nil {
			return c.Reply("❌ The wager must be a positive number")
		}
		wager = w
	}

	if replyErr != nil {
		// Solo round. Fixed house rewards, no wager at stake.
		sess, err := h.sessions.Start("rps", time.Now(), game.PlayerKey(sender.ID))
		if err != nil {
			return replyStartError(c, err)
		}
		go h.runRPSSolo(guild, sender.ID, sess)
		return nil
	}

	if opponent == sender.ID {
		return c.Reply("❌ You cannot challenge yourself")
	}

	sess, err := h.sessions.Start("rps", time.Now(),
		game.ChannelKey(guild), game.PlayerKey(sender.ID), game.PlayerKey(opponent))
	if err != nil {
		return replyStartError(c, err)
	}

	go h.runRPSDuel(guild, sender.ID, opponent, wager, sess)
	return nil
}

var rpsChoices = []string{"rock", "paper", "scissors"}

func rpsButtons() [][]chat.Button {
	return [][]chat.Button{{
		{Label: "🪨 Rock", Data: "rock"},
		{Label: "📄 Paper", Data: "paper"},
		{Label: "✂️ Scissors", Data: "scissors"},
	}}
}

func (h *GameHandler) runRPSSolo(guild, player int64, sess *game.Session) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	eng, err := rps.New(game.Options{Players: []int64{player}, Rand: h.newRand()})
	if err != nil {
		log.Error().Err(err).Msg("Solo rps start failed")
		return
	}

	ref, err := h.transport.SendMessage(ctx, guild, eng.Render(), rpsButtons())
	if err != nil {
		return
	}

	for !eng.IsTerminal() {
		r, timedOut, err := h.transport.AwaitReaction(ctx, ref, acceptButtons(player, rpsChoices...), h.cfg.Games.MoveTimeout())
		if err != nil {
			timedOut = true
		}
		mv := game.TimedOut
		if !timedOut {
			mv = game.Move{Kind: rps.MoveChoose, Data: r.Data}
		}
		if err := eng.ApplyMove(player, mv); err != nil {
			continue
		}
	}

	h.finish(ctx, guild, "rps", []int64{player}, eng, ref)
}

func (h *GameHandler) runRPSDuel(guild, challenger, opponent, wager int64, sess *game.Session) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	accepted, ref := h.runChallenge(ctx, guild, "Rock Paper Scissors", challenger, opponent, wager)
	if !accepted {
		return
	}

	players := []int64{challenger, opponent}
	if _, err := h.escrow(ctx, guild, wager, players...); err != nil {
		_ = h.transport.EditMessage(ctx, ref, "❌ Challenge cancelled: a player can't cover the wager", nil)
		return
	}

	eng, err := rps.New(game.Options{Players: players, Wager: wager})
	if err != nil {
		h.abortRound(ctx, guild, "rps", wager, players, err)
		return
	}

	_ = h.transport.EditMessage(ctx, ref, eng.Render(), rpsButtons())

	// One shared deadline for both picks; a repeat press is rejected by the
	// engine and the loop just waits out the rest of the window.
	accept := acceptAnyOf(players, rpsChoices...)
	deadline := time.Now().Add(h.cfg.Games.MoveTimeout())
	for !eng.IsTerminal() {
		r, timedOut, err := h.transport.AwaitReaction(ctx, ref, accept, time.Until(deadline))
		if err != nil {
			timedOut = true
		}
		if timedOut {
			_ = eng.ApplyMove(challenger, game.TimedOut)
			break
		}
		if err := eng.ApplyMove(r.PlayerID, game.Move{Kind: rps.MoveChoose, Data: r.Data}); err != nil {
			continue
		}
		if !eng.IsTerminal() {
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), rpsButtons())
		}
	}

	h.finish(ctx, guild, "rps", players, eng, ref)
}

// HandleSnake handles /snake [difficulty].
func (h *GameHandler) HandleSnake(c tele.Context) error {
	return h.startSolo(c, "snake", snake.New)
}

// HandleMemory handles /memory [difficulty].
func (h *GameHandler) HandleMemory(c tele.Context) error {
	return h.startSolo(c, "memory", memory.New)
}

// HandleNumGuess handles /numguess [difficulty].
func (h *GameHandler) HandleNumGuess(c tele.Context) error {
	return h.startSolo(c, "numguess", numguess.New)
}

// HandleHangman handles /hangman [category].
func (h *GameHandler) HandleHangman(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	category := ""
	if args := c.Args(); len(args) > 0 {
		category = strings.ToLower(args[0])
	}

	sess, err := h.sessions.Start("hangman", time.Now(), game.PlayerKey(sender.ID))
	if err != nil {
		return replyStartError(c, err)
	}

	eng, err := hangman.New(game.Options{Players: []int64{sender.ID}, Category: category, Rand: h.newRand()})
	if err != nil {
		h.sessions.End(sess)
		return c.Reply(fmt.Sprintf("❌ Unknown category. Pick one of: %s", strings.Join(hangman.Categories(), ", ")))
	}

	go h.runTextGame(guildID(c), "hangman", sender.ID, sess, eng, acceptHangmanGuess)
	return nil
}

// startSolo claims a session and spawns a text-driven or button-driven solo
// round for games that take an optional difficulty.
func (h *GameHandler) startSolo(c tele.Context, command string, factory game.Factory) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	difficulty := ""
	if args := c.Args(); len(args) > 0 {
		difficulty = strings.ToLower(args[0])
	}

	sess, err := h.sessions.Start(command, time.Now(), game.PlayerKey(sender.ID))
	if err != nil {
		return replyStartError(c, err)
	}

	eng, err := factory(game.Options{Players: []int64{sender.ID}, Difficulty: difficulty, Rand: h.newRand()})
	if err != nil {
		h.sessions.End(sess)
		return replyStartError(c, err)
	}

	guild := guildID(c)
	switch command {
	case "snake":
		go h.runSnake(guild, sender.ID, sess, eng)
	case "memory":
		go h.runTextGame(guild, command, sender.ID, sess, eng, acceptMemoryPick)
	case "numguess":
		go h.runTextGame(guild, command, sender.ID, sess, eng, acceptNumberGuess)
	default:
		h.sessions.End(sess)
		return c.Reply("❌ Could not start the game, try again later")
	}
	return nil
}

func (h *GameHandler) runSnake(guild, player int64, sess *game.Session, eng game.Engine) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	buttons := [][]chat.Button{
		{{Label: "⬆️", Data: "up"}},
		{{Label: "⬅️", Data: "left"}, {Label: "⬇️", Data: "down"}, {Label: "➡️", Data: "right"}},
		{{Label: "💰 Cash out", Data: snake.MoveQuit}},
	}
	datas := []string{"up", "down", "left", "right", snake.MoveQuit}

	ref, err := h.transport.SendMessage(ctx, guild, eng.Render(), buttons)
	if err != nil {
		return
	}

	for !eng.IsTerminal() {
		r, timedOut, err := h.transport.AwaitReaction(ctx, ref, acceptButtons(player, datas...), h.cfg.Games.MoveTimeout())
		if err != nil {
			timedOut = true
		}
		if timedOut {
			_ = eng.ApplyMove(player, game.TimedOut)
			break
		}
		if r.Data == snake.MoveQuit {
			_ = eng.ApplyMove(player, game.Move{Kind: snake.MoveQuit})
			break
		}
		// A direction press steers, then the snake advances one step.
		_ = eng.ApplyMove(player, game.Move{Kind: snake.MoveTurn, Data: r.Data})
		_ = eng.ApplyMove(player, game.Move{Kind: snake.MoveTick})
		if !eng.IsTerminal() {
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), buttons)
		}
	}

	h.finish(ctx, guild, "snake", []int64{player}, eng, ref)
}

// textMove validates a text reply and converts it into an engine move.
type textMove func(text string) (game.Move, bool)

// acceptMemoryPick parses "row col" or "row,col".
func acceptMemoryPick(text string) (game.Move, bool) {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 2 {
		return game.Move{}, false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return game.Move{}, false
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return game.Move{}, false
	}
	return game.Move{Kind: memory.MovePick, Data: fields[0] + "," + fields[1]}, true
}

// acceptNumberGuess parses a bare integer.
func acceptNumberGuess(text string) (game.Move, bool) {
	if _, err := strconv.Atoi(text); err != nil {
		return game.Move{}, false
	}
	return game.Move{Kind: numguess.MoveGuess, Data: text}, true
}

// acceptHangmanGuess takes a letter or a whole word.
func acceptHangmanGuess(text string) (game.Move, bool) {
	word := strings.ToLower(strings.TrimSpace(text))
	if word == "" {
		return game.Move{}, false
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return game.Move{}, false
		}
	}
	return game.Move{Kind: hangman.MoveGuess, Data: word}, true
}

// runTextGame drives solo games whose moves arrive as plain text replies.
func (h *GameHandler) runTextGame(guild int64, command string, player int64, sess *game.Session, eng game.Engine, parse textMove) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	ref, err := h.transport.SendMessage(ctx, guild, eng.Render(), nil)
	if err != nil {
		return
	}

	accept := func(playerID int64, text string) bool {
		if playerID != player {
			return false
		}
		_, ok := parse(text)
		return ok
	}

	for !eng.IsTerminal() {
		_, text, timedOut, err := h.transport.AwaitTextReply(ctx, guild, accept, h.cfg.Games.MoveTimeout())
		if err != nil {
			timedOut = true
		}
		if timedOut {
			_ = eng.ApplyMove(player, game.TimedOut)
			break
		}
		mv, _ := parse(text)
		if err := eng.ApplyMove(player, mv); err != nil {
			continue
		}
		if !eng.IsTerminal() {
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), nil)
		}
	}

	h.finish(ctx, guild, command, []int64{player}, eng, ref)
}

// HandleScramble handles /scramble [difficulty]. Anyone in the chat may
// answer; hints fire on a fixed timeline while the time bonus runs down.
func (h *GameHandler) HandleScramble(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	difficulty := ""
	if args := c.Args(); len(args) > 0 {
		difficulty = strings.ToLower(args[0])
	}

	sess, err := h.sessions.Start("scramble", time.Now(), game.ChannelKey(guild), game.PlayerKey(sender.ID))
	if err != nil {
		return replyStartError(c, err)
	}

	eng, err := scramble.New(game.Options{Players: []int64{sender.ID}, Difficulty: difficulty, Rand: h.newRand()})
	if err != nil {
		h.sessions.End(sess)
		return replyStartError(c, err)
	}

	go h.runScramble(guild, sender.ID, sess, eng)
	return nil
}

func (h *GameHandler) runScramble(guild, starter int64, sess *game.Session, eng game.Engine) {
	defer h.sessions.End(sess)
	ctx := context.Background()

	ref, err := h.transport.SendMessage(ctx, guild, eng.Render(), nil)
	if err != nil {
		return
	}

	accept := func(_ int64, text string) bool {
		word := strings.TrimSpace(text)
		return word != "" && !strings.ContainsAny(word, " \t")
	}

	start := time.Now()
	events := []time.Duration{scrambleFirstHintAt, scrambleSecondHintAt, scrambleDeadline}
	next := 0

	for !eng.IsTerminal() {
		wait := time.Until(start.Add(events[next]))
		if wait < 0 {
			wait = 0
		}

		playerID, text, timedOut, err := h.transport.AwaitTextReply(ctx, guild, accept, wait)
		if err != nil {
			timedOut = true
			next = len(events) - 1
		}
		if timedOut {
			if next == len(events)-1 {
				_ = eng.ApplyMove(starter, game.TimedOut)
				break
			}
			// Hint time: reveal a little.
			_ = eng.ApplyMove(starter, game.Move{Kind: scramble.MoveHint})
			next++
			_ = h.transport.EditMessage(ctx, ref, eng.Render(), nil)
			continue
		}

		// Wrong answers are quiet misses; the round keeps going.
		_ = eng.ApplyMove(playerID, game.Move{Kind: scramble.MoveAnswer, Data: text})
	}

	h.finish(ctx, guild, "scramble", []int64{starter}, eng, ref)
}

// refundAndEnd rolls back an escrow and releases the session.
func (h *GameHandler) refundAndEnd(ctx context.Context, guild, wager int64, players []int64, sess *game.Session) {
	for _, p := range players {
		if wager > 0 {
			if _, err := h.economy.Credit(ctx, guild, p, wager); err != nil {
				log.Error().Err(err).Int64("player_id", p).Msg("Refund failed")
			}
		}
	}
	h.sessions.End(sess)
}

// abortRound refunds escrowed wagers after an unrecoverable start failure.
func (h *GameHandler) abortRound(ctx context.Context, guild int64, command string, wager int64, players []int64, cause error) {
	log.Error().Err(cause).Str("game", command).Msg("Round aborted")
	for _, p := range players {
		if wager > 0 {
			if _, err := h.economy.Credit(ctx, guild, p, wager); err != nil {
				log.Error().Err(err).Int64("player_id", p).Msg("Refund failed")
			}
		}
	}
}

// replyOpponent extracts the opponent from a reply-to message.
func replyOpponent(c tele.Context) (int64, error) {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
		return 0, fmt.Errorf("not a reply")
	}
	if msg.ReplyTo.Sender.IsBot {
		return 0, fmt.Errorf("cannot challenge a bot")
	}
	return msg.ReplyTo.Sender.ID, nil
}
