// Package handler provides Telegram bot command handlers. Handlers translate
// chat commands into economy and game operations and the error taxonomy into
// user-facing notices; nothing here is fatal.
package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/economy"
	"minigame-bot/internal/pkg/lock"
)

// EconomyHandler handles wallet commands.
type EconomyHandler struct {
	economy  *economy.Engine
	userLock *lock.KeyLock
}

// NewEconomyHandler creates a new EconomyHandler.
func NewEconomyHandler(eng *economy.Engine, userLock *lock.KeyLock) *EconomyHandler {
	return &EconomyHandler{economy: eng, userLock: userLock}
}

// guildID scopes every wallet to the chat it lives in.
func guildID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func lockKey(guild, player int64) string {
	return fmt.Sprintf("%d:%d", guild, player)
}

func displayName(u *tele.User) string {
	if u == nil {
		return "player"
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("User%d", u.ID)
}

// remainingText formats a cooldown remainder as "3h 12m" / "45m" / "30s".
func remainingText(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// HandleBalance handles /balance.
func (h *EconomyHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.economy.Balance(context.Background(), guildID(c), sender.ID)
	if err != nil {
		return c.Reply("❌ Could not fetch your balance, try again later")
	}
	return c.Reply(fmt.Sprintf("💰 %s, your balance is %d coins", displayName(sender), balance))
}

// HandleDaily handles /daily.
func (h *EconomyHandler) HandleDaily(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	res, err := h.economy.ClaimDaily(context.Background(), guild, sender.ID, time.Now())
	if err != nil {
		var tooSoon *economy.TooSoonError
		if errors.As(err, &tooSoon) {
			return c.Reply(fmt.Sprintf("⏰ Daily already claimed. Come back in %s", remainingText(tooSoon.Remaining)))
		}
		return c.Reply("❌ Daily claim failed, try again later")
	}

	msg := fmt.Sprintf("✅ Daily reward: %d coins", res.Reward)
	if res.Streak > 1 {
		msg += fmt.Sprintf(" (streak %d, +%d bonus)", res.Streak, res.Bonus)
	}
	msg += fmt.Sprintf("\n💰 Balance: %d", res.Balance)
	return c.Reply(msg)
}

// HandleWork handles /work.
func (h *EconomyHandler) HandleWork(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	res, err := h.economy.Work(context.Background(), guild, sender.ID, time.Now())
	if err != nil {
		var tooSoon *economy.TooSoonError
		if errors.As(err, &tooSoon) {
			return c.Reply(fmt.Sprintf("⏰ You already worked this hour. Next shift in %s", remainingText(tooSoon.Remaining)))
		}
		return c.Reply("❌ Work failed, try again later")
	}

	return c.Reply(fmt.Sprintf("🔨 You earned %d coins\n💰 Balance: %d", res.Reward, res.Balance))
}

// HandleGamble handles /gamble <amount>.
func (h *EconomyHandler) HandleGamble(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /gamble <amount>")
	}
	wager, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || wager <= 0 {
		return c.Reply("❌ The wager must be a positive number")
	}

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	// The global source is goroutine-safe; handlers run concurrently.
	roll := rand.Intn(100) + 1
	res, err := h.economy.Gamble(context.Background(), guild, sender.ID, wager, roll)
	if err != nil {
		switch {
		case errors.Is(err, economy.ErrInsufficientFunds):
			return c.Reply("❌ You don't have that many coins")
		case errors.Is(err, economy.ErrInvalidAmount):
			return c.Reply("❌ The wager must be a positive number")
		default:
			return c.Reply("❌ Gamble failed, try again later")
		}
	}

	verdict := "💸 Lost it all"
	if res.Net > 0 {
		verdict = fmt.Sprintf("🎉 Won %d coins", res.Net)
	} else if res.Net == 0 {
		verdict = "😐 Broke even"
	}
	return c.Reply(fmt.Sprintf(
		"🎲 Roll: %d  (x%.1f)\n%s\n💰 Balance: %d",
		res.Roll, res.Multiplier, verdict, res.Balance,
	))
}

// HandlePay handles /pay <@user|id> <amount> or a reply with /pay <amount>.
func (h *EconomyHandler) HandlePay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	target, amountArg, err := resolveTarget(c)
	if err != nil {
		return c.Reply("Usage: /pay <amount> as a reply, or /pay <user_id> <amount>")
	}

	amount, err := strconv.ParseInt(amountArg, 10, 64)
	if err != nil || amount <= 0 {
		return c.Reply("❌ The amount must be a positive number")
	}
	if target == sender.ID {
		return c.Reply("❌ You cannot pay yourself")
	}

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	if err := h.economy.Transfer(context.Background(), guild, sender.ID, target, amount); err != nil {
		switch {
		case errors.Is(err, economy.ErrInsufficientFunds):
			return c.Reply("❌ You don't have that many coins")
		case errors.Is(err, economy.ErrSelfTransfer):
			return c.Reply("❌ You cannot pay yourself")
		default:
			return c.Reply("❌ Transfer failed, try again later")
		}
	}

	return c.Reply(fmt.Sprintf("✅ Sent %d coins to %d", amount, target))
}

// resolveTarget finds the target player for /pay and /gift. Replying to a
// message targets its author; otherwise the first argument is a numeric ID.
// It returns the target and the remaining argument.
func resolveTarget(c tele.Context) (int64, string, error) {
	args := c.Args()

	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		if len(args) < 1 {
			return 0, "", fmt.Errorf("missing amount")
		}
		return msg.ReplyTo.Sender.ID, args[0], nil
	}

	if len(args) < 2 {
		return 0, "", fmt.Errorf("missing target or amount")
	}
	target, err := strconv.ParseInt(strings.TrimPrefix(args[0], "@"), 10, 64)
	if err != nil || target <= 0 {
		return 0, "", fmt.Errorf("bad target %q", args[0])
	}
	return target, args[1], nil
}

// HandleTop handles /top: the guild's balance leaderboard.
func (h *EconomyHandler) HandleTop(c tele.Context) error {
	entries, err := h.economy.Leaderboard(context.Background(), guildID(c), 10)
	if err != nil {
		return c.Reply("❌ Could not fetch the leaderboard, try again later")
	}
	if len(entries) == 0 {
		return c.Reply("📊 No balances yet")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Richest players\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %d: %d coins\n", rank, e.PlayerID, e.Balance)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}
