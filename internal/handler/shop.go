package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"minigame-bot/internal/economy"
	"minigame-bot/internal/model"
	"minigame-bot/internal/pkg/lock"
)

// ShopHandler handles shop, inventory and item commands.
type ShopHandler struct {
	economy  *economy.Engine
	userLock *lock.KeyLock
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(eng *economy.Engine, userLock *lock.KeyLock) *ShopHandler {
	return &ShopHandler{economy: eng, userLock: userLock}
}

// HandleShop handles /shop: lists the guild catalog.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	cat, err := h.economy.Catalog(context.Background(), guildID(c))
	if err != nil {
		return c.Reply("❌ Could not load the shop, try again later")
	}
	if len(cat.Items) == 0 {
		return c.Reply("🏪 The shop is empty")
	}

	var sb strings.Builder
	sb.WriteString("🏪 Shop: /buy <item_id>\n")
	for _, it := range cat.Items {
		fmt.Fprintf(&sb, "%s %s (%s): %d coins\n", it.Emoji, it.Name, it.ID, it.Price)
		if it.Description != "" {
			fmt.Fprintf(&sb, "    %s\n", it.Description)
		}
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleBuy handles /buy <item_id>.
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /buy <item_id>")
	}

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	inst, err := h.economy.Buy(context.Background(), guild, sender.ID, args[0], time.Now())
	if err != nil {
		switch {
		case errors.Is(err, economy.ErrItemNotFound):
			return c.Reply("❌ No such item in the shop")
		case errors.Is(err, economy.ErrInsufficientFunds):
			return c.Reply("❌ You can't afford that")
		default:
			return c.Reply("❌ Purchase failed, try again later")
		}
	}

	if inst.Type == model.ItemTypeBooster {
		return c.Reply(fmt.Sprintf("✅ %s %s is now active", inst.Emoji, inst.Name))
	}
	return c.Reply(fmt.Sprintf("✅ Bought %s %s, it's in your /inventory", inst.Emoji, inst.Name))
}

// HandleInventory handles /inventory.
func (h *ShopHandler) HandleInventory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	items, boosters, err := h.economy.Inventory(context.Background(), guildID(c), sender.ID)
	if err != nil {
		return c.Reply("❌ Could not load your inventory, try again later")
	}
	if len(items) == 0 && len(boosters) == 0 {
		return c.Reply("🎒 Your inventory is empty")
	}

	var sb strings.Builder
	sb.WriteString("🎒 Inventory\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "%s %s (%s)\n", it.Emoji, it.Name, it.ItemID)
	}
	now := time.Now().Unix()
	for _, b := range boosters {
		if !b.Active || b.ExpiresAt <= now {
			continue
		}
		left := time.Duration(b.ExpiresAt-now) * time.Second
		fmt.Fprintf(&sb, "⚡ %s x%.1f (%s left)\n", b.Name, b.Multiplier, remainingText(left))
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleUse handles /use <item_id> [confirm].
func (h *ShopHandler) HandleUse(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /use <item_id> [confirm]")
	}
	confirm := len(args) > 1 && strings.EqualFold(args[1], "confirm")

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	res, err := h.economy.UseItem(context.Background(), guild, sender.ID, args[0], confirm, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, economy.ErrItemNotOwned):
			return c.Reply("❌ You don't own that item")
		case errors.Is(err, economy.ErrItemNotUsable):
			return c.Reply("❌ That item can't be used")
		case errors.Is(err, economy.ErrBoosterActive):
			return c.Reply("⚠️ A booster with this effect is already active. Repeat with `confirm` to replace it")
		default:
			return c.Reply("❌ Could not use that item, try again later")
		}
	}

	switch {
	case res.Coins > 0:
		return c.Reply(fmt.Sprintf(
			"🎁 %s %s opened: +%d coins\n💰 Balance: %d",
			res.Item.Emoji, res.Item.Name, res.Coins, res.Balance,
		))
	case res.Booster != nil:
		left := time.Until(time.Unix(res.Booster.ExpiresAt, 0))
		return c.Reply(fmt.Sprintf(
			"⚡ %s active: x%.1f for %s",
			res.Booster.Name, res.Booster.Multiplier, remainingText(left),
		))
	default:
		return c.Reply(fmt.Sprintf("✅ Used %s %s", res.Item.Emoji, res.Item.Name))
	}
}

// HandleGift handles /gift <item_id> as a reply, or /gift <user_id> <item_id>.
func (h *ShopHandler) HandleGift(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	guild := guildID(c)

	target, itemID, err := resolveTarget(c)
	if err != nil {
		return c.Reply("Usage: /gift <item_id> as a reply, or /gift <user_id> <item_id>")
	}
	if target == sender.ID {
		return c.Reply("❌ You cannot gift to yourself")
	}

	h.userLock.Lock(lockKey(guild, sender.ID))
	defer h.userLock.Unlock(lockKey(guild, sender.ID))

	inst, err := h.economy.Gift(context.Background(), guild, sender.ID, target, itemID, time.Now())
	if err != nil {
		if errors.Is(err, economy.ErrItemNotOwned) {
			return c.Reply("❌ You don't own that item")
		}
		return c.Reply("❌ Gift failed, try again later")
	}

	return c.Reply(fmt.Sprintf("🎁 Sent %s %s to %d", inst.Emoji, inst.Name, target))
}

// HandleShopAdd handles the admin command
// /shop_add <id> <price> <type> <name...>.
func (h *ShopHandler) HandleShopAdd(c tele.Context) error {
	args := c.Args()
	if len(args) < 4 {
		return c.Reply("Usage: /shop_add <id> <price> <role|lootbox|booster|custom> <name...>")
	}

	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || price <= 0 {
		return c.Reply("❌ The price must be a positive number")
	}

	item := model.ShopItem{
		ID:    strings.ToLower(args[0]),
		Name:  strings.Join(args[3:], " "),
		Price: price,
		Type:  model.ItemType(strings.ToLower(args[2])),
	}

	if err := h.economy.AddShopItem(context.Background(), guildID(c), item); err != nil {
		if errors.Is(err, economy.ErrItemExists) {
			return c.Reply("❌ An item with that ID already exists")
		}
		return c.Reply("❌ Could not add the item, try again later")
	}
	return c.Reply(fmt.Sprintf("✅ Added %s to the shop for %d coins", item.Name, price))
}

// HandleShopRemove handles the admin command /shop_remove <id>.
func (h *ShopHandler) HandleShopRemove(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /shop_remove <item_id>")
	}

	if err := h.economy.RemoveShopItem(context.Background(), guildID(c), args[0]); err != nil {
		if errors.Is(err, economy.ErrItemNotFound) {
			return c.Reply("❌ No such item in the shop")
		}
		return c.Reply("❌ Could not remove the item, try again later")
	}
	return c.Reply("✅ Item removed from the shop")
}
