package economy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"minigame-bot/internal/model"
)

// Inventory errors.
var (
	ErrItemNotOwned  = errors.New("item not in inventory")
	ErrItemNotUsable = errors.New("item cannot be used directly")
	ErrBoosterActive = errors.New("a booster for this effect is already active")
)

// Inventory returns a player's owned items and boosters.
func (e *Engine) Inventory(ctx context.Context, guildID, playerID int64) ([]model.ItemInstance, []model.ActiveBooster, error) {
	rec, err := e.Record(ctx, guildID, playerID)
	if err != nil {
		return nil, nil, err
	}
	return rec.Inventory, rec.Boosters, nil
}

// findInstance matches by instance id first, then by catalog item id, both
// case-insensitive. Commands usually pass the shop item id.
func findInstance(inv []model.ItemInstance, id string) int {
	for i, it := range inv {
		if strings.EqualFold(it.ID, id) {
			return i
		}
	}
	for i, it := range inv {
		if strings.EqualFold(it.ItemID, id) {
			return i
		}
	}
	return -1
}

// UseResult describes the effect of using an item.
type UseResult struct {
	Item    model.ItemInstance
	Coins   int64 // lootbox payout
	Booster *model.ActiveBooster
	Balance int64
}

// UseItem consumes an inventory item. Lootboxes pay out coins from the
// catalog's reward range. Boosters activate for their effect; if a booster for
// the same effect is already active the call fails with ErrBoosterActive
// unless confirmReplace is set, in which case the old booster deactivates.
// Role and custom items are not usable.
func (e *Engine) UseItem(ctx context.Context, guildID, playerID int64, itemID string, confirmReplace bool, now time.Time) (*UseResult, error) {
	cat, err := e.Catalog(ctx, guildID)
	if err != nil {
		return nil, err
	}

	res := &UseResult{}
	_, err = e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		idx := findInstance(rec.Inventory, itemID)
		if idx < 0 {
			return ErrItemNotOwned
		}
		inst := rec.Inventory[idx]
		res.Item = inst

		def, _ := cat.Find(inst.ItemID)

		switch inst.Type {
		case model.ItemTypeLootbox:
			minCoins := payloadInt(def.Payload, "min_coins", 50)
			maxCoins := payloadInt(def.Payload, "max_coins", 300)
			res.Coins = e.randn(minCoins, maxCoins)
			rec.Balance += res.Coins

		case model.ItemTypeBooster:
			effect := payloadString(def.Payload, "effect", "daily")
			if rec.ActiveBoosterFor(effect, now.Unix()) != nil && !confirmReplace {
				return ErrBoosterActive
			}
			if def.ID == "" {
				def = model.ShopItem{ID: inst.ItemID, Name: inst.Name, Type: model.ItemTypeBooster}
			}
			activateBooster(rec, inst.ID, def, now)
			res.Booster = &rec.Boosters[len(rec.Boosters)-1]

		default:
			return ErrItemNotUsable
		}

		rec.Inventory = append(rec.Inventory[:idx], rec.Inventory[idx+1:]...)
		res.Balance = rec.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int64("guild_id", guildID).
		Int64("player_id", playerID).
		Str("item_id", res.Item.ItemID).
		Int64("coins", res.Coins).
		Msg("Inventory item used")
	return res, nil
}

// Gift moves an inventory item to another player. The removal commits first;
// if handing it to the recipient fails the item is returned to the sender.
// AcquiredAt is refreshed on the recipient's copy.
func (e *Engine) Gift(ctx context.Context, guildID, fromID, toID int64, itemID string, now time.Time) (*model.ItemInstance, error) {
	if fromID == toID {
		return nil, ErrSelfTransfer
	}

	var gifted model.ItemInstance
	_, err := e.updateRecord(ctx, guildID, fromID, func(rec *model.EconomyRecord) error {
		idx := findInstance(rec.Inventory, itemID)
		if idx < 0 {
			return ErrItemNotOwned
		}
		gifted = rec.Inventory[idx]
		rec.Inventory = append(rec.Inventory[:idx], rec.Inventory[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	gifted.AcquiredAt = now.Unix()
	_, err = e.updateRecord(ctx, guildID, toID, func(rec *model.EconomyRecord) error {
		rec.Inventory = append(rec.Inventory, gifted)
		return nil
	})
	if err != nil {
		// Hand the item back to the sender.
		if _, rbErr := e.updateRecord(ctx, guildID, fromID, func(rec *model.EconomyRecord) error {
			rec.Inventory = append(rec.Inventory, gifted)
			return nil
		}); rbErr != nil {
			log.Error().Err(rbErr).
				Int64("guild_id", guildID).
				Int64("from", fromID).
				Str("item", gifted.ID).
				Msg("Gift rollback failed")
		}
		return nil, err
	}
	return &gifted, nil
}

// SweepExpiredBoosters deactivates boosters past their expiry for one player.
// Returns the number of boosters removed.
func (e *Engine) SweepExpiredBoosters(ctx context.Context, guildID, playerID int64, now time.Time) (int, error) {
	removed := 0
	_, err := e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		kept := rec.Boosters[:0]
		for _, b := range rec.Boosters {
			if b.Active && b.ExpiresAt <= now.Unix() {
				removed++
				continue
			}
			kept = append(kept, b)
		}
		rec.Boosters = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
