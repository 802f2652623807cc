package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"minigame-bot/internal/model"
	"minigame-bot/internal/store"
)

// Shop errors.
var (
	ErrItemNotFound = errors.New("item not found in shop")
	ErrItemExists   = errors.New("item id already exists in shop")
)

// defaultCatalog is the stock item set seeded into a guild's shop on first
// access. Admins can add and remove items afterwards.
func defaultCatalog() *model.ShopCatalog {
	return &model.ShopCatalog{Items: []model.ShopItem{
		{ID: "color_red", Name: "Red Color Role", Emoji: "🔴", Description: "A red color role to stand out in the chat.", Price: 500, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0xFF0000}},
		{ID: "color_blue", Name: "Blue Color Role", Emoji: "🔵", Description: "A blue color role to stand out in the chat.", Price: 500, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0x0000FF}},
		{ID: "color_green", Name: "Green Color Role", Emoji: "🟢", Description: "A green color role to stand out in the chat.", Price: 500, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0x00FF00}},
		{ID: "color_purple", Name: "Purple Color Role", Emoji: "🟣", Description: "A purple color role to stand out in the chat.", Price: 500, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0x800080}},
		{ID: "color_gold", Name: "Gold Color Role", Emoji: "🟡", Description: "A prestigious gold color role.", Price: 1000, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0xFFD700}},
		{ID: "vip", Name: "VIP Role", Emoji: "👑", Description: "A special VIP role with perks.", Price: 5000, Type: model.ItemTypeRole, Payload: map[string]any{"role_color": 0xFFD700}},
		{ID: "lootbox_common", Name: "Common Lootbox", Emoji: "📦", Description: "A common lootbox with random coins.", Price: 200, Type: model.ItemTypeLootbox, Payload: map[string]any{"min_coins": 50, "max_coins": 300, "rarity": "common"}},
		{ID: "lootbox_rare", Name: "Rare Lootbox", Emoji: "🎁", Description: "A rare lootbox with better coins.", Price: 500, Type: model.ItemTypeLootbox, Payload: map[string]any{"min_coins": 200, "max_coins": 800, "rarity": "rare"}},
		{ID: "lootbox_epic", Name: "Epic Lootbox", Emoji: "💎", Description: "An epic lootbox with valuable coins.", Price: 1000, Type: model.ItemTypeLootbox, Payload: map[string]any{"min_coins": 500, "max_coins": 2000, "rarity": "epic"}},
		{ID: "daily_booster", Name: "Daily Reward Booster", Emoji: "🚀", Description: "Doubles your daily reward for 7 days.", Price: 2000, Type: model.ItemTypeBooster, Payload: map[string]any{"duration": 7, "effect": "daily", "multiplier": 2}},
	}}
}

// Catalog returns the guild's shop catalog, seeding the defaults on first
// access.
func (e *Engine) Catalog(ctx context.Context, guildID int64) (*model.ShopCatalog, error) {
	doc, err := e.store.Get(ctx, store.CollectionShops, store.ShopKey(guildID))
	if errors.Is(err, store.ErrNotFound) {
		cat := defaultCatalog()
		seeded, mErr := json.Marshal(cat)
		if mErr != nil {
			return nil, mErr
		}
		if pErr := e.store.Put(ctx, store.CollectionShops, store.ShopKey(guildID), seeded); pErr != nil {
			return nil, pErr
		}
		log.Info().Int64("guild_id", guildID).Msg("Seeded default shop catalog")
		return cat, nil
	}
	if err != nil {
		return nil, err
	}

	var cat model.ShopCatalog
	if err := json.Unmarshal(doc, &cat); err != nil {
		return nil, fmt.Errorf("decoding shop catalog: %w", err)
	}
	cat.Normalize()
	return &cat, nil
}

func (e *Engine) updateCatalog(ctx context.Context, guildID int64, fn func(cat *model.ShopCatalog) error) error {
	return e.store.Update(ctx, store.CollectionShops, store.ShopKey(guildID), func(cur []byte) ([]byte, error) {
		cat := defaultCatalog()
		if cur != nil {
			cat = &model.ShopCatalog{}
			if err := json.Unmarshal(cur, cat); err != nil {
				return nil, fmt.Errorf("decoding shop catalog: %w", err)
			}
			cat.Normalize()
		}
		if err := fn(cat); err != nil {
			return nil, err
		}
		return json.Marshal(cat)
	})
}

// AddShopItem adds a custom item to the guild catalog. Item ids are compared
// case-insensitively.
func (e *Engine) AddShopItem(ctx context.Context, guildID int64, item model.ShopItem) error {
	if item.Price <= 0 {
		return ErrInvalidAmount
	}
	if item.Type == "" {
		item.Type = model.ItemTypeCustom
	}
	return e.updateCatalog(ctx, guildID, func(cat *model.ShopCatalog) error {
		for _, it := range cat.Items {
			if strings.EqualFold(it.ID, item.ID) {
				return ErrItemExists
			}
		}
		cat.Items = append(cat.Items, item)
		return nil
	})
}

// RemoveShopItem removes an item from the guild catalog by id.
func (e *Engine) RemoveShopItem(ctx context.Context, guildID int64, itemID string) error {
	return e.updateCatalog(ctx, guildID, func(cat *model.ShopCatalog) error {
		for i, it := range cat.Items {
			if strings.EqualFold(it.ID, itemID) {
				cat.Items = append(cat.Items[:i], cat.Items[i+1:]...)
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// Buy purchases a catalog item. The debit and the inventory append happen in
// one record update, so a crash cannot take the coins without granting the
// item. Booster purchases activate immediately instead of going to inventory.
func (e *Engine) Buy(ctx context.Context, guildID, playerID int64, itemID string, now time.Time) (*model.ItemInstance, error) {
	cat, err := e.Catalog(ctx, guildID)
	if err != nil {
		return nil, err
	}

	var item model.ShopItem
	found := false
	for _, it := range cat.Items {
		if strings.EqualFold(it.ID, itemID) {
			item, found = it, true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	inst := model.ItemInstance{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		Name:       item.Name,
		Emoji:      item.Emoji,
		Type:       item.Type,
		AcquiredAt: now.Unix(),
	}

	_, err = e.updateRecord(ctx, guildID, playerID, func(rec *model.EconomyRecord) error {
		if rec.Balance < item.Price {
			return ErrInsufficientFunds
		}
		rec.Balance -= item.Price
		if item.Type == model.ItemTypeBooster {
			// A purchase replaces a same-effect booster without asking;
			// only UseItem on an inventory item requires confirmation.
			activateBooster(rec, inst.ID, item, now)
		} else {
			rec.Inventory = append(rec.Inventory, inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int64("guild_id", guildID).
		Int64("player_id", playerID).
		Str("item_id", item.ID).
		Int64("price", item.Price).
		Msg("Shop purchase")
	return &inst, nil
}

// activateBooster replaces any active booster for the same effect and appends
// the new one.
func activateBooster(rec *model.EconomyRecord, instID string, item model.ShopItem, now time.Time) {
	effect := payloadString(item.Payload, "effect", "daily")
	for i := range rec.Boosters {
		if rec.Boosters[i].Active && rec.Boosters[i].Effect == effect {
			rec.Boosters[i].Active = false
		}
	}
	days := payloadInt(item.Payload, "duration", 7)
	rec.Boosters = append(rec.Boosters, model.ActiveBooster{
		ID:         instID,
		Name:       item.Name,
		Effect:     effect,
		Multiplier: payloadFloat(item.Payload, "multiplier", 1),
		ExpiresAt:  now.Unix() + days*86400,
		Active:     true,
	})
}

// Payload values survive a JSON round trip as float64, so the accessors accept
// both numeric representations.

func payloadString(p map[string]any, key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func payloadInt(p map[string]any, key string, def int64) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return def
}

func payloadFloat(p map[string]any, key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}
