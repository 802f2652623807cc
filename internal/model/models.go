// Package model defines the persisted record types for the mini-game bot.
// Records are stored as JSON documents in the ledger store; every field has an
// explicit default applied at decode time via Normalize, so readers never have
// to guess what an absent field means.
package model

// ItemType categorizes shop and inventory items.
type ItemType string

const (
	ItemTypeRole    ItemType = "role"
	ItemTypeLootbox ItemType = "lootbox"
	ItemTypeBooster ItemType = "booster"
	ItemTypeCustom  ItemType = "custom"
)

// EconomyRecord holds one player's economy state within a guild.
// Keyed by "<guild_id>_<player_id>" in the economy collection.
type EconomyRecord struct {
	Balance     int64           `json:"balance"`
	Inventory   []ItemInstance  `json:"inventory"`
	LastDaily   int64           `json:"last_daily"`
	DailyStreak int             `json:"daily_streak"`
	LastWork    int64           `json:"last_work"`
	Boosters    []ActiveBooster `json:"boosters"`
}

// Normalize applies defaults for absent fields and enforces the non-negative
// balance invariant on records written by older versions.
func (r *EconomyRecord) Normalize() {
	if r.Balance < 0 {
		r.Balance = 0
	}
	if r.Inventory == nil {
		r.Inventory = []ItemInstance{}
	}
	if r.Boosters == nil {
		r.Boosters = []ActiveBooster{}
	}
	if r.DailyStreak < 0 {
		r.DailyStreak = 0
	}
}

// ActiveBoosterFor returns the active, unexpired booster for an effect key,
// or nil. At most one booster per effect is active at a time.
func (r *EconomyRecord) ActiveBoosterFor(effect string, now int64) *ActiveBooster {
	for i := range r.Boosters {
		b := &r.Boosters[i]
		if b.Active && b.Effect == effect && b.ExpiresAt > now {
			return b
		}
	}
	return nil
}

// ItemInstance is one owned copy of an item. Gifting moves the instance to the
// recipient's inventory and refreshes AcquiredAt.
type ItemInstance struct {
	ID         string   `json:"id"`
	ItemID     string   `json:"item_id"`
	Name       string   `json:"name"`
	Emoji      string   `json:"emoji"`
	Type       ItemType `json:"type"`
	AcquiredAt int64    `json:"acquired_at"`
}

// ActiveBooster is a time-limited reward multiplier.
type ActiveBooster struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Effect     string  `json:"effect"`
	Multiplier float64 `json:"multiplier"`
	ExpiresAt  int64   `json:"expires_at"`
	Active     bool    `json:"active"`
}

// PlayerStats holds one player's cumulative counters for a game. Counter names
// vary per game (wins, losses, ties, games, best_score, ...) so they live in a
// map rather than fixed columns.
type PlayerStats struct {
	Counters map[string]int64 `json:"counters"`
}

// GameStatsRecord maps player IDs to their stats for one (game, guild) pair.
// Keyed by "<game>_<guild_id>" in the games collection.
type GameStatsRecord struct {
	Players map[string]PlayerStats `json:"players"`
}

// Normalize applies defaults for absent fields.
func (r *GameStatsRecord) Normalize() {
	if r.Players == nil {
		r.Players = map[string]PlayerStats{}
	}
}

// ShopItem is one purchasable item definition in a guild's catalog.
// Payload carries type-specific data (role id, lootbox reward table, booster
// effect and duration).
type ShopItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Emoji       string         `json:"emoji"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Type        ItemType       `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// ShopCatalog is the ordered list of items for sale in a guild.
// Keyed by "<guild_id>" in the shops collection.
type ShopCatalog struct {
	Items []ShopItem `json:"items"`
}

// Normalize applies defaults for absent fields.
func (c *ShopCatalog) Normalize() {
	if c.Items == nil {
		c.Items = []ShopItem{}
	}
}

// Find returns the catalog item with the given id.
func (c *ShopCatalog) Find(id string) (ShopItem, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ShopItem{}, false
}
