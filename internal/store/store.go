// Package store provides the ledger persistence layer: keyed JSON documents
// grouped into collections, with interchangeable backends (flat files,
// PostgreSQL, Redis).
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names. The layout mirrors the bot's logical state:
// economy records per (guild, player), game stats per (game, guild), and one
// shop catalog per guild.
const (
	CollectionEconomy = "economy"
	CollectionGames   = "games"
	CollectionShops   = "shops"
)

// Common errors for store operations.
var (
	// ErrNotFound is returned by Get when no document exists for the key.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps backend failures; callers report it generically
	// and abort without partial writes.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the ledger persistence contract.
//
// Update is the only safe way to do a read-modify-write: the backend
// guarantees that two concurrent Update calls for the same key are serialized
// and neither overwrites the other's result. fn receives the current document
// (nil when absent) and returns the replacement.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Put(ctx context.Context, collection, key string, doc []byte) error
	Update(ctx context.Context, collection, key string, fn func(cur []byte) ([]byte, error)) error
	// List returns all documents in a collection whose key starts with prefix.
	List(ctx context.Context, collection, prefix string) (map[string][]byte, error)
	Close() error
}

// EconomyKey builds the economy collection key for a (guild, player) pair.
func EconomyKey(guildID, playerID int64) string {
	return fmt.Sprintf("%d_%d", guildID, playerID)
}

// GuildPrefix builds the key prefix covering every player of a guild.
func GuildPrefix(guildID int64) string {
	return fmt.Sprintf("%d_", guildID)
}

// GameKey builds the games collection key for a (game, guild) pair.
func GameKey(game string, guildID int64) string {
	return fmt.Sprintf("%s_%d", game, guildID)
}

// ShopKey builds the shops collection key for a guild.
func ShopKey(guildID int64) string {
	return fmt.Sprintf("%d", guildID)
}
