package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"minigame-bot/internal/pkg/lock"
)

// RedisStore keeps each document as a string value under
// "ledger:<collection>:<key>". Update is serialized by a process-local per-key
// mutex, same caveat as the document backend: single bot process per database.
type RedisStore struct {
	client *redis.Client
	locks  *lock.KeyLock
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", ErrUnavailable, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis ledger")
	return &RedisStore{client: client, locks: lock.NewKeyLock()}, nil
}

func redisKey(collection, key string) string {
	return "ledger:" + collection + ":" + key
}

// Get reads the document for a key. Returns ErrNotFound when absent.
func (s *RedisStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	doc, err := s.client.Get(ctx, redisKey(collection, key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return doc, nil
}

// Put writes the document for a key.
func (s *RedisStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	if err := s.client.Set(ctx, redisKey(collection, key), doc, 0).Err(); err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return nil
}

// Update runs a read-modify-write cycle under a process-local key lock.
func (s *RedisStore) Update(ctx context.Context, collection, key string, fn func(cur []byte) ([]byte, error)) error {
	lk := collection + "/" + key
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)

	cur, err := s.Get(ctx, collection, key)
	if err != nil && err != ErrNotFound {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return s.Put(ctx, collection, key, next)
}

// List returns all documents in a collection whose key starts with prefix.
func (s *RedisStore) List(ctx context.Context, collection, prefix string) (map[string][]byte, error) {
	pattern := redisKey(collection, prefix) + "*"
	out := make(map[string][]byte)

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		key := strings.TrimPrefix(full, "ledger:"+collection+":")
		doc, err := s.client.Get(ctx, full).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list get %s: %v", ErrUnavailable, full, err)
		}
		out[key] = doc
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrUnavailable, collection, err)
	}
	return out, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
