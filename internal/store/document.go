package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"minigame-bot/internal/pkg/lock"
)

// DocumentStore persists one JSON file per key under
// <dir>/<collection>/<key>.json. A per-key mutex serializes Update so
// concurrent read-modify-write cycles against the same record cannot drop an
// update.
//
// The lock table is process-local: running two bot processes against the same
// data directory is not supported. Use the Postgres backend for that.
type DocumentStore struct {
	dir   string
	locks *lock.KeyLock
}

// NewDocumentStore creates the data directory if needed and returns the store.
func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data dir: %v", ErrUnavailable, err)
	}
	return &DocumentStore{dir: dir, locks: lock.NewKeyLock()}, nil
}

func (s *DocumentStore) path(collection, key string) string {
	return filepath.Join(s.dir, collection, key+".json")
}

func (s *DocumentStore) lockKey(collection, key string) string {
	return collection + "/" + key
}

// Get reads the document for a key. Returns ErrNotFound when absent.
func (s *DocumentStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	lk := s.lockKey(collection, key)
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)
	return s.read(collection, key)
}

func (s *DocumentStore) read(collection, key string) ([]byte, error) {
	doc, err := os.ReadFile(s.path(collection, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	if !json.Valid(doc) {
		// A torn or hand-edited file; treat as absent rather than poisoning
		// every reader.
		log.Error().Str("collection", collection).Str("key", key).Msg("Corrupt document, treating as absent")
		return nil, ErrNotFound
	}
	return doc, nil
}

// Put writes the document for a key, replacing any existing one.
func (s *DocumentStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	lk := s.lockKey(collection, key)
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)
	return s.write(collection, key, doc)
}

func (s *DocumentStore) write(collection, key string, doc []byte) error {
	dir := filepath.Join(s.dir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrUnavailable, dir, err)
	}
	// Write-then-rename so a crash mid-write never leaves a torn document.
	tmp := s.path(collection, key) + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	if err := os.Rename(tmp, s.path(collection, key)); err != nil {
		return fmt.Errorf("%w: renaming %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return nil
}

// Update runs a read-modify-write cycle under the key's lock.
func (s *DocumentStore) Update(ctx context.Context, collection, key string, fn func(cur []byte) ([]byte, error)) error {
	lk := s.lockKey(collection, key)
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)

	cur, err := s.read(collection, key)
	if err != nil && err != ErrNotFound {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return s.write(collection, key, next)
}

// List returns all documents in a collection whose key starts with prefix.
func (s *DocumentStore) List(ctx context.Context, collection, prefix string) (map[string][]byte, error) {
	dir := filepath.Join(s.dir, collection)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrUnavailable, collection, err)
	}

	out := make(map[string][]byte)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		doc, err := s.Get(ctx, collection, key)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = doc
	}
	return out, nil
}

// Close is a no-op for the document backend.
func (s *DocumentStore) Close() error { return nil }
