package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyActive means a player or channel already has a running game.
var ErrAlreadyActive = errors.New("a game is already active")

// SessionKey identifies who or what a session occupies. Single-player games
// occupy their player; two-player games occupy the channel so only one
// challenge runs per chat.
type SessionKey string

// PlayerKey returns the session key for a player.
func PlayerKey(playerID int64) SessionKey {
	return SessionKey(fmt.Sprintf("player:%d", playerID))
}

// ChannelKey returns the session key for a chat.
func ChannelKey(chatID int64) SessionKey {
	return SessionKey(fmt.Sprintf("channel:%d", chatID))
}

// Session is one running game occupying a set of keys.
type Session struct {
	ID        string
	Game      string
	Keys      []SessionKey
	StartedAt time.Time
}

// SessionRegistry tracks active games. Start is an atomic check-then-insert
// over all keys under one mutex, so two concurrent starts for the same player
// or channel cannot both succeed.
type SessionRegistry struct {
	mu    sync.Mutex
	byKey map[SessionKey]*Session
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{byKey: make(map[SessionKey]*Session)}
}

// Start claims the given keys for a new session. If any key is busy it fails
// with ErrAlreadyActive and claims nothing.
func (r *SessionRegistry) Start(gameCommand string, now time.Time, keys ...SessionKey) (*Session, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("session needs at least one key")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if s, ok := r.byKey[k]; ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrAlreadyActive, k, s.Game)
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Game:      gameCommand,
		Keys:      keys,
		StartedAt: now,
	}
	for _, k := range keys {
		r.byKey[k] = s
	}
	return s, nil
}

// End releases a session's keys. Releasing an already-ended session is a
// no-op.
func (r *SessionRegistry) End(s *Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range s.Keys {
		if cur, ok := r.byKey[k]; ok && cur.ID == s.ID {
			delete(r.byKey, k)
		}
	}
}

// Active returns the session occupying a key, if any.
func (r *SessionRegistry) Active(key SessionKey) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byKey[key]
	return s, ok
}

// Len returns the number of distinct active sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	for _, s := range r.byKey {
		seen[s.ID] = struct{}{}
	}
	return len(seen)
}

// SweepStale releases sessions older than maxAge and returns how many were
// removed. Covers runners that died without calling End.
func (r *SessionRegistry) SweepStale(maxAge time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale := make(map[string]*Session)
	for _, s := range r.byKey {
		if now.Sub(s.StartedAt) > maxAge {
			stale[s.ID] = s
		}
	}
	for _, s := range stale {
		for _, k := range s.Keys {
			if cur, ok := r.byKey[k]; ok && cur.ID == s.ID {
				delete(r.byKey, k)
			}
		}
		log.Warn().Str("game", s.Game).Str("session_id", s.ID).Msg("Released stale game session")
	}
	return len(stale)
}
