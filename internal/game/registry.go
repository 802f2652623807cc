package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages game registration and lookup.
// It provides a thread-safe way to register and retrieve games by their command.
type Registry struct {
	games map[string]Descriptor
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Descriptor),
	}
}

// Register adds a game to the registry.
// If a game with the same command already exists, it will be replaced.
func (r *Registry) Register(d Descriptor) error {
	if d.Command == "" {
		return fmt.Errorf("game command cannot be empty")
	}
	if d.New == nil {
		return fmt.Errorf("game %q has no factory", d.Command)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[d.Command] = d
	return nil
}

// Get retrieves a game by its command.
// Returns the descriptor and true if found, a zero value and false otherwise.
func (r *Registry) Get(command string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.games[command]
	return d, ok
}

// List returns all registered games sorted by command.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Descriptor, 0, len(r.games))
	for _, d := range r.games {
		games = append(games, d)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Command < games[j].Command })
	return games
}

// Commands returns all registered game commands sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.games))
	for cmd := range r.games {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Unregister removes a game from the registry by its command.
// Returns true if the game was found and removed, false otherwise.
func (r *Registry) Unregister(command string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[command]; ok {
		delete(r.games, command)
		return true
	}
	return false
}
