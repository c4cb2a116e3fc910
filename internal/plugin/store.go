package plugin

import (
	"log/slog"
	"sync"
)

// Store is the process-wide map from workspace to its current plugin list.
// Lists are replaced wholesale by discovery; individual entries are never
// mutated in place.
type Store struct {
	mu    sync.RWMutex
	lists map[string][]Plugin
	log   *slog.Logger
}

// NewStore creates an empty store.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		lists: make(map[string][]Plugin),
		log:   log,
	}
}

// Set replaces the plugin list for a workspace.
func (s *Store) Set(workspace string, list []Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[workspace] = list
}

// Get returns the current plugin list for a workspace, hidden entries
// included. The returned slice must be treated as immutable.
func (s *Store) Get(workspace string) []Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists[workspace]
}

// Visible returns the non-hidden plugins for a workspace.
func (s *Store) Visible(workspace string) []Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Plugin
	for _, p := range s.lists[workspace] {
		if !p.Hidden {
			result = append(result, p)
		}
	}
	return result
}

// FindOne returns the plugin with the given id for a workspace.
// A miss is logged but not an error.
func (s *Store) FindOne(id, workspace string) (Plugin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.lists[workspace] {
		if p.ID == id {
			return p, true
		}
	}
	s.log.Warn("plugin not found", "id", id, "workspace", workspace)
	return Plugin{}, false
}

// Forget drops the plugin list for a workspace.
func (s *Store) Forget(workspace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, workspace)
}
