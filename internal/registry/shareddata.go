package registry

import "sync"

// SharedDataWatcher observes changes to a shared data key.
type SharedDataWatcher func(key string, value any)

// SharedData stores project-scoped key/value data that plugins and the UI
// both read. Watchers are tracked per project so the reset protocol can
// stop a discarded context's watches in one call.
type SharedData struct {
	mu       sync.RWMutex
	data     map[string]map[string]any               // projectID -> key -> value
	watchers map[string]map[string][]SharedDataWatcher // projectID -> workspace -> watchers
}

// NewSharedData creates an empty shared data store.
func NewSharedData() *SharedData {
	return &SharedData{
		data:     make(map[string]map[string]any),
		watchers: make(map[string]map[string][]SharedDataWatcher),
	}
}

// Set stores a value and notifies the project's watchers.
func (s *SharedData) Set(projectID, key string, value any) {
	s.mu.Lock()
	if s.data[projectID] == nil {
		s.data[projectID] = make(map[string]any)
	}
	s.data[projectID][key] = value

	var notify []SharedDataWatcher
	for _, ws := range s.watchers[projectID] {
		notify = append(notify, ws...)
	}
	s.mu.Unlock()

	for _, w := range notify {
		w(key, value)
	}
}

// Get returns a stored value.
func (s *SharedData) Get(projectID, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[projectID][key]
	return v, ok
}

// Watch registers a watcher for a project, attributed to a workspace.
func (s *SharedData) Watch(projectID, workspace string, w SharedDataWatcher) {
	if w == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchers[projectID] == nil {
		s.watchers[projectID] = make(map[string][]SharedDataWatcher)
	}
	s.watchers[projectID][workspace] = append(s.watchers[projectID][workspace], w)
}

// StopWatching removes every watcher a workspace registered for a project.
// Returns the number of watchers removed.
func (s *SharedData) StopWatching(projectID, workspace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.watchers[projectID]
	if ws == nil {
		return 0
	}
	removed := len(ws[workspace])
	delete(ws, workspace)
	return removed
}
