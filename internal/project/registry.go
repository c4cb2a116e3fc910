package project

import (
	"sort"
	"sync"
)

// MemoryRegistry is the in-process Registry implementation.
// It tracks known projects, the currently open project, and the previously
// open project.
type MemoryRegistry struct {
	mu       sync.RWMutex
	projects map[string]*Project
	current  string
	last     string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		projects: make(map[string]*Project),
	}
}

// Add registers a project. An existing project with the same ID is replaced.
func (r *MemoryRegistry) Add(p *Project) {
	if p == nil || p.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
}

// Remove forgets a project. Removing the current project closes it.
func (r *MemoryRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	if r.current == id {
		r.current = ""
	}
	if r.last == id {
		r.last = ""
	}
}

// Open makes a project the current one. The previously current project
// becomes the last project.
func (r *MemoryRegistry) Open(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return false
	}
	if r.current != "" && r.current != id {
		r.last = r.current
	}
	r.current = id
	return true
}

// Close clears the current project.
func (r *MemoryRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != "" {
		r.last = r.current
		r.current = ""
	}
}

// Get returns a project by ID.
func (r *MemoryRegistry) Get(id string) *Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects[id]
}

// List returns all known projects sorted by name.
func (r *MemoryRegistry) List() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// FindByPath implements Registry.
func (r *MemoryRegistry) FindByPath(path string) *Project {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Exact root match wins over containment.
	for _, p := range r.projects {
		if p.Path == path {
			return p
		}
	}
	for _, p := range r.projects {
		if p.Contains(path) {
			return p
		}
	}
	return nil
}

// Current implements Registry.
func (r *MemoryRegistry) Current() *Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == "" {
		return nil
	}
	return r.projects[r.current]
}

// Last implements Registry.
func (r *MemoryRegistry) Last() *Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == "" {
		return nil
	}
	return r.projects[r.last]
}
