// Package registry holds the contribution registries fed by loaded plugin
// modules: views, dashboard widgets, client addons, and suggestions. Each
// registry keys its entries by workspace so the reset protocol can reverse
// everything a discarded extension context contributed.
package registry

import "sync"

// View is a UI view contributed by a plugin.
type View struct {
	ID        string
	Name      string
	Icon      string
	Component string
	PluginID  string
	Workspace string
}

// Widget is a dashboard widget definition contributed by a plugin.
type Widget struct {
	ID          string
	Title       string
	Description string
	Component   string
	PluginID    string
	Workspace   string
}

// ClientAddon is a client-side addon descriptor contributed by a plugin.
type ClientAddon struct {
	ID        string
	URL       string
	PluginID  string
	Workspace string
}

// Suggestion is an actionable hint surfaced in the UI.
type Suggestion struct {
	ID        string
	Type      string
	Label     string
	Message   string
	Workspace string
}

// Views is the view registry.
type Views struct {
	mu    sync.RWMutex
	items []View
}

// NewViews creates an empty view registry.
func NewViews() *Views { return &Views{} }

// Add registers a view.
func (r *Views) Add(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

// Remove removes a view by ID within a workspace.
func (r *Views) Remove(workspace, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.items {
		if v.Workspace == workspace && v.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearWorkspace removes every view contributed for a workspace.
// Returns the number of views removed.
func (r *Views) ClearWorkspace(workspace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	removed := 0
	for _, v := range r.items {
		if v.Workspace == workspace {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	r.items = kept
	return removed
}

// List returns the views for a workspace in registration order.
func (r *Views) List(workspace string) []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []View
	for _, v := range r.items {
		if v.Workspace == workspace {
			result = append(result, v)
		}
	}
	return result
}

// Widgets is the widget-definition registry.
type Widgets struct {
	mu    sync.RWMutex
	items []Widget
}

// NewWidgets creates an empty widget registry.
func NewWidgets() *Widgets { return &Widgets{} }

// Add registers a widget definition.
func (r *Widgets) Add(w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, w)
}

// ClearWorkspace removes every widget registered for a workspace.
func (r *Widgets) ClearWorkspace(workspace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	removed := 0
	for _, w := range r.items {
		if w.Workspace == workspace {
			removed++
			continue
		}
		kept = append(kept, w)
	}
	r.items = kept
	return removed
}

// List returns the widget definitions for a workspace in registration order.
func (r *Widgets) List(workspace string) []Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Widget
	for _, w := range r.items {
		if w.Workspace == workspace {
			result = append(result, w)
		}
	}
	return result
}

// ClientAddons is the client addon registry.
type ClientAddons struct {
	mu    sync.RWMutex
	items []ClientAddon
}

// NewClientAddons creates an empty client addon registry.
func NewClientAddons() *ClientAddons { return &ClientAddons{} }

// Add registers a client addon.
func (r *ClientAddons) Add(a ClientAddon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, a)
}

// ClearWorkspace removes every addon registered for a workspace.
func (r *ClientAddons) ClearWorkspace(workspace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	removed := 0
	for _, a := range r.items {
		if a.Workspace == workspace {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.items = kept
	return removed
}

// List returns the addons for a workspace in registration order.
func (r *ClientAddons) List(workspace string) []ClientAddon {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []ClientAddon
	for _, a := range r.items {
		if a.Workspace == workspace {
			result = append(result, a)
		}
	}
	return result
}

// Suggestions is the suggestion registry.
type Suggestions struct {
	mu    sync.RWMutex
	items []Suggestion
}

// NewSuggestions creates an empty suggestion registry.
func NewSuggestions() *Suggestions { return &Suggestions{} }

// Add registers a suggestion.
func (r *Suggestions) Add(s Suggestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, s)
}

// ClearWorkspace removes every suggestion for a workspace.
func (r *Suggestions) ClearWorkspace(workspace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	removed := 0
	for _, s := range r.items {
		if s.Workspace == workspace {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.items = kept
	return removed
}

// List returns the suggestions for a workspace in registration order.
func (r *Suggestions) List(workspace string) []Suggestion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Suggestion
	for _, s := range r.items {
		if s.Workspace == workspace {
			result = append(result, s)
		}
	}
	return result
}
