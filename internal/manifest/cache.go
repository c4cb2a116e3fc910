package manifest

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Cache is a per-workspace manifest cache with plugin-root redirection.
//
// Get resolves the manifest for a workspace, following a declared
// pluginRoot to the directory plugins are actually resolved from. Both the
// manifest and its resolution context are cached keyed by the workspace the
// caller asked for, so repeated discovery calls and the reset protocol see
// the same snapshot until Invalidate is called.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Manifest
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*Manifest),
	}
}

// Get returns the manifest for a workspace, reading it on first use.
func (c *Cache) Get(workspace string) (*Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.entries[workspace]; ok {
		return m, nil
	}

	m, err := Read(workspace)
	if err != nil {
		return nil, err
	}

	// Plugin-root redirection: re-resolve from the declared root but keep
	// the cache keyed by the workspace the caller asked for. A relative
	// root is anchored at the workspace, not the process working dir.
	if root := m.PluginRoot; root != "" {
		if !filepath.IsAbs(root) {
			root = filepath.Join(workspace, root)
		}
		if root != workspace {
			redirected, err := Read(root)
			if err != nil {
				return nil, fmt.Errorf("resolving plugin root %s: %w", root, err)
			}
			m = redirected
		}
	}

	c.entries[workspace] = m
	return m, nil
}

// Invalidate drops the cached manifest for a workspace.
func (c *Cache) Invalidate(workspace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, workspace)
}

// InvalidateAll drops every cached manifest.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Manifest)
}
