// Package project tracks the projects known to the workbench and which one
// is currently open. The plugin runtime resolves a workspace path to its
// owning project through the Registry interface; the in-memory
// implementation here is the process default.
package project

import (
	"path/filepath"
	"strings"
)

// Type classifies a project for plugin-system compatibility.
type Type string

// Project types.
const (
	// TypeWorkbench is a project created or managed by the workbench.
	// Only workbench projects get a plugin runtime.
	TypeWorkbench Type = "workbench"

	// TypeForeign is a recognized project that the plugin system does not
	// manage (for example, one imported for browsing only).
	TypeForeign Type = "foreign"
)

// Project is a workspace known to the workbench.
type Project struct {
	// ID uniquely identifies the project across the process.
	ID string

	// Name is the display name.
	Name string

	// Path is the absolute workspace path.
	Path string

	// Type gates plugin-system compatibility.
	Type Type

	// Favorite marks the project as pinned in the UI.
	Favorite bool
}

// Contains reports whether the given path is the project root or inside it.
func (p *Project) Contains(path string) bool {
	if p.Path == path {
		return true
	}
	rel, err := filepath.Rel(p.Path, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// Registry resolves projects for the plugin runtime.
// Implementations must be safe for concurrent use.
type Registry interface {
	// FindByPath returns the project owning the given workspace path,
	// or nil if no known project contains it.
	FindByPath(path string) *Project

	// Current returns the currently open project, or nil.
	Current() *Project

	// Last returns the project that was open before the current one, or nil.
	Last() *Project
}
