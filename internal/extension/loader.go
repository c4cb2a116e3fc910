package extension

import (
	"context"
	"errors"
)

// Module loading errors.
var (
	// ErrNotInvocable is returned when a plugin module resolves but its
	// loaded value is not a function of the extension API.
	ErrNotInvocable = errors.New("plugin module is not invocable")
)

// ModuleLoader loads one kind of plugin UI/API module. The mechanism is
// swappable: the runtime only depends on this capability interface, never
// on a concrete script engine.
type ModuleLoader interface {
	// Resolve returns the loadable module path inside a plugin package
	// directory, and whether one exists. Absence is not an error: plugin
	// modules are optional contributions.
	Resolve(dir string) (string, bool)

	// Matches reports whether this loader handles a standalone module
	// file, judged by its name.
	Matches(path string) bool

	// Load evaluates the module at path and invokes it with the extension
	// context. Returns ErrNotInvocable (possibly wrapped) when the module
	// loads but does not produce a callable entry point. Resources that
	// must outlive Load (script runtimes backing registered handlers) are
	// attached to the context via AddCloser.
	Load(ctx context.Context, path string, ec *Context) error

	// Invalidate drops any cached compilation for a module path, forcing
	// the next Load to re-read it from disk.
	Invalidate(path string)
}
