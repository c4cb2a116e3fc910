// Package extension owns the per-workspace plugin API runtime: the
// extension context every loaded plugin module registers into, the reset
// protocol that rebuilds it, and the hook and action dispatchers that
// invoke registrations on behalf of the host.
package extension

import (
	"sync"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/project"
	"github.com/dshills/workbench/internal/registry"
)

// Host lifecycle hook ids.
const (
	// HookProjectOpen fires when the resolved project changed across a
	// reset. Args: "project", "previousProject".
	HookProjectOpen = "projectOpen"

	// HookPluginReload fires when a reset rebuilt the runtime for the same
	// project. Args: "project".
	HookPluginReload = "pluginReload"
)

// HookHandler handles a lifecycle hook invocation.
type HookHandler func(args map[string]any)

// ActionHandler handles one action dispatch. The returned value and error
// are accumulated position-aligned with the other handlers for the action.
type ActionHandler func(params map[string]any) (any, error)

// Context is one workspace's extension context: the live set of
// registrations contributed by every loaded plugin module. It is created
// fresh by each successful reset and fully discarded before a replacement
// exists for the same workspace key.
type Context struct {
	mu sync.Mutex

	workspace string
	project   *project.Project
	light     bool
	plugins   []plugin.Plugin

	// loading is the id of the plugin whose module is currently being
	// invoked; contributions made during invocation are attributed to it.
	loading string

	hooks   map[string][]HookHandler
	actions map[string][]ActionHandler

	views        []registry.View
	widgets      []registry.Widget
	clientAddons []registry.ClientAddon

	// unsubs reverses bus subscriptions (IPC handlers) on teardown.
	unsubs []func()

	// closers releases loader-owned resources (script runtimes) on
	// teardown.
	closers []func()

	bus *event.Bus
}

// NewContext creates an empty context for a workspace. The runtime builds
// one per reset; module loaders receive it during Load.
func NewContext(workspace string, proj *project.Project, light bool, plugins []plugin.Plugin, bus *event.Bus) *Context {
	return &Context{
		workspace: workspace,
		project:   proj,
		light:     light,
		plugins:   plugins,
		hooks:     make(map[string][]HookHandler),
		actions:   make(map[string][]ActionHandler),
		bus:       bus,
	}
}

// Workspace returns the workspace path this context belongs to.
func (c *Context) Workspace() string { return c.workspace }

// Project returns the project the context is bound to.
func (c *Context) Project() *project.Project { return c.project }

// Light reports whether the context was built in light mode.
func (c *Context) Light() bool { return c.light }

// Plugins returns the plugin list snapshot the context was built from.
func (c *Context) Plugins() []plugin.Plugin { return c.plugins }

// LoadingPlugin returns the id of the plugin currently being loaded, or "".
func (c *Context) LoadingPlugin() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Context) beginLoad(pluginID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = pluginID
}

func (c *Context) endLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = ""
}

// OnHook registers a handler for a lifecycle hook.
func (c *Context) OnHook(hookID string, h HookHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[hookID] = append(c.hooks[hookID], h)
}

// OnAction registers a handler for an action.
func (c *Context) OnAction(actionID string, h ActionHandler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[actionID] = append(c.actions[actionID], h)
}

// OnIPC subscribes to a bus channel on behalf of the loading plugin.
// The subscription is reversed when the context is torn down.
func (c *Context) OnIPC(channel string, h event.Handler) {
	unsub := c.bus.Subscribe(channel, h)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubs = append(c.unsubs, unsub)
}

// AddView records a contributed view, attributed to the loading plugin.
func (c *Context) AddView(v registry.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v.Workspace = c.workspace
	v.PluginID = c.loading
	c.views = append(c.views, v)
}

// AddWidget records a contributed widget definition.
func (c *Context) AddWidget(w registry.Widget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.Workspace = c.workspace
	w.PluginID = c.loading
	c.widgets = append(c.widgets, w)
}

// AddClientAddon records a contributed client addon.
func (c *Context) AddClientAddon(a registry.ClientAddon) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.Workspace = c.workspace
	a.PluginID = c.loading
	c.clientAddons = append(c.clientAddons, a)
}

// Views returns a snapshot of the contributed views.
func (c *Context) Views() []registry.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]registry.View(nil), c.views...)
}

// Widgets returns a snapshot of the contributed widget definitions.
func (c *Context) Widgets() []registry.Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]registry.Widget(nil), c.widgets...)
}

// ClientAddons returns a snapshot of the contributed client addons.
func (c *Context) ClientAddons() []registry.ClientAddon {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]registry.ClientAddon(nil), c.clientAddons...)
}

// AddCloser registers a teardown function releasing loader resources.
func (c *Context) AddCloser(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// Teardown reverses bus subscriptions and releases loader resources.
func (c *Context) Teardown() {
	c.mu.Lock()
	unsubs := c.unsubs
	closers := c.closers
	c.unsubs = nil
	c.closers = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	for _, close := range closers {
		close()
	}
}

// CallHook invokes every handler for a hook id in registration order.
// Hook handlers are not recovered; a panic propagates to the caller.
func (c *Context) CallHook(hookID string, args map[string]any) {
	c.mu.Lock()
	handlers := make([]HookHandler, len(c.hooks[hookID]))
	copy(handlers, c.hooks[hookID])
	c.mu.Unlock()

	for _, h := range handlers {
		h(args)
	}
}

// ActionHandlers returns the ordered handler list for an action id.
func (c *Context) ActionHandlers(actionID string) []ActionHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	handlers := make([]ActionHandler, len(c.actions[actionID]))
	copy(handlers, c.actions[actionID])
	return handlers
}
