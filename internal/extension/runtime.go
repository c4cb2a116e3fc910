package extension

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/manifest"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/project"
	"github.com/dshills/workbench/internal/registry"
)

// BuiltinPluginID identifies the host's built-in plugin module, loaded
// before any discovered plugin on every reset.
const BuiltinPluginID = "@workbench/builtin"

// Bus channels published by the runtime.
const (
	// ChannelViewOpen announces the view the UI should display.
	ChannelViewOpen = "view-open"

	// ChannelWidgetsLoad asks the widget subsystem to (re)load widgets for
	// a project.
	ChannelWidgetsLoad = "widgets-load"

	// ChannelLocales carries a plugin's locale resource bundle.
	ChannelLocales = "locales-added"
)

// Registries groups the external contribution registries the runtime
// applies loaded contributions to and tears them out of on reset.
type Registries struct {
	Views       *registry.Views
	Widgets     *registry.Widgets
	Addons      *registry.ClientAddons
	Suggestions *registry.Suggestions
	SharedData  *registry.SharedData
}

// NewRegistries creates a full set of empty registries.
func NewRegistries() Registries {
	return Registries{
		Views:       registry.NewViews(),
		Widgets:     registry.NewWidgets(),
		Addons:      registry.NewClientAddons(),
		Suggestions: registry.NewSuggestions(),
		SharedData:  registry.NewSharedData(),
	}
}

// Runtime owns the extension contexts for every workspace and implements
// the plugin API reset protocol. It is the single writer of the
// runtime-instance map.
type Runtime struct {
	mu       sync.RWMutex
	contexts map[string]*Context

	// openViews remembers the view currently open per workspace so a
	// reload can force a re-render.
	openViews map[string]string

	store     *plugin.Store
	manifests *manifest.Cache
	resolver  plugin.PathResolver
	loaders   []ModuleLoader
	regs      Registries
	bus       *event.Bus
	sched     *Scheduler
	log       *slog.Logger

	// projects is attached after construction; see AttachProjects.
	projects project.Registry

	// builtinDir holds the host's built-in plugin module.
	builtinDir string
}

// Config carries the runtime's dependencies.
type Config struct {
	Store      *plugin.Store
	Manifests  *manifest.Cache
	Resolver   plugin.PathResolver
	Loaders    []ModuleLoader
	Registries Registries
	Bus        *event.Bus
	Logger     *slog.Logger
	BuiltinDir string
}

// NewRuntime creates the runtime and starts its scheduler.
// The project registry is attached separately: the registry itself needs
// the runtime during its own initialization, so the cycle is broken with
// two-phase construction plus the next-tick deferral inside Reset.
func NewRuntime(cfg Config) *Runtime {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		contexts:   make(map[string]*Context),
		openViews:  make(map[string]string),
		store:      cfg.Store,
		manifests:  cfg.Manifests,
		resolver:   cfg.Resolver,
		loaders:    cfg.Loaders,
		regs:       cfg.Registries,
		bus:        cfg.Bus,
		sched:      NewScheduler(),
		log:        log,
		builtinDir: cfg.BuiltinDir,
	}
}

// AttachProjects wires in the project registry (second phase of
// initialization).
func (r *Runtime) AttachProjects(reg project.Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = reg
}

// Close stops the runtime's scheduler and tears down every context.
func (r *Runtime) Close() {
	r.mu.Lock()
	contexts := r.contexts
	r.contexts = make(map[string]*Context)
	r.mu.Unlock()

	for _, ec := range contexts {
		ec.Teardown()
	}
	r.sched.Close()
}

// Context returns the live extension context for a workspace, or nil.
func (r *Runtime) Context(workspace string) *Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contexts[workspace]
}

// SetOpenView records the view currently open for a workspace and
// announces it.
func (r *Runtime) SetOpenView(workspace, viewID string) {
	r.mu.Lock()
	if viewID == "" {
		delete(r.openViews, workspace)
	} else {
		r.openViews[workspace] = viewID
	}
	r.mu.Unlock()

	if viewID != "" {
		r.bus.Publish(ChannelViewOpen, ViewOpenPayload{Workspace: workspace, ViewID: viewID})
	}
}

// ViewOpenPayload is published on ChannelViewOpen.
type ViewOpenPayload struct {
	Workspace string
	ViewID    string
}

// CallHook invokes every handler registered for a hook in the workspace's
// context, in registration order, synchronously. No context means no-op.
func (r *Runtime) CallHook(hookID string, args map[string]any, workspace string) {
	ec := r.Context(workspace)
	if ec == nil {
		return
	}
	ec.CallHook(hookID, args)
}

// ReloadPluginModule re-invokes a single plugin's module against the
// existing context (no full reset) and applies any newly contributed
// views, widgets, and addons. Used by the invoke lifecycle operation.
func (r *Runtime) ReloadPluginModule(ctx context.Context, pluginID, workspace string) error {
	ec := r.Context(workspace)
	if ec == nil {
		return plugin.ErrNoRuntime
	}

	dir, ok := r.moduleDir(pluginID, workspace)
	if ok {
		for _, l := range r.loaders {
			if path, found := l.Resolve(dir); found {
				l.Invalidate(path)
			}
		}
	}

	before := contributionCounts(ec)
	r.runPluginAPI(ctx, pluginID, workspace, ec)
	r.applyContributionsSince(ec, before)
	return nil
}

type counts struct{ views, widgets, addons int }

func contributionCounts(ec *Context) counts {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return counts{views: len(ec.views), widgets: len(ec.widgets), addons: len(ec.clientAddons)}
}

// applyContributionsSince pushes contributions recorded after the given
// counts into the external registries.
func (r *Runtime) applyContributionsSince(ec *Context, since counts) {
	ec.mu.Lock()
	views := ec.views[since.views:]
	widgets := ec.widgets[since.widgets:]
	addons := ec.clientAddons[since.addons:]
	ec.mu.Unlock()

	for _, a := range addons {
		r.regs.Addons.Add(a)
	}
	for _, v := range views {
		r.regs.Views.Add(v)
	}
	for _, w := range widgets {
		r.regs.Widgets.Add(w)
	}
}

// moduleDir resolves the package directory holding a plugin's module.
func (r *Runtime) moduleDir(pluginID, workspace string) (string, bool) {
	if pluginID == BuiltinPluginID {
		if r.builtinDir == "" {
			return "", false
		}
		return r.builtinDir, true
	}

	baseDir := workspace
	if p, ok := r.store.FindOne(pluginID, workspace); ok {
		baseDir = p.BaseDir
	}
	return r.resolver.InstalledPath(pluginID, baseDir)
}

// runPluginAPI loads and invokes one plugin's UI/API module against the
// context, tolerating absence. One failing plugin must not prevent others
// from loading: every failure is reported, none propagate.
func (r *Runtime) runPluginAPI(ctx context.Context, pluginID, workspace string, ec *Context) {
	dir, ok := r.moduleDir(pluginID, workspace)
	if !ok {
		return
	}

	ec.beginLoad(pluginID)
	defer ec.endLoad()

	for _, l := range r.loaders {
		path, found := l.Resolve(dir)
		if !found {
			continue
		}
		if err := l.Load(ctx, path, ec); err != nil {
			if errors.Is(err, ErrNotInvocable) {
				r.log.Error("plugin module is not invocable", "plugin", pluginID, "path", path)
			} else {
				r.log.Error("plugin module failed", "plugin", pluginID, "path", path, "error", err)
			}
		}
		break
	}

	// Locale bundles load independently of module outcome; failures are
	// swallowed.
	r.loadLocales(pluginID, dir)
}

// runModuleFile invokes a workspace-local UI module file declared in the
// manifest.
func (r *Runtime) runModuleFile(ctx context.Context, path string, ec *Context) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	ec.beginLoad("workspace:" + filepath.Base(path))
	defer ec.endLoad()

	for _, l := range r.loaders {
		if !l.Matches(path) {
			continue
		}
		if err := l.Load(ctx, path, ec); err != nil {
			r.log.Error("workspace ui module failed", "path", path, "error", err)
		}
		return
	}
}

// loadLocales publishes a plugin's colocated locale bundle, if any.
func (r *Runtime) loadLocales(pluginID, dir string) {
	data, err := os.ReadFile(filepath.Join(dir, "locales.json"))
	if err != nil || !gjson.ValidBytes(data) {
		return
	}
	r.bus.Publish(ChannelLocales, LocalesPayload{PluginID: pluginID, Bundle: data})
}

// LocalesPayload is published on ChannelLocales.
type LocalesPayload struct {
	PluginID string
	Bundle   []byte
}

// joinModulePath resolves a manifest-declared module path against the
// manifest directory.
func joinModulePath(dir, mod string) string {
	if filepath.IsAbs(mod) {
		return mod
	}
	return filepath.Join(dir, filepath.FromSlash(mod))
}
