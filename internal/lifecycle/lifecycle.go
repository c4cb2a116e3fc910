// Package lifecycle implements the plugin lifecycle operations: install,
// uninstall, update, update-all, invoke, and the terminal finish-install
// transition. Every operation runs as a serialized progress task keyed by
// workspace, so at most one operation is in flight per workspace while
// operations on different workspaces proceed independently.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/manifest"
	"github.com/dshills/workbench/internal/pkgman"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/progress"
)

// ChannelNotifications carries user-facing operation notifications.
const ChannelNotifications = "notifications"

// Notification is published on ChannelNotifications after an operation
// completes.
type Notification struct {
	Message string
	Args    []string
}

// RuntimeOps is the slice of the extension runtime lifecycle operations
// depend on.
type RuntimeOps interface {
	ResetPluginAPI(ctx context.Context, workspace string, light bool) (bool, error)
	ReloadPluginModule(ctx context.Context, pluginID, workspace string) error
}

// Config carries the collaborators lifecycle operations are wired with.
type Config struct {
	Store     *plugin.Store
	State     *plugin.InstallationState
	Discovery *plugin.Discovery
	Runtime   RuntimeOps
	Manifests *manifest.Cache
	Manager   pkgman.Manager
	Resolver  pkgman.DirResolver
	Versions  *pkgman.Versions
	Reporter  *progress.Reporter
	Bus       *event.Bus
	Prompts   PromptCollector // may be nil

	// ScaffoldCommand is the external scaffolding binary run by Invoke.
	ScaffoldCommand string

	// Debug switches install and uninstall to in-place manifest edits
	// instead of real package-manager invocations.
	Debug bool

	Logger *slog.Logger
}

// Operations executes the plugin lifecycle state machine.
type Operations struct {
	store     *plugin.Store
	state     *plugin.InstallationState
	discovery *plugin.Discovery
	runtime   RuntimeOps
	manifests *manifest.Cache
	manager   pkgman.Manager
	resolver  pkgman.DirResolver
	versions  *pkgman.Versions
	reporter  *progress.Reporter
	bus       *event.Bus
	prompts   PromptCollector
	scaffold  string
	debug     bool
	log       *slog.Logger
}

// New creates the lifecycle operations.
func New(cfg Config) *Operations {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Operations{
		store:     cfg.Store,
		state:     cfg.State,
		discovery: cfg.Discovery,
		runtime:   cfg.Runtime,
		manifests: cfg.Manifests,
		manager:   cfg.Manager,
		resolver:  cfg.Resolver,
		versions:  cfg.Versions,
		reporter:  cfg.Reporter,
		bus:       cfg.Bus,
		prompts:   cfg.Prompts,
		scaffold:  cfg.ScaffoldCommand,
		debug:     cfg.Debug,
		log:       log,
	}
}

// progressChannel keys the progress serialization per workspace.
func progressChannel(workspace string) string {
	return "plugin:" + workspace
}

func (o *Operations) run(ctx context.Context, workspace string, fn func(ctx context.Context, t *progress.Task) error) error {
	err := o.reporter.Run(ctx, progressChannel(workspace), fn)
	if errors.Is(err, progress.ErrBusy) {
		return plugin.ErrOperationInFlight
	}
	return err
}

func (o *Operations) notify(message string, args ...string) {
	o.bus.Publish(ChannelNotifications, Notification{Message: message, Args: args})
}

// Install adds a plugin package to the workspace, loads its prompts, and
// advances the state machine to the configuration step. The returned
// snapshot reflects the state after the operation.
func (o *Operations) Install(ctx context.Context, workspace, id string) (plugin.StateSnapshot, error) {
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) (err error) {
		if !o.state.Idle() {
			return plugin.ErrOperationInFlight
		}
		ctx = slogcontext.With(ctx, "plugin", id, "workspace", workspace)

		o.state.Transition(id, plugin.StepInstall)
		defer o.clearOnError(&err)
		t.Status("installing", id)

		if o.debug {
			if err := o.mockInstall(workspace, id); err != nil {
				return err
			}
		} else {
			spec := id
			if p, ok := o.store.FindOne(id, workspace); ok && p.VersionRange != "" {
				spec = id + "@" + p.VersionRange
			}
			if err := o.manager.Install(ctx, workspace, spec); err != nil {
				return err
			}
		}

		o.manifests.Invalidate(workspace)
		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{}); err != nil {
			return err
		}
		return o.startConfiguration(ctx, id, workspace)
	})
	return o.state.Snapshot(), err
}

// InstallLocal installs a plugin from a local filesystem path: the
// manifest is pointed at the path and the package is copied into the
// dependency tree, then configuration proceeds as for Install.
func (o *Operations) InstallLocal(ctx context.Context, workspace, path string) (plugin.StateSnapshot, error) {
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) (err error) {
		if !o.state.Idle() {
			return plugin.ErrOperationInFlight
		}

		src, err := manifest.Read(path)
		if err != nil {
			return err
		}
		id := src.Name
		if id == "" {
			return fmt.Errorf("local package at %s has no name", path)
		}
		ctx = slogcontext.With(ctx, "plugin", id, "workspace", workspace)

		o.state.Transition(id, plugin.StepInstall)
		defer o.clearOnError(&err)
		t.Status("installingLocal", id)

		if err := manifest.SetDependency(workspace, id, "file:"+path, false); err != nil {
			return err
		}
		dst := filepath.Join(workspace, pkgman.PackagesDir, filepath.FromSlash(id))
		if err := pkgman.Resync(path, dst, true); err != nil {
			return err
		}

		o.manifests.Invalidate(workspace)
		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{}); err != nil {
			return err
		}
		return o.startConfiguration(ctx, id, workspace)
	})
	return o.state.Snapshot(), err
}

// Uninstall removes a plugin package and returns the state machine to
// idle.
func (o *Operations) Uninstall(ctx context.Context, workspace, id string) (plugin.StateSnapshot, error) {
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) (err error) {
		if !o.state.Idle() {
			return plugin.ErrOperationInFlight
		}
		ctx = slogcontext.With(ctx, "plugin", id, "workspace", workspace)

		o.state.Transition(id, plugin.StepUninstall)
		defer o.clearOnError(&err)
		t.Status("uninstalling", id)

		if o.debug {
			if err := manifest.RemoveDependency(workspace, id); err != nil {
				return err
			}
		} else {
			if err := o.manager.Uninstall(ctx, workspace, id); err != nil {
				return err
			}
		}

		o.manifests.Invalidate(workspace)
		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{}); err != nil {
			return err
		}

		o.state.Clear()
		o.notify("pluginUninstalled", id)
		return nil
	})
	return o.state.Snapshot(), err
}

// clearOnError returns the state machine to idle when an operation fails
// after it has already transitioned. Manifest edits that landed before
// the failure stay; only the in-flight marker is rolled back, so the
// next operation is not locked out behind a dead install.
func (o *Operations) clearOnError(err *error) {
	if *err != nil {
		o.state.Clear()
	}
}

// FinishInstall is the terminal transition of the install state machine:
// it clears the active plugin and step and returns the idle snapshot.
func (o *Operations) FinishInstall() plugin.StateSnapshot {
	o.state.Clear()
	return o.state.Snapshot()
}

// startConfiguration loads the plugin's declared prompts, starts
// collection, and advances to the configuration step.
func (o *Operations) startConfiguration(ctx context.Context, id, workspace string) error {
	log := slogcontext.FromCtx(ctx)

	if dir, ok := o.installedDir(id, workspace); ok {
		set, err := LoadPrompts(id, dir)
		if err != nil {
			log.Warn("plugin prompts unreadable", "error", err)
		}
		if set != nil && o.prompts != nil {
			if err := o.prompts.Collect(ctx, set); err != nil {
				return err
			}
		}
	}

	o.state.Transition(id, plugin.StepConfig)
	o.notify("pluginInstalled", id)
	return nil
}

// installedDir resolves a plugin's installed package directory.
func (o *Operations) installedDir(id, workspace string) (string, bool) {
	base := workspace
	if p, ok := o.store.FindOne(id, workspace); ok {
		base = p.BaseDir
	}
	return o.resolver.InstalledPath(id, base)
}

// mockInstall marks the package as present without a real install: the
// dependency is written into the manifest and a minimal package is placed
// in the dependency tree. Used for offline and official-plugin testing.
func (o *Operations) mockInstall(workspace, id string) error {
	if err := manifest.SetDependency(workspace, id, "*", false); err != nil {
		return err
	}

	dir := filepath.Join(workspace, pkgman.PackagesDir, filepath.FromSlash(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mock install %s: %w", id, err)
	}

	body, _ := sjson.Set("{}", "name", id)
	body, _ = sjson.Set(body, "version", "0.0.0")
	path := filepath.Join(dir, manifest.FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("mock install %s: %w", id, err)
	}
	return nil
}
