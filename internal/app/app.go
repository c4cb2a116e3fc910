// Package app wires the workbench host together: configuration, the
// event bus, the project registry, plugin discovery, the extension
// runtime, lifecycle operations and the command registry. It owns the
// startup order and the shutdown of everything it creates.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/workbench/internal/command"
	"github.com/dshills/workbench/internal/config"
	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/extension"
	"github.com/dshills/workbench/internal/extension/jsmod"
	"github.com/dshills/workbench/internal/extension/luamod"
	"github.com/dshills/workbench/internal/lifecycle"
	"github.com/dshills/workbench/internal/manifest"
	"github.com/dshills/workbench/internal/pkgman"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/progress"
	"github.com/dshills/workbench/internal/project"
)

// Options configures the application.
type Options struct {
	// ConfigPath overrides the host configuration file location.
	ConfigPath string

	// Workspaces are project directories to open on startup. The first
	// one becomes the current project.
	Workspaces []string

	// Debug forces debug mode regardless of the configuration file.
	Debug bool

	// Logger overrides the configured logger. Used by tests.
	Logger *slog.Logger
}

// Application is the composition root for the workbench host.
type Application struct {
	cfg config.Config
	log *slog.Logger

	bus       *event.Bus
	projects  *project.MemoryRegistry
	store     *plugin.Store
	state     *plugin.InstallationState
	manifests *manifest.Cache
	resolver  pkgman.DirResolver
	discovery *plugin.Discovery
	runtime   *extension.Runtime
	ops       *lifecycle.Operations
	commands  *command.Registry
	reporter  *progress.Reporter
	watcher   *manifest.Watcher
}

// New creates and wires an application.
func New(opts Options) (*Application, error) {
	app := &Application{}
	if err := app.bootstrap(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes every component in dependency order.
func (a *Application) bootstrap(opts Options) error {
	// 1. Configuration.
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.Debug {
		cfg.Debug = true
	}
	a.cfg = cfg

	// 2. Logging.
	a.log = opts.Logger
	if a.log == nil {
		a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.Level(),
		}))
	}

	// 3. Event bus and project registry.
	a.bus = event.NewBus()
	a.projects = project.NewMemoryRegistry()

	// 4. Plugin bookkeeping.
	a.store = plugin.NewStore(a.log)
	a.state = plugin.NewInstallationState()
	a.manifests = manifest.NewCache()
	a.resolver = pkgman.DirResolver{}

	// 5. Discovery, then the runtime; the reset trigger and the project
	// registry are attached afterwards to break the construction cycle.
	a.discovery = plugin.NewDiscovery(a.manifests, a.store, a.resolver, a.log)
	a.runtime = extension.NewRuntime(extension.Config{
		Store:      a.store,
		Manifests:  a.manifests,
		Resolver:   a.resolver,
		Loaders:    []extension.ModuleLoader{jsmod.New(), luamod.New()},
		Registries: extension.NewRegistries(),
		Bus:        a.bus,
		Logger:     a.log,
		BuiltinDir: cfg.BuiltinDir,
	})
	a.discovery.AttachReset(a.runtime)
	a.runtime.AttachProjects(a.projects)

	// 6. Lifecycle operations.
	a.reporter = progress.NewReporter(a.bus)
	manager := pkgman.NewExecManager(cfg.PackageManager, func(line string) {
		a.log.Debug("package manager", "line", line)
	})
	a.ops = lifecycle.New(lifecycle.Config{
		Store:           a.store,
		State:           a.state,
		Discovery:       a.discovery,
		Runtime:         a.runtime,
		Manifests:       a.manifests,
		Manager:         manager,
		Resolver:        a.resolver,
		Versions:        pkgman.NewVersions(nil),
		Reporter:        a.reporter,
		Bus:             a.bus,
		ScaffoldCommand: cfg.Scaffold,
		Debug:           cfg.Debug,
		Logger:          a.log,
	})

	// 7. Command registry with the built-in command set.
	a.commands = command.NewRegistry(a.bus, a.log)
	if err := a.registerBuiltinCommands(); err != nil {
		return fmt.Errorf("registering built-in commands: %w", err)
	}

	// 8. Manifest watcher. Edits to a workspace manifest re-run
	// discovery, which triggers the reset protocol when the plugin
	// list changed.
	a.watcher, err = manifest.NewWatcher(func(workspace string) {
		a.manifests.Invalidate(workspace)
		if _, err := a.discovery.Discover(context.Background(), workspace, plugin.DiscoverOptions{}); err != nil {
			a.log.Warn("discovery after manifest change failed",
				"workspace", workspace, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("starting manifest watcher: %w", err)
	}

	// 9. Initial workspaces.
	for i, ws := range opts.Workspaces {
		proj, err := a.OpenProject(context.Background(), ws)
		if err != nil {
			a.log.Warn("opening workspace failed", "path", ws, "error", err)
			continue
		}
		if i == 0 {
			a.projects.Open(proj.ID)
		}
	}

	return nil
}

// OpenProject registers the directory as a workbench project, starts
// watching its manifest and runs an initial discovery pass. Reopening a
// known path returns the existing project.
func (a *Application) OpenProject(ctx context.Context, path string) (*project.Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if existing := a.projects.FindByPath(abs); existing != nil {
		return existing, nil
	}

	proj := &project.Project{
		ID:   uuid.NewString(),
		Name: filepath.Base(abs),
		Path: abs,
		Type: project.TypeWorkbench,
	}
	a.projects.Add(proj)

	if err := a.watcher.Watch(abs); err != nil {
		a.log.Warn("watching manifest failed", "workspace", abs, "error", err)
	}
	if _, err := a.discovery.Discover(ctx, abs, plugin.DiscoverOptions{}); err != nil {
		a.log.Warn("initial discovery failed", "workspace", abs, "error", err)
	}
	return proj, nil
}

// CloseProject removes a project and stops watching its manifest.
func (a *Application) CloseProject(id string) {
	proj := a.projects.Get(id)
	if proj == nil {
		return
	}
	a.watcher.Unwatch(proj.Path)
	a.projects.Remove(id)
	a.manifests.Invalidate(proj.Path)
}

// Close shuts the application down in reverse dependency order.
func (a *Application) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.runtime != nil {
		a.runtime.Close()
	}
}

// Bus returns the application event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Commands returns the command registry.
func (a *Application) Commands() *command.Registry { return a.commands }

// Lifecycle returns the plugin lifecycle operations.
func (a *Application) Lifecycle() *lifecycle.Operations { return a.ops }

// Runtime returns the extension runtime.
func (a *Application) Runtime() *extension.Runtime { return a.runtime }

// Projects returns the project registry.
func (a *Application) Projects() *project.MemoryRegistry { return a.projects }

// Store returns the plugin store.
func (a *Application) Store() *plugin.Store { return a.store }

// Config returns the loaded host configuration.
func (a *Application) Config() config.Config { return a.cfg }
