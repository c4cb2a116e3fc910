package extension

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/workbench/internal/event"
	"github.com/dshills/workbench/internal/manifest"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/project"
	"github.com/dshills/workbench/internal/registry"
)

// fakeLoader maps a resolved module path to a Go function that plays the
// role of the module's entry point.
type fakeLoader struct {
	modules     map[string]func(*Context)
	invalidated []string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{modules: make(map[string]func(*Context))}
}

func (l *fakeLoader) modulePath(dir string) string {
	return filepath.Join(dir, "ui.fake")
}

func (l *fakeLoader) set(dir string, fn func(*Context)) {
	l.modules[l.modulePath(dir)] = fn
}

func (l *fakeLoader) Resolve(dir string) (string, bool) {
	path := l.modulePath(dir)
	_, ok := l.modules[path]
	return path, ok
}

func (l *fakeLoader) Matches(path string) bool {
	return strings.HasSuffix(path, ".fake")
}

func (l *fakeLoader) Load(ctx context.Context, path string, ec *Context) error {
	fn, ok := l.modules[path]
	if !ok {
		return errors.New("no such module")
	}
	fn(ec)
	return nil
}

func (l *fakeLoader) Invalidate(path string) {
	l.invalidated = append(l.invalidated, path)
}

// dirResolver resolves every plugin id to a fixed subdirectory of the
// plugin's base dir, mirroring a package-manager layout.
type dirResolver struct{}

func (dirResolver) InstalledPath(id, from string) (string, bool) {
	return filepath.Join(from, "packages", id), true
}

type rig struct {
	ws       string
	bus      *event.Bus
	store    *plugin.Store
	regs     Registries
	rt       *Runtime
	projects *project.MemoryRegistry
	loader   *fakeLoader
}

func newRig(t *testing.T) *rig {
	t.Helper()
	ws := t.TempDir()

	r := &rig{
		ws:     ws,
		bus:    event.NewBus(),
		store:  plugin.NewStore(nil),
		regs:   NewRegistries(),
		loader: newFakeLoader(),
	}
	r.rt = NewRuntime(Config{
		Store:      r.store,
		Manifests:  manifest.NewCache(),
		Resolver:   dirResolver{},
		Loaders:    []ModuleLoader{r.loader},
		Registries: r.regs,
		Bus:        r.bus,
	})
	t.Cleanup(r.rt.Close)

	r.projects = project.NewMemoryRegistry()
	r.projects.Add(&project.Project{ID: "p1", Name: "One", Path: ws, Type: project.TypeWorkbench})
	r.rt.AttachProjects(r.projects)
	return r
}

// pluginDir is where the resolver places a plugin's package for the rig's
// workspace.
func (r *rig) pluginDir(id string) string {
	return filepath.Join(r.ws, "packages", id)
}

func (r *rig) addPlugin(t *testing.T, id string, module func(*Context)) {
	t.Helper()
	list := append(r.store.Get(r.ws), plugin.Plugin{ID: id, Installed: true, BaseDir: r.ws})
	r.store.Set(r.ws, list)
	if module != nil {
		r.loader.set(r.pluginDir(id), module)
	}
}

func (r *rig) reset(t *testing.T, light bool) bool {
	t.Helper()
	ok, err := r.rt.ResetPluginAPI(context.Background(), r.ws, light)
	if err != nil {
		t.Fatalf("ResetPluginAPI() error = %v", err)
	}
	return ok
}

func TestResetBuildsContext(t *testing.T) {
	r := newRig(t)

	if !r.reset(t, false) {
		t.Fatal("ResetPluginAPI() = false, want true for a workbench project")
	}
	ec := r.rt.Context(r.ws)
	if ec == nil {
		t.Fatal("Context() = nil after successful reset")
	}
	if ec.Workspace() != r.ws {
		t.Errorf("context workspace = %q, want %q", ec.Workspace(), r.ws)
	}
	if ec.Project() == nil || ec.Project().ID != "p1" {
		t.Errorf("context project = %+v, want p1", ec.Project())
	}
}

func TestResetUnknownWorkspace(t *testing.T) {
	r := newRig(t)

	ok, err := r.rt.ResetPluginAPI(context.Background(), "/nowhere", false)
	if err != nil {
		t.Fatalf("ResetPluginAPI() error = %v", err)
	}
	if ok {
		t.Error("ResetPluginAPI() = true for an unknown workspace")
	}
	if r.rt.Context("/nowhere") != nil {
		t.Error("Context() != nil for an unknown workspace")
	}
}

func TestResetForeignProject(t *testing.T) {
	r := newRig(t)
	foreign := t.TempDir()
	r.projects.Add(&project.Project{ID: "p2", Name: "Two", Path: foreign, Type: project.TypeForeign})

	ok, err := r.rt.ResetPluginAPI(context.Background(), foreign, false)
	if err != nil {
		t.Fatalf("ResetPluginAPI() error = %v", err)
	}
	if ok {
		t.Error("ResetPluginAPI() = true for a foreign project")
	}
}

func TestResetFailureLeavesNoInstance(t *testing.T) {
	r := newRig(t)

	if !r.reset(t, false) {
		t.Fatal("initial reset failed")
	}
	if r.rt.Context(r.ws) == nil {
		t.Fatal("no context after initial reset")
	}

	// The workspace no longer resolves to a project. The teardown half of
	// the reset still runs, so the stale instance must be gone afterwards.
	r.projects.Remove("p1")

	if r.reset(t, false) {
		t.Error("ResetPluginAPI() = true after project removal")
	}
	if r.rt.Context(r.ws) != nil {
		t.Error("stale context survived a failed reset")
	}
}

func TestResetAppliesContributions(t *testing.T) {
	r := newRig(t)
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.AddView(view("v1"))
		ec.AddWidget(widget("w1"))
	})
	r.addPlugin(t, "workbench-plugin-b", func(ec *Context) {
		ec.AddView(view("v2"))
	})

	if !r.reset(t, false) {
		t.Fatal("reset failed")
	}

	views := r.regs.Views.List(r.ws)
	if len(views) != 2 || views[0].ID != "v1" || views[1].ID != "v2" {
		t.Errorf("views = %+v, want [v1 v2] in plugin load order", views)
	}
	if views[0].PluginID != "workbench-plugin-a" {
		t.Errorf("view v1 attributed to %q, want workbench-plugin-a", views[0].PluginID)
	}

	widgets := r.regs.Widgets.List(r.ws)
	if len(widgets) != 1 || widgets[0].ID != "w1" {
		t.Errorf("widgets = %+v, want [w1]", widgets)
	}
}

func TestResetReplacesContributions(t *testing.T) {
	r := newRig(t)
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.AddView(view("v1"))
	})

	if !r.reset(t, false) {
		t.Fatal("first reset failed")
	}
	if !r.reset(t, false) {
		t.Fatal("second reset failed")
	}

	if views := r.regs.Views.List(r.ws); len(views) != 1 {
		t.Errorf("got %d views after two resets, want 1", len(views))
	}
}

func TestResetTearsDownPreviousContext(t *testing.T) {
	r := newRig(t)
	closerCalls := 0
	ipcCalls := 0
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.AddCloser(func() { closerCalls++ })
		ec.OnIPC("test-channel", func(msg event.Message) { ipcCalls++ })
	})

	if !r.reset(t, false) {
		t.Fatal("first reset failed")
	}
	first := r.rt.Context(r.ws)

	if !r.reset(t, false) {
		t.Fatal("second reset failed")
	}
	if closerCalls != 1 {
		t.Errorf("closer calls = %d, want 1 after replacement", closerCalls)
	}
	if r.rt.Context(r.ws) == first {
		t.Error("context was not replaced by the second reset")
	}

	// Only the live context's subscription remains.
	r.bus.Publish("test-channel", nil)
	if ipcCalls != 1 {
		t.Errorf("ipc calls = %d, want 1 (stale subscription must be gone)", ipcCalls)
	}
}

func TestResetHooks(t *testing.T) {
	r := newRig(t)
	var hookCalls []string
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.OnHook(HookProjectOpen, func(args map[string]any) {
			hookCalls = append(hookCalls, "projectOpen")
			if _, ok := args["previousProject"]; !ok {
				t.Error("projectOpen args missing previousProject")
			}
		})
		ec.OnHook(HookPluginReload, func(args map[string]any) {
			hookCalls = append(hookCalls, "pluginReload")
		})
	})

	if !r.reset(t, false) {
		t.Fatal("first reset failed")
	}
	if !r.reset(t, false) {
		t.Fatal("second reset failed")
	}

	want := []string{"projectOpen", "pluginReload"}
	if len(hookCalls) != 2 || hookCalls[0] != want[0] || hookCalls[1] != want[1] {
		t.Errorf("hook calls = %v, want %v", hookCalls, want)
	}
}

func TestResetLightSkipsHooksAndWidgets(t *testing.T) {
	r := newRig(t)
	hooked := false
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.OnHook(HookProjectOpen, func(map[string]any) { hooked = true })
	})

	widgetLoads := 0
	unsub := r.bus.Subscribe(ChannelWidgetsLoad, func(event.Message) { widgetLoads++ })
	defer unsub()

	if !r.reset(t, true) {
		t.Fatal("light reset failed")
	}
	if hooked {
		t.Error("lifecycle hook fired during a light reset")
	}
	if widgetLoads != 0 {
		t.Errorf("widgets-load published %d times during a light reset, want 0", widgetLoads)
	}
}

func TestResetRepublishesOpenView(t *testing.T) {
	r := newRig(t)

	if !r.reset(t, false) {
		t.Fatal("first reset failed")
	}

	var opened []ViewOpenPayload
	unsub := r.bus.Subscribe(ChannelViewOpen, func(msg event.Message) {
		opened = append(opened, msg.Payload.(ViewOpenPayload))
	})
	defer unsub()

	r.rt.SetOpenView(r.ws, "v1")
	if !r.reset(t, false) {
		t.Fatal("second reset failed")
	}

	if len(opened) != 2 {
		t.Fatalf("view-open published %d times, want 2 (set + reload re-render)", len(opened))
	}
	if opened[1].ViewID != "v1" || opened[1].Workspace != r.ws {
		t.Errorf("re-render payload = %+v, want v1 for workspace", opened[1])
	}
}

func TestCallActionPositionAlignment(t *testing.T) {
	r := newRig(t)
	r.addPlugin(t, "workbench-plugin-a", func(ec *Context) {
		ec.OnAction("compute", func(map[string]any) (any, error) {
			panic("handler one blew up")
		})
		ec.OnAction("compute", func(map[string]any) (any, error) {
			return 5, nil
		})
	})

	if !r.reset(t, false) {
		t.Fatal("reset failed")
	}

	res := r.rt.CallAction("compute", map[string]any{"x": 1}, r.ws)
	if len(res.Results) != 2 || len(res.Errors) != 2 {
		t.Fatalf("results/errors lengths = %d/%d, want 2/2", len(res.Results), len(res.Errors))
	}
	if res.Results[0] != nil || res.Errors[0] == nil {
		t.Errorf("slot 0 = (%v, %v), want (nil, error) for the panicking handler", res.Results[0], res.Errors[0])
	}
	if res.Results[1] != 5 || res.Errors[1] != nil {
		t.Errorf("slot 1 = (%v, %v), want (5, nil)", res.Results[1], res.Errors[1])
	}
}

func TestCallActionPublishesLifecycleEvents(t *testing.T) {
	r := newRig(t)
	if !r.reset(t, false) {
		t.Fatal("reset failed")
	}

	var channels []string
	for _, ch := range []string{ChannelActionCalled, ChannelActionResolved} {
		channel := ch
		unsub := r.bus.Subscribe(channel, func(event.Message) { channels = append(channels, channel) })
		defer unsub()
	}

	r.rt.CallAction("anything", nil, r.ws)
	if len(channels) != 2 || channels[0] != ChannelActionCalled || channels[1] != ChannelActionResolved {
		t.Errorf("published = %v, want [action-called action-resolved]", channels)
	}
}

func TestCallActionNoContext(t *testing.T) {
	r := newRig(t)

	res := r.rt.CallAction("compute", nil, r.ws)
	if len(res.Results) != 0 || len(res.Errors) != 0 {
		t.Errorf("results/errors = %v/%v, want empty without a context", res.Results, res.Errors)
	}
}

func TestCallHookNoContext(t *testing.T) {
	r := newRig(t)
	// Must be a no-op, not a panic.
	r.rt.CallHook(HookProjectOpen, nil, r.ws)
}

func TestReloadPluginModule(t *testing.T) {
	r := newRig(t)
	generation := 0
	r.addPlugin(t, "workbench-plugin-a", nil)
	r.loader.set(r.pluginDir("workbench-plugin-a"), func(ec *Context) {
		generation++
		if generation == 1 {
			ec.AddView(view("v1"))
		} else {
			ec.AddView(view("v2"))
		}
	})

	if !r.reset(t, false) {
		t.Fatal("reset failed")
	}
	if views := r.regs.Views.List(r.ws); len(views) != 1 || views[0].ID != "v1" {
		t.Fatalf("views after reset = %+v, want [v1]", views)
	}

	if err := r.rt.ReloadPluginModule(context.Background(), "workbench-plugin-a", r.ws); err != nil {
		t.Fatalf("ReloadPluginModule() error = %v", err)
	}

	views := r.regs.Views.List(r.ws)
	if len(views) != 2 || views[1].ID != "v2" {
		t.Errorf("views after reload = %+v, want [v1 v2] (delta applied once)", views)
	}
	if len(r.loader.invalidated) != 1 {
		t.Errorf("invalidated %d paths, want 1", len(r.loader.invalidated))
	}
}

func TestReloadPluginModuleNoRuntime(t *testing.T) {
	r := newRig(t)

	err := r.rt.ReloadPluginModule(context.Background(), "workbench-plugin-a", r.ws)
	if !errors.Is(err, plugin.ErrNoRuntime) {
		t.Errorf("ReloadPluginModule() error = %v, want ErrNoRuntime", err)
	}
}

func TestSchedulerRunsInOrder(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		n := i
		s.NextTick(func() { results <- n })
	}

	for want := 1; want <= 3; want++ {
		if got := <-results; got != want {
			t.Errorf("tick order: got %d, want %d", got, want)
		}
	}
}

func TestSchedulerCloseDrains(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.NextTick(func() { ran = true })
	s.Close()
	if !ran {
		t.Error("queued function did not run before Close returned")
	}
	// Enqueue after close must not panic.
	s.NextTick(func() {})
}

func view(id string) registry.View {
	return registry.View{ID: id, Name: id, Component: "Component-" + id}
}

func widget(id string) registry.Widget {
	return registry.Widget{ID: id, Title: id, Component: "Component-" + id}
}
