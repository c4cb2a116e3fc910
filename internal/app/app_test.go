package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestApp(t *testing.T, workspaces ...string) *Application {
	t.Helper()
	opts := Options{
		ConfigPath: filepath.Join(t.TempDir(), "workbench.toml"),
		Workspaces: workspaces,
		Debug:      true,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	manifest := `{"name": "app", "dependencies": {}}`
	if err := os.WriteFile(filepath.Join(ws, "package.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestNewRegistersBuiltinCommands(t *testing.T) {
	a := newTestApp(t)

	for _, id := range []string{
		CmdShowCommands, CmdReloadPlugins, CmdUpdateAllPlugins,
		CmdCloseProject, CmdOpenSettings,
	} {
		if _, ok := a.Commands().Get(id); !ok {
			t.Errorf("built-in command %s not registered", id)
		}
	}
}

func TestNewOpensInitialWorkspace(t *testing.T) {
	ws := newWorkspace(t)
	a := newTestApp(t, ws)

	proj := a.Projects().Current()
	if proj == nil {
		t.Fatal("no current project after startup")
	}
	resolved, err := filepath.EvalSymlinks(ws)
	if err != nil {
		t.Fatal(err)
	}
	got, err := filepath.EvalSymlinks(proj.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got != resolved {
		t.Errorf("current project path = %s, want %s", got, resolved)
	}
}

func TestOpenProjectIdempotent(t *testing.T) {
	ws := newWorkspace(t)
	a := newTestApp(t)

	first, err := a.OpenProject(context.Background(), ws)
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	second, err := a.OpenProject(context.Background(), ws)
	if err != nil {
		t.Fatalf("OpenProject() second call error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("reopening the same path created a new project %s != %s", first.ID, second.ID)
	}
	if len(a.Projects().List()) != 1 {
		t.Errorf("registry holds %d projects, want 1", len(a.Projects().List()))
	}
}

func TestCloseProject(t *testing.T) {
	ws := newWorkspace(t)
	a := newTestApp(t)

	proj, err := a.OpenProject(context.Background(), ws)
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	a.CloseProject(proj.ID)

	if a.Projects().Get(proj.ID) != nil {
		t.Error("project still registered after CloseProject")
	}
}

func TestCommandSearchFindsBuiltins(t *testing.T) {
	a := newTestApp(t)

	got := a.Commands().Search("&update")
	if len(got) != 1 || got[0].ID != CmdUpdateAllPlugins {
		t.Errorf(`Search("&update") = %v, want the update-all command`, got)
	}
}

func TestRunCommandWithoutProject(t *testing.T) {
	a := newTestApp(t)

	// No current project: the handlers must be a harmless no-op.
	for _, id := range []string{CmdReloadPlugins, CmdUpdateAllPlugins, CmdOpenSettings} {
		if _, ok := a.Commands().Run(id, "client-1"); !ok {
			t.Errorf("Run(%s) ok = false", id)
		}
	}
}

func TestDebugOptionOverridesConfig(t *testing.T) {
	a := newTestApp(t)
	if !a.Config().Debug {
		t.Error("Debug option did not carry into the configuration")
	}
}

func TestInstallThroughApp(t *testing.T) {
	ws := newWorkspace(t)
	a := newTestApp(t, ws)

	snap, err := a.Lifecycle().Install(context.Background(), ws, "@workbench/plugin-notes")
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if snap.ActivePluginID != "@workbench/plugin-notes" {
		t.Errorf("ActivePluginID = %s", snap.ActivePluginID)
	}

	found := false
	for _, p := range a.Store().Visible(ws) {
		if p.ID == "@workbench/plugin-notes" {
			found = true
		}
	}
	if !found {
		t.Error("installed plugin not visible in store")
	}
}
