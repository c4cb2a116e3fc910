package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"name": "my-app",
		"dependencies": {"left-pad": "^1.0.0"},
		"devDependencies": {"@workbench/plugin-lint": "^2.1.0"},
		"workbench": {
			"bundledPlugins": ["@workbench/plugin-unit-test"],
			"uiModules": ["./ui/dev.js"]
		}
	}`)

	m, err := Read(dir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if m.Name != "my-app" {
		t.Errorf("Name = %q, want my-app", m.Name)
	}
	if m.Dependencies["left-pad"] != "^1.0.0" {
		t.Errorf("Dependencies = %v", m.Dependencies)
	}
	if m.DevDependencies["@workbench/plugin-lint"] != "^2.1.0" {
		t.Errorf("DevDependencies = %v", m.DevDependencies)
	}
	if len(m.BundledPlugins) != 1 || m.BundledPlugins[0] != "@workbench/plugin-unit-test" {
		t.Errorf("BundledPlugins = %v", m.BundledPlugins)
	}
	if len(m.UIModules) != 1 {
		t.Errorf("UIModules = %v", m.UIModules)
	}
}

func TestReadManifestMissing(t *testing.T) {
	_, err := Read(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestReadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{not json`)

	_, err := Read(dir)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Read() error = %v, want ErrMalformed", err)
	}
}

func TestSetDependencyScopedName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "app", "devDependencies": {}}`)

	if err := SetDependency(dir, "@workbench/plugin-deploy", "^1.0.0", true); err != nil {
		t.Fatalf("SetDependency() error = %v", err)
	}

	m, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.DevDependencies["@workbench/plugin-deploy"] != "^1.0.0" {
		t.Errorf("DevDependencies = %v, want @workbench/plugin-deploy entry", m.DevDependencies)
	}

	if err := RemoveDependency(dir, "@workbench/plugin-deploy"); err != nil {
		t.Fatalf("RemoveDependency() error = %v", err)
	}
	m, err = Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.HasDependency("@workbench/plugin-deploy") {
		t.Error("@workbench/plugin-deploy still declared after removal")
	}
}

func TestRemoveDependency(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"dependencies": {"keep": "1.0.0"},
		"devDependencies": {"workbench-plugin-x": "^0.1.0"}
	}`)

	if err := RemoveDependency(dir, "workbench-plugin-x"); err != nil {
		t.Fatalf("RemoveDependency() error = %v", err)
	}

	m, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.HasDependency("workbench-plugin-x") {
		t.Error("workbench-plugin-x still declared after removal")
	}
	if !m.HasDependency("keep") {
		t.Error("unrelated dependency was removed")
	}
}

func TestCachePluginRootRedirect(t *testing.T) {
	root := t.TempDir()
	ws := filepath.Join(root, "app")
	real := filepath.Join(root, "real")
	for _, dir := range []string{ws, real} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeManifest(t, ws, `{"workbench": {"pluginRoot": "`+real+`"}}`)
	writeManifest(t, real, `{"dependencies": {"workbench-plugin-a": "^1.0.0"}}`)

	c := NewCache()
	m, err := c.Get(ws)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Dir != real {
		t.Errorf("Dir = %q, want redirect to %q", m.Dir, real)
	}
	if !m.HasDependency("workbench-plugin-a") {
		t.Error("redirected manifest missing dependency")
	}
}

func TestCachePluginRootRelative(t *testing.T) {
	ws := t.TempDir()
	real := filepath.Join(ws, "plugins")
	if err := os.MkdirAll(real, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, ws, `{"workbench": {"pluginRoot": "plugins"}}`)
	writeManifest(t, real, `{"dependencies": {"workbench-plugin-a": "^1.0.0"}}`)

	c := NewCache()
	m, err := c.Get(ws)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Dir != real {
		t.Errorf("Dir = %q, want workspace-relative redirect to %q", m.Dir, real)
	}
	if !m.HasDependency("workbench-plugin-a") {
		t.Error("redirected manifest missing dependency")
	}
}

func TestCacheInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "one"}`)

	c := NewCache()
	m1, err := c.Get(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeManifest(t, dir, `{"name": "two"}`)

	// Cached until invalidated.
	m2, _ := c.Get(dir)
	if m2 != m1 {
		t.Error("Get() re-read manifest without invalidation")
	}

	c.Invalidate(dir)
	m3, err := c.Get(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m3.Name != "two" {
		t.Errorf("Name after invalidate = %q, want two", m3.Name)
	}
}
