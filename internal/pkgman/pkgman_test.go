package pkgman

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/workbench/internal/manifest"
)

func TestResolverInstalledPath(t *testing.T) {
	ws := t.TempDir()
	pkgDir := filepath.Join(ws, PackagesDir, "@workbench", "plugin-lint")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var r DirResolver

	got, ok := r.InstalledPath("@workbench/plugin-lint", ws)
	if !ok {
		t.Fatal("InstalledPath() = false for installed package")
	}
	if got != pkgDir {
		t.Errorf("InstalledPath() = %q, want %q", got, pkgDir)
	}

	if _, ok := r.InstalledPath("workbench-plugin-missing", ws); ok {
		t.Error("InstalledPath() = true for missing package")
	}
}

func TestResolverIsLinked(t *testing.T) {
	ws := t.TempDir()
	checkout := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, PackagesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(ws, PackagesDir, "workbench-plugin-dev")
	if err := os.Symlink(checkout, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	var r DirResolver
	if !r.IsLinked("workbench-plugin-dev", ws) {
		t.Error("IsLinked() = false for symlinked package")
	}
	if target, ok := r.LinkTarget("workbench-plugin-dev", ws); !ok || target == "" {
		t.Errorf("LinkTarget() = (%q, %v)", target, ok)
	}
}

func TestVersionsInstalledVersion(t *testing.T) {
	ws := t.TempDir()
	pkgDir := filepath.Join(ws, PackagesDir, "workbench-plugin-a")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "workbench-plugin-a", "version": "1.4.2"}`
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewVersions(nil)
	if got := v.InstalledVersion("workbench-plugin-a", ws); got != "1.4.2" {
		t.Errorf("InstalledVersion() = %q, want 1.4.2", got)
	}
	if got := v.InstalledVersion("missing", ws); got != "" {
		t.Errorf("InstalledVersion(missing) = %q, want empty", got)
	}
}

type fakeMetadata struct {
	wanted      string
	latest      string
	invalidated []string
}

func (f *fakeMetadata) WantedVersion(ctx context.Context, id, rng string) (string, error) {
	return f.wanted, nil
}

func (f *fakeMetadata) LatestVersion(ctx context.Context, id string) (string, error) {
	return f.latest, nil
}

func (f *fakeMetadata) Invalidate(id string) {
	f.invalidated = append(f.invalidated, id)
}

func TestVersionsRead(t *testing.T) {
	ws := t.TempDir()
	pkgDir := filepath.Join(ws, PackagesDir, "workbench-plugin-a")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.FileName), []byte(`{"version": "1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws, manifest.FileName), []byte(`{"devDependencies": {"workbench-plugin-a": "^1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Read(ws)
	if err != nil {
		t.Fatal(err)
	}

	v := NewVersions(&fakeMetadata{wanted: "1.2.0", latest: "2.0.0"})
	d := v.Read(context.Background(), m, "workbench-plugin-a")

	if d.Current != "1.0.0" || d.Wanted != "1.2.0" || d.Latest != "2.0.0" {
		t.Errorf("Read() = %+v", d)
	}
	if !d.Outdated() {
		t.Error("Outdated() = false, want true")
	}
}

func TestVersionsReadOffline(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, manifest.FileName), []byte(`{"devDependencies": {"workbench-plugin-a": "^1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Read(ws)
	if err != nil {
		t.Fatal(err)
	}

	v := NewVersions(nil)
	d := v.Read(context.Background(), m, "workbench-plugin-a")
	if d.Wanted != "^1.0.0" {
		t.Errorf("Wanted = %q, want declared range fallback", d.Wanted)
	}
	if d.Outdated() {
		t.Error("Outdated() = true for uninstalled package")
	}
}

func TestVersionsReadOfflineInstalled(t *testing.T) {
	ws := t.TempDir()
	pkgDir := filepath.Join(ws, PackagesDir, "workbench-plugin-a")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.FileName), []byte(`{"version": "1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws, manifest.FileName), []byte(`{"devDependencies": {"workbench-plugin-a": "^1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Read(ws)
	if err != nil {
		t.Fatal(err)
	}

	v := NewVersions(nil)
	d := v.Read(context.Background(), m, "workbench-plugin-a")
	if d.Current != "1.0.0" || d.Wanted != "^1.0.0" {
		t.Errorf("Read() = %+v", d)
	}
	if d.Resolved {
		t.Error("Resolved = true without a registry client")
	}
	if d.Outdated() {
		t.Error("Outdated() = true for an installed package that cannot be verified")
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResyncFull(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.js":     "new",
		".git/HEAD":    "ref",
		"lib/util.js":  "util",
	})
	writeTree(t, dst, map[string]string{
		"stale.js": "old",
	})

	if err := Resync(src, dst, true); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "stale.js")); !os.IsNotExist(err) {
		t.Error("full resync kept stale file")
	}
	if _, err := os.Stat(filepath.Join(dst, ".git")); !os.IsNotExist(err) {
		t.Error("resync copied version-control metadata")
	}
	data, err := os.ReadFile(filepath.Join(dst, "lib", "util.js"))
	if err != nil || string(data) != "util" {
		t.Errorf("lib/util.js = %q, %v", data, err)
	}
}

func TestResyncPartialKeepsDependencyTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.js":              "v2",
		PackagesDir + "/dep/a.js": "src dep",
	})
	writeTree(t, dst, map[string]string{
		"index.js":              "v1",
		PackagesDir + "/dep/a.js": "installed dep",
	})

	if err := Resync(src, dst, false); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dst, "index.js"))
	if string(data) != "v2" {
		t.Errorf("index.js = %q, want v2", data)
	}
	data, _ = os.ReadFile(filepath.Join(dst, PackagesDir, "dep", "a.js"))
	if string(data) != "installed dep" {
		t.Errorf("partial resync touched dependency tree: %q", data)
	}
}

func TestResyncPartialThroughSymlink(t *testing.T) {
	checkout := t.TempDir()
	ws := t.TempDir()
	writeTree(t, checkout, map[string]string{
		"index.js": "precious source",
	})
	if err := os.MkdirAll(filepath.Join(ws, PackagesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(ws, PackagesDir, "workbench-plugin-x")
	if err := os.Symlink(checkout, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := Resync(checkout, link, false); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(checkout, "index.js"))
	if err != nil || string(data) != "precious source" {
		t.Fatalf("checkout index.js = %q, %v; source tree was modified", data, err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("destination is still a symlink after resync")
	}
	data, err = os.ReadFile(filepath.Join(link, "index.js"))
	if err != nil || string(data) != "precious source" {
		t.Errorf("installed index.js = %q, %v", data, err)
	}
}

func TestExecManagerStreamsOutput(t *testing.T) {
	var lines []string
	m := NewExecManager("sh", func(line string) { lines = append(lines, line) })

	// Abuse the verb slot to run a shell one-liner; keeps the test free of
	// a real package manager.
	err := m.run(context.Background(), t.TempDir(), "-c", "echo one; echo two")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.Join(lines, ",") != "one,two" {
		t.Errorf("streamed lines = %v", lines)
	}
}

func TestExecManagerUpdateNoPackages(t *testing.T) {
	m := NewExecManager("sh", nil)
	if err := m.Update(context.Background(), t.TempDir()); err != ErrNoPackages {
		t.Errorf("Update() error = %v, want ErrNoPackages", err)
	}
}
