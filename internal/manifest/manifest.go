// Package manifest reads and edits the workspace manifest file.
//
// The manifest is a package.json-style document listing dependencies and an
// optional "workbench" section with workbench-specific fields. Reads go
// through gjson so only the fields the runtime needs are decoded; edits go
// through sjson so user formatting elsewhere in the document survives.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileName is the manifest file name inside a workspace.
const FileName = "package.json"

// Manifest errors.
var (
	// ErrNotFound is returned when a workspace has no manifest.
	ErrNotFound = errors.New("workspace manifest not found")

	// ErrMalformed is returned when the manifest is not valid JSON.
	ErrMalformed = errors.New("workspace manifest is not valid JSON")
)

// Manifest is the decoded view of a workspace manifest.
type Manifest struct {
	// Dir is the directory the manifest was read from. After plugin-root
	// redirection this may differ from the workspace the caller asked for.
	Dir string

	// Name is the package name declared by the manifest.
	Name string

	// Dependencies and DevDependencies map package id to version range.
	Dependencies    map[string]string
	DevDependencies map[string]string

	// PluginRoot redirects plugin resolution to another directory
	// (workbench.pluginRoot).
	PluginRoot string

	// BundledPlugins lists legacy bundle-declared plugin ids
	// (workbench.bundledPlugins).
	BundledPlugins []string

	// UIModules lists workspace-local UI module paths loaded after all
	// plugin modules (workbench.uiModules).
	UIModules []string
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.Dir, FileName)
}

// AllDependencies merges dependencies and devDependencies.
// devDependencies win on conflict, matching install tool behavior.
func (m *Manifest) AllDependencies() map[string]string {
	all := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for id, rng := range m.Dependencies {
		all[id] = rng
	}
	for id, rng := range m.DevDependencies {
		all[id] = rng
	}
	return all
}

// HasDependency reports whether the manifest declares the package in either
// dependency block.
func (m *Manifest) HasDependency(id string) bool {
	if _, ok := m.Dependencies[id]; ok {
		return true
	}
	_, ok := m.DevDependencies[id]
	return ok
}

// Range returns the declared version range for a package, or "".
func (m *Manifest) Range(id string) string {
	if rng, ok := m.DevDependencies[id]; ok {
		return rng
	}
	return m.Dependencies[id]
}

// Read loads the manifest from a directory.
// A missing manifest is a hard failure: the workspace cannot be scanned.
func Read(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, path)
	}

	m := &Manifest{
		Dir:             dir,
		Name:            gjson.GetBytes(data, "name").String(),
		Dependencies:    stringMap(gjson.GetBytes(data, "dependencies")),
		DevDependencies: stringMap(gjson.GetBytes(data, "devDependencies")),
		PluginRoot:      gjson.GetBytes(data, "workbench.pluginRoot").String(),
	}
	for _, v := range gjson.GetBytes(data, "workbench.bundledPlugins").Array() {
		m.BundledPlugins = append(m.BundledPlugins, v.String())
	}
	for _, v := range gjson.GetBytes(data, "workbench.uiModules").Array() {
		m.UIModules = append(m.UIModules, v.String())
	}
	return m, nil
}

// stringMap converts a gjson object result into a string map.
func stringMap(res gjson.Result) map[string]string {
	if !res.Exists() {
		return nil
	}
	out := make(map[string]string, len(res.Map()))
	res.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}

// SetDependency writes a dependency entry into the manifest on disk.
// dev selects the devDependencies block.
func SetDependency(dir, id, versionRange string, dev bool) error {
	return edit(dir, func(data []byte) ([]byte, error) {
		block := "dependencies"
		if dev {
			block = "devDependencies"
		}
		return sjson.SetBytes(data, escapeKey(block, id), versionRange)
	})
}

// RemoveDependency deletes a package from both dependency blocks on disk.
func RemoveDependency(dir, id string) error {
	return edit(dir, func(data []byte) ([]byte, error) {
		data, err := sjson.DeleteBytes(data, escapeKey("dependencies", id))
		if err != nil {
			return nil, err
		}
		return sjson.DeleteBytes(data, escapeKey("devDependencies", id))
	})
}

// edit applies a JSON transformation to the manifest file in place.
func edit(dir string, fn func([]byte) ([]byte, error)) error {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("reading manifest %s: %w", path, err)
	}

	out, err := fn(data)
	if err != nil {
		return fmt.Errorf("editing manifest %s: %w", path, err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// escapeKey builds an sjson path for a package id. Every path character
// sjson treats specially must be escaped: scoped ids start with '@',
// which would otherwise be read as a modifier and drop the edit.
func escapeKey(block, id string) string {
	escaped := make([]byte, 0, len(id)+2)
	for i := 0; i < len(id); i++ {
		switch id[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, id[i])
	}
	return block + "." + string(escaped)
}
