// Package plugin provides the plugin model for the workbench: discovery of
// installable plugins from the workspace manifest, the process-wide plugin
// store, and the installation state machine shared by lifecycle operations.
package plugin

import "strings"

// Reserved identifiers and naming conventions.
const (
	// ServiceID is the reserved build-service package identifier.
	ServiceID = "@workbench/service"

	// BundleID is the pseudo-plugin synthesized for legacy workspaces that
	// declare bundled plugins instead of depending on the build service.
	BundleID = "@workbench/service-bundle"

	// OfficialScope marks packages maintained by the workbench project.
	OfficialScope = "@workbench/"
)

const (
	pluginPrefix         = "workbench-plugin-"
	officialPluginPrefix = "@workbench/plugin-"
)

// Kind distinguishes how a plugin entry came to exist.
type Kind int

const (
	// KindDeclared is a plugin declared in the workspace manifest.
	KindDeclared Kind = iota

	// KindBundle is the synthesized hidden bundle pseudo-plugin.
	KindBundle

	// KindBundleMember is a synthetic entry for one bundle-declared plugin.
	KindBundleMember
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDeclared:
		return "declared"
	case KindBundle:
		return "bundle"
	case KindBundleMember:
		return "bundle-member"
	default:
		return "unknown"
	}
}

// Plugin is an immutable snapshot of one installable plugin for a
// workspace. Identity is (ID, BaseDir). The struct is comparable so plugin
// lists can be checked for structural equality with slices.Equal.
type Plugin struct {
	// ID is the package-style identifier.
	ID string

	// VersionRange is the declared version range, empty for synthetic
	// entries.
	VersionRange string

	// Official reports whether the plugin is maintained by the workbench
	// project.
	Official bool

	// Installed reports whether the package is present on disk.
	Installed bool

	// Website is the plugin's documentation URL, empty when unknown.
	Website string

	// BaseDir is the directory plugins resolve from for this workspace.
	BaseDir string

	// Hidden excludes the entry from caller-visible listings. Hidden
	// entries stay in the store for link resolution and reset iteration.
	Hidden bool

	// Kind records the entry's origin.
	Kind Kind
}

// IsService reports whether the plugin is the build service or its bundle
// substitute.
func (p Plugin) IsService() bool {
	return p.ID == ServiceID || p.ID == BundleID
}

// IsPluginID reports whether a package id follows the plugin naming
// convention. The build-service id is reserved and not itself a plugin id.
func IsPluginID(id string) bool {
	if strings.HasPrefix(id, pluginPrefix) || strings.HasPrefix(id, officialPluginPrefix) {
		return true
	}
	// Scoped community plugins: @scope/workbench-plugin-name.
	if strings.HasPrefix(id, "@") {
		if i := strings.IndexByte(id, '/'); i > 0 {
			return strings.HasPrefix(id[i+1:], pluginPrefix)
		}
	}
	return false
}

// IsOfficial reports whether a package id belongs to the official scope.
func IsOfficial(id string) bool {
	return strings.HasPrefix(id, OfficialScope)
}

// Website returns the documentation URL for a plugin id.
// Official plugins link to the workbench plugin catalog; community plugins
// have no known website until their package metadata is fetched.
func Website(id string) string {
	if IsOfficial(id) {
		return "https://workbench.dev/plugins/" + strings.TrimPrefix(id, OfficialScope)
	}
	return ""
}

// ShortName strips the naming-convention prefix from a plugin id for
// display purposes.
func ShortName(id string) string {
	if id == ServiceID || id == BundleID {
		return "service"
	}
	name := id
	if i := strings.IndexByte(name, '/'); strings.HasPrefix(name, "@") && i > 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(strings.TrimPrefix(name, pluginPrefix), "plugin-")
}
