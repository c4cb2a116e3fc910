package plugin

import (
	"context"
	"log/slog"
	"slices"
	"sort"

	"github.com/dshills/workbench/internal/manifest"
)

// PathResolver locates an installed package on disk.
// Resolution failure means "not installed", never an error.
type PathResolver interface {
	// InstalledPath returns the package directory for id resolved from the
	// given base directory, and whether it exists.
	InstalledPath(id, from string) (string, bool)
}

// ResetTrigger is the discovery-side view of the plugin API reset protocol.
// Declared here so discovery does not import the extension runtime, which
// itself reads the Store.
type ResetTrigger interface {
	// ResetPluginAPI tears down and rebuilds the workspace's extension
	// context. Returns true if a runtime instance exists afterwards.
	ResetPluginAPI(ctx context.Context, workspace string, light bool) (bool, error)
}

// DiscoverOptions tune a discovery pass.
type DiscoverOptions struct {
	// Light skips heavyweight reset side effects; used by read-only
	// listing paths.
	Light bool

	// SkipReset suppresses the reset protocol even when the plugin list
	// changed.
	SkipReset bool
}

// Discovery derives the plugin list for a workspace from its manifest.
type Discovery struct {
	manifests *manifest.Cache
	store     *Store
	resolver  PathResolver
	reset     ResetTrigger
	log       *slog.Logger
}

// NewDiscovery creates a discovery service. reset may be nil until the
// runtime is attached (two-phase initialization).
func NewDiscovery(manifests *manifest.Cache, store *Store, resolver PathResolver, log *slog.Logger) *Discovery {
	if log == nil {
		log = slog.Default()
	}
	return &Discovery{
		manifests: manifests,
		store:     store,
		resolver:  resolver,
		log:       log,
	}
}

// AttachReset wires the reset protocol in after construction.
// Discovery and the extension runtime depend on each other; the runtime is
// built second and attached here.
func (d *Discovery) AttachReset(reset ResetTrigger) {
	d.reset = reset
}

// Discover scans the workspace manifest and returns the non-hidden plugins.
//
// When the derived list is structurally equal to the stored one, the stored
// list is returned unchanged and no store write or reset happens, which
// prevents reset storms on repeated discovery calls. On a genuine change
// the store is updated and, unless suppressed, the reset protocol runs.
func (d *Discovery) Discover(ctx context.Context, workspace string, opts DiscoverOptions) ([]Plugin, error) {
	m, err := d.manifests.Get(workspace)
	if err != nil {
		return nil, err
	}

	list := d.derive(m)

	prev := d.store.Get(workspace)
	if slices.Equal(prev, list) {
		return visible(prev), nil
	}

	d.store.Set(workspace, list)
	d.log.Debug("plugin list changed", "workspace", workspace, "count", len(list))

	if !opts.SkipReset && d.reset != nil {
		ok, err := d.reset.ResetPluginAPI(ctx, workspace, opts.Light)
		if err != nil {
			d.log.Error("plugin api reset failed", "workspace", workspace, "error", err)
		} else if !ok {
			d.log.Debug("no plugin runtime after reset", "workspace", workspace)
		}
	}

	return visible(list), nil
}

// derive builds the plugin list from a manifest snapshot.
func (d *Discovery) derive(m *manifest.Manifest) []Plugin {
	baseDir := m.Dir
	deps := m.AllDependencies()

	ids := make([]string, 0, len(deps))
	for id := range deps {
		if id == ServiceID || IsPluginID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	list := make([]Plugin, 0, len(ids)+1+len(m.BundledPlugins))
	for _, id := range ids {
		_, installed := d.resolver.InstalledPath(id, baseDir)
		list = append(list, Plugin{
			ID:           id,
			VersionRange: deps[id],
			Official:     id == ServiceID || IsOfficial(id),
			Installed:    installed,
			Website:      Website(id),
			BaseDir:      baseDir,
			Kind:         KindDeclared,
		})
	}

	// Legacy bundled-plugin escape hatch: a hidden bundle pseudo-plugin
	// stands in for the build service, plus one synthetic entry per
	// declared member.
	if len(m.BundledPlugins) > 0 {
		list = append(list, Plugin{
			ID:        BundleID,
			Official:  true,
			Installed: true,
			Hidden:    true,
			BaseDir:   baseDir,
			Kind:      KindBundle,
		})
		members := append([]string(nil), m.BundledPlugins...)
		sort.Strings(members)
		for _, id := range members {
			list = append(list, Plugin{
				ID:        id,
				Official:  true,
				Installed: true,
				Website:   Website(id),
				BaseDir:   baseDir,
				Kind:      KindBundleMember,
			})
		}
	}

	// The build service (or its bundle substitute) always loads first.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].IsService() && !list[j].IsService()
	})

	return list
}

// visible filters out hidden entries.
func visible(list []Plugin) []Plugin {
	var result []Plugin
	for _, p := range list {
		if !p.Hidden {
			result = append(result, p)
		}
	}
	return result
}
