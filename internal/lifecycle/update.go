package lifecycle

import (
	"context"
	"path/filepath"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/workbench/internal/pkgman"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/progress"
)

// Update brings one plugin to its wanted version. Locally-linked plugins
// are resynced from their source checkout instead of going through the
// package manager; full selects a remove-and-recopy resync. A full reset
// follows so the refreshed plugin's module is live. Returns the refreshed
// plugin record.
func (o *Operations) Update(ctx context.Context, workspace, id string, full bool) (plugin.Plugin, error) {
	var updated plugin.Plugin
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) error {
		ctx = slogcontext.With(ctx, "plugin", id, "workspace", workspace)
		log := slogcontext.FromCtx(ctx)

		p, ok := o.store.FindOne(id, workspace)
		if !ok {
			if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{SkipReset: true}); err != nil {
				return err
			}
			if p, ok = o.store.FindOne(id, workspace); !ok {
				return plugin.ErrNotFound
			}
		}

		t.Status("updating", id)

		if o.resolver.IsLinked(id, p.BaseDir) {
			src, ok := o.resolver.LinkTarget(id, p.BaseDir)
			if !ok {
				return plugin.ErrNotInstalled
			}
			dst := filepath.Join(p.BaseDir, pkgman.PackagesDir, filepath.FromSlash(id))
			log.Info("resyncing linked plugin", "src", src, "full", full)
			if err := pkgman.Resync(src, dst, full); err != nil {
				return err
			}
		} else {
			if err := o.manager.Update(ctx, p.BaseDir, id); err != nil {
				return err
			}
		}

		o.versions.Invalidate(id)
		o.manifests.Invalidate(workspace)

		if _, err := o.runtime.ResetPluginAPI(ctx, workspace, false); err != nil {
			return err
		}
		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{SkipReset: true}); err != nil {
			return err
		}
		if got, ok := o.store.FindOne(id, workspace); ok {
			updated = got
		}
		o.notify("pluginUpdated", id)
		return nil
	})
	return updated, err
}

// UpdateAll computes version drift for every visible plugin and updates
// the outdated ones in a single package-manager invocation. With nothing
// outdated it notifies and returns an empty set.
func (o *Operations) UpdateAll(ctx context.Context, workspace string) ([]plugin.Plugin, error) {
	var updated []plugin.Plugin
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) error {
		ctx = slogcontext.With(ctx, "workspace", workspace)

		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{SkipReset: true}); err != nil {
			return err
		}
		m, err := o.manifests.Get(workspace)
		if err != nil {
			return err
		}

		var outdated []string
		for _, p := range o.store.Visible(workspace) {
			if !m.HasDependency(p.ID) {
				continue
			}
			if o.versions.Read(ctx, m, p.ID).Outdated() {
				outdated = append(outdated, p.ID)
			}
		}

		if len(outdated) == 0 {
			o.notify("noPluginUpdates")
			return nil
		}

		t.Status("updatingAll", outdated...)
		if err := o.manager.Update(ctx, workspace, outdated...); err != nil {
			return err
		}
		for _, id := range outdated {
			o.versions.Invalidate(id)
		}
		o.manifests.Invalidate(workspace)

		if _, err := o.runtime.ResetPluginAPI(ctx, workspace, false); err != nil {
			return err
		}
		if _, err := o.discovery.Discover(ctx, workspace, plugin.DiscoverOptions{SkipReset: true}); err != nil {
			return err
		}

		set := make(map[string]bool, len(outdated))
		for _, id := range outdated {
			set[id] = true
		}
		for _, p := range o.store.Visible(workspace) {
			if set[p.ID] {
				updated = append(updated, p)
			}
		}
		o.notify("pluginsUpdated")
		return nil
	})
	return updated, err
}
