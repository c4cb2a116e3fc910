package extension

import (
	"context"

	"github.com/dshills/workbench/internal/project"
)

// ResetPluginAPI tears down the workspace's extension context and rebuilds
// it by re-invoking every plugin's module. It returns true if a runtime
// instance exists for the workspace afterwards, false when the workspace
// resolves to no project or to a project type the plugin system does not
// manage.
//
// Teardown is fully ordered before the rebuild. Project resolution is
// deferred to the next scheduler tick relative to teardown: the project
// registry may itself still be initializing against this runtime, and the
// deferral breaks that re-entrancy. When resolution fails the teardown has
// already happened, so the workspace is left with no runtime instance
// rather than a stale or half-built one.
func (r *Runtime) ResetPluginAPI(ctx context.Context, workspace string, light bool) (bool, error) {
	// Step 1: discard the prior context and reverse its side effects.
	r.mu.Lock()
	prev := r.contexts[workspace]
	delete(r.contexts, workspace)
	r.mu.Unlock()

	var prevProject *project.Project
	if prev != nil {
		prevProject = prev.Project()
		r.regs.Views.ClearWorkspace(workspace)
		prev.Teardown() // unregisters IPC handlers, closes script runtimes
		if !light {
			if prevProject != nil {
				r.regs.SharedData.StopWatching(prevProject.ID, workspace)
			}
			r.regs.Addons.ClearWorkspace(workspace)
			r.regs.Suggestions.ClearWorkspace(workspace)
			r.regs.Widgets.ClearWorkspace(workspace)
		}
	}

	// Step 2 onwards runs on the next tick.
	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	r.sched.NextTick(func() {
		ok, err := r.rebuild(ctx, workspace, light, prevProject)
		done <- result{ok: ok, err: err}
	})

	select {
	case res := <-done:
		return res.ok, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// rebuild performs steps 2-7 of the reset protocol.
func (r *Runtime) rebuild(ctx context.Context, workspace string, light bool, prevProject *project.Project) (bool, error) {
	// Step 2: resolve the owning project.
	r.mu.RLock()
	projects := r.projects
	r.mu.RUnlock()
	if projects == nil {
		return false, nil
	}
	proj := projects.FindByPath(workspace)
	if proj == nil || proj.Type != project.TypeWorkbench {
		return false, nil
	}

	// Step 3: a fresh context bound to the current plugin list.
	ec := NewContext(workspace, proj, light, r.store.Get(workspace), r.bus)
	r.mu.Lock()
	r.contexts[workspace] = ec
	r.mu.Unlock()

	// Step 4: built-in module first, then every discovered plugin in
	// discovery order (build service first), then workspace-local UI
	// modules from the manifest.
	r.runPluginAPI(ctx, BuiltinPluginID, workspace, ec)
	for _, p := range ec.Plugins() {
		r.runPluginAPI(ctx, p.ID, workspace, ec)
	}
	if m, err := r.manifests.Get(workspace); err == nil {
		for _, mod := range m.UIModules {
			r.runModuleFile(ctx, joinModulePath(m.Dir, mod), ec)
		}
	}

	// Step 5: apply contributions to the external registries, in plugin
	// load order.
	r.applyContributionsSince(ec, counts{})

	// Step 6: lifecycle hooks and widget loading.
	if !light {
		if prevProject == nil || prevProject.ID != proj.ID {
			r.CallHook(HookProjectOpen, map[string]any{
				"project":         proj,
				"previousProject": prevProject,
			}, workspace)
		} else {
			r.CallHook(HookPluginReload, map[string]any{"project": proj}, workspace)
			r.mu.RLock()
			viewID, open := r.openViews[workspace]
			r.mu.RUnlock()
			if open {
				// Force a re-render against the new context.
				r.bus.Publish(ChannelViewOpen, ViewOpenPayload{Workspace: workspace, ViewID: viewID})
			}
		}
		r.bus.Publish(ChannelWidgetsLoad, proj.ID)
	}

	return true, nil
}
