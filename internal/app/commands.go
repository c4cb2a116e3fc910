package app

import (
	"context"

	"github.com/dshills/workbench/internal/command"
)

// Built-in command ids.
const (
	CmdShowCommands     = "workbench.showCommands"
	CmdReloadPlugins    = "workbench.reloadPlugins"
	CmdUpdateAllPlugins = "workbench.updateAllPlugins"
	CmdCloseProject     = "workbench.closeProject"
	CmdOpenSettings     = "workbench.openSettings"
)

// registerBuiltinCommands seeds the registry with the host's own
// command set. Plugin contributions arrive later through the runtime.
func (a *Application) registerBuiltinCommands() error {
	cmds := []command.Command{
		{
			ID:          CmdShowCommands,
			Type:        command.TypeHelp,
			Label:       "Command Reference",
			Description: "List every available command",
		},
		{
			ID:          CmdReloadPlugins,
			Type:        command.TypeAction,
			Label:       "Reload Plugins",
			Description: "Tear down and rebuild the plugin runtime for the current project",
			Handler:     a.reloadPlugins,
		},
		{
			ID:          CmdUpdateAllPlugins,
			Type:        command.TypePackage,
			Label:       "Update All Plugins",
			Description: "Update every outdated plugin in the current project",
			Handler:     a.updateAllPlugins,
		},
		{
			ID:          CmdCloseProject,
			Type:        command.TypeProject,
			Label:       "Close Current Project",
			Handler:     a.closeCurrentProject,
		},
		{
			ID:      CmdOpenSettings,
			Type:    command.TypeConfig,
			Label:   "Open Settings",
			Handler: a.openSettings,
		},
	}
	for _, cmd := range cmds {
		if err := a.commands.Add(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) reloadPlugins() {
	proj := a.projects.Current()
	if proj == nil {
		return
	}
	if _, err := a.runtime.ResetPluginAPI(context.Background(), proj.Path, false); err != nil {
		a.log.Warn("plugin reload failed", "workspace", proj.Path, "error", err)
	}
}

func (a *Application) updateAllPlugins() {
	proj := a.projects.Current()
	if proj == nil {
		return
	}
	if _, err := a.ops.UpdateAll(context.Background(), proj.Path); err != nil {
		a.log.Warn("plugin update failed", "workspace", proj.Path, "error", err)
	}
}

func (a *Application) closeCurrentProject() {
	a.projects.Close()
}

func (a *Application) openSettings() {
	proj := a.projects.Current()
	if proj == nil {
		return
	}
	a.runtime.SetOpenView(proj.Path, "settings")
}
