package lifecycle

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/workbench/internal/manifest"
	"github.com/dshills/workbench/internal/plugin"
	"github.com/dshills/workbench/internal/progress"
)

// Invoke runs a freshly-installed plugin's generator with the collected
// prompt answers, reloads only that plugin's module against the existing
// runtime, and advances the state machine to the diff step.
func (o *Operations) Invoke(ctx context.Context, workspace, id string, answers Answers) (plugin.StateSnapshot, error) {
	err := o.run(ctx, workspace, func(ctx context.Context, t *progress.Task) error {
		ctx = slogcontext.With(ctx, "plugin", id, "workspace", workspace)

		// Cached build configuration may be stale after installation.
		o.manifests.Invalidate(workspace)

		dir, ok := o.installedDir(id, workspace)
		if !ok {
			return plugin.ErrNotInstalled
		}

		if hasGenerator(dir) {
			if err := o.runGenerator(ctx, t, workspace, id, answers); err != nil {
				return err
			}
		}

		if err := o.runtime.ReloadPluginModule(ctx, id, workspace); err != nil {
			return err
		}

		o.state.Transition(id, plugin.StepDiff)
		o.notify("pluginInvoked", id)
		return nil
	})
	return o.state.Snapshot(), err
}

// hasGenerator reports whether the installed package declares a generator
// in its own manifest.
func hasGenerator(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return false
	}
	return gjson.GetBytes(data, "workbench.generator").Exists()
}

// runGenerator spawns the external scaffolding command with the serialized
// prompt answers on stdin, streaming its output line-by-line into both the
// progress channel and the log.
func (o *Operations) runGenerator(ctx context.Context, t *progress.Task, workspace, id string, answers Answers) error {
	if o.scaffold == "" {
		return fmt.Errorf("no scaffold command configured")
	}
	log := slogcontext.FromCtx(ctx)

	input, err := answers.Serialize()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, o.scaffold, "invoke", id)
	cmd.Dir = workspace
	cmd.Stdin = strings.NewReader(input)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s invoke: %w", o.scaffold, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s invoke: %w", o.scaffold, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		t.Status("scaffoldOutput", line)
		log.Info("scaffold output", "line", line)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s invoke: %w", o.scaffold, err)
	}
	return nil
}
