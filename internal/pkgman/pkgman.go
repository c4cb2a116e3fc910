// Package pkgman wraps the external package manager the workbench shells
// out to, plus the small amount of package introspection the plugin system
// needs: installed-path resolution, version drift, and differential resync
// of locally-linked packages.
package pkgman

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Manager performs package installation for a working directory.
// Implementations must propagate command failure to the caller; lifecycle
// operations abort (without rollback) when the manager fails.
type Manager interface {
	// Install adds a package spec ("id" or "id@range") to the workspace.
	Install(ctx context.Context, dir, spec string) error

	// Uninstall removes a package from the workspace.
	Uninstall(ctx context.Context, dir, id string) error

	// Update updates one or more packages in a single invocation.
	Update(ctx context.Context, dir string, ids ...string) error
}

// ErrNoPackages is returned when Update is called with nothing to update.
var ErrNoPackages = errors.New("no packages given")

// OutputFunc receives one line of package-manager output at a time.
type OutputFunc func(line string)

// ExecManager shells out to a package-manager command.
type ExecManager struct {
	// Command is the package manager binary, e.g. "wpm".
	Command string

	// Output receives streamed command output. May be nil.
	Output OutputFunc
}

// NewExecManager creates a manager for the given command.
func NewExecManager(command string, output OutputFunc) *ExecManager {
	return &ExecManager{Command: command, Output: output}
}

// Install implements Manager.
func (m *ExecManager) Install(ctx context.Context, dir, spec string) error {
	return m.run(ctx, dir, "add", spec)
}

// Uninstall implements Manager.
func (m *ExecManager) Uninstall(ctx context.Context, dir, id string) error {
	return m.run(ctx, dir, "remove", id)
}

// Update implements Manager.
func (m *ExecManager) Update(ctx context.Context, dir string, ids ...string) error {
	if len(ids) == 0 {
		return ErrNoPackages
	}
	return m.run(ctx, dir, "upgrade", ids...)
}

// run executes the package manager and streams its combined output.
func (m *ExecManager) run(ctx context.Context, dir, verb string, args ...string) error {
	cmd := exec.CommandContext(ctx, m.Command, append([]string{verb}, args...)...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s %s: %w", m.Command, verb, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s %s: %w", m.Command, verb, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if m.Output != nil {
			m.Output(scanner.Text())
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s: %w", m.Command, verb, err)
	}
	return nil
}
