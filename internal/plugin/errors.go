package plugin

import "errors"

// Plugin system errors.
var (
	// ErrNotFound is returned when a plugin cannot be located in the store.
	ErrNotFound = errors.New("plugin not found")

	// ErrOperationInFlight is returned when a lifecycle operation starts
	// while another one is still running for the same workspace.
	ErrOperationInFlight = errors.New("a plugin operation is already in progress")

	// ErrNoRuntime is returned when an operation needs a workspace
	// extension runtime and none exists.
	ErrNoRuntime = errors.New("no plugin runtime for workspace")

	// ErrNotInstalled is returned when an operation requires the plugin
	// package to be present on disk.
	ErrNotInstalled = errors.New("plugin is not installed")
)
