package plugin

import "sync"

// Step is the current phase of the install/uninstall state machine.
type Step int

// Installation steps.
const (
	// StepIdle - no lifecycle operation is running.
	StepIdle Step = iota

	// StepInstall - the package is being installed.
	StepInstall

	// StepConfig - the plugin's prompts are being collected.
	StepConfig

	// StepDiff - the plugin's generated changes are under review.
	StepDiff

	// StepUninstall - the package is being removed.
	StepUninstall
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepInstall:
		return "install"
	case StepConfig:
		return "config"
	case StepDiff:
		return "diff"
	case StepUninstall:
		return "uninstall"
	default:
		return "unknown"
	}
}

// InstallationState is the process-wide install/uninstall state machine.
// Only lifecycle operations mutate it; step transitions are strictly
// sequential per operation and return to StepIdle before another operation
// may start.
type InstallationState struct {
	mu             sync.Mutex
	activePluginID string
	step           Step
}

// NewInstallationState creates an idle state.
func NewInstallationState() *InstallationState {
	return &InstallationState{}
}

// StateSnapshot is a point-in-time copy of the installation state.
type StateSnapshot struct {
	ActivePluginID string
	Step           Step
}

// Snapshot returns the current state.
func (s *InstallationState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{ActivePluginID: s.activePluginID, Step: s.step}
}

// Idle reports whether no operation is in flight.
func (s *InstallationState) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step == StepIdle
}

// Transition sets the active plugin and step.
func (s *InstallationState) Transition(pluginID string, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePluginID = pluginID
	s.step = step
}

// Clear returns the state machine to idle.
func (s *InstallationState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePluginID = ""
	s.step = StepIdle
}
