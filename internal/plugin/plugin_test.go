package plugin

import "testing"

func TestIsPluginID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"workbench-plugin-lint", true},
		{"@workbench/plugin-lint", true},
		{"@acme/workbench-plugin-deploy", true},
		{"@workbench/service", false},
		{"left-pad", false},
		{"@acme/other", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPluginID(tt.id); got != tt.want {
			t.Errorf("IsPluginID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"workbench-plugin-lint", "lint"},
		{"@workbench/plugin-lint", "lint"},
		{"@acme/workbench-plugin-deploy", "deploy"},
		{ServiceID, "service"},
		{BundleID, "service"},
	}

	for _, tt := range tests {
		if got := ShortName(tt.id); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestWebsite(t *testing.T) {
	if got := Website("@workbench/plugin-lint"); got != "https://workbench.dev/plugins/plugin-lint" {
		t.Errorf("Website() = %q", got)
	}
	if got := Website("workbench-plugin-x"); got != "" {
		t.Errorf("Website() = %q, want empty for community plugin", got)
	}
}

func TestStepString(t *testing.T) {
	steps := map[Step]string{
		StepIdle:      "idle",
		StepInstall:   "install",
		StepConfig:    "config",
		StepDiff:      "diff",
		StepUninstall: "uninstall",
	}
	for step, want := range steps {
		if got := step.String(); got != want {
			t.Errorf("Step(%d).String() = %q, want %q", step, got, want)
		}
	}
}

func TestInstallationState(t *testing.T) {
	s := NewInstallationState()
	if !s.Idle() {
		t.Fatal("new state is not idle")
	}

	s.Transition("workbench-plugin-a", StepInstall)
	snap := s.Snapshot()
	if snap.ActivePluginID != "workbench-plugin-a" || snap.Step != StepInstall {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if s.Idle() {
		t.Error("Idle() = true during install")
	}

	s.Clear()
	if !s.Idle() {
		t.Error("Idle() = false after Clear")
	}
}
