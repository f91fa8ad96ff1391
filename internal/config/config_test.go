package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ShayCichocki/cohort/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromPath_Defaults(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadFromPath() failed: %v", err)
	}

	if cfg.Defaults.Workload != string(models.WorkloadMixed) {
		t.Errorf("default workload = %s, want mixed", cfg.Defaults.Workload)
	}
	if cfg.Gates.MaxCoordinationRatio != 0.20 {
		t.Errorf("default coordination gate = %f, want 0.20", cfg.Gates.MaxCoordinationRatio)
	}
	if cfg.Gates.MinPassRate != 0.80 {
		t.Errorf("default pass rate gate = %f, want 0.80", cfg.Gates.MinPassRate)
	}
	if cfg.Handoff.Coordinator != "coordinator" {
		t.Errorf("default coordinator = %s", cfg.Handoff.Coordinator)
	}
	if err := cfg.Envelope().Validate(); err != nil {
		t.Errorf("default envelope invalid: %v", err)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, `
defaults:
  workload: debugging
  mode: cost
gates:
  max_coordination_ratio: 0.35
handoff:
  max_summary_tokens: 80
  coordinator: lead-agent
budgets:
  medium:
    run: 100000
    team: 50000
    task: 10000
    message: 400
`))
	if err != nil {
		t.Fatalf("LoadFromPath() failed: %v", err)
	}

	if cfg.Defaults.Workload != "debugging" || cfg.Defaults.Mode != "cost" {
		t.Errorf("overridden defaults not applied: %+v", cfg.Defaults)
	}
	if cfg.Gates.MaxCoordinationRatio != 0.35 {
		t.Errorf("gate override = %f, want 0.35", cfg.Gates.MaxCoordinationRatio)
	}
	if cfg.Handoff.MaxSummaryTokens != 80 || cfg.Handoff.Coordinator != "lead-agent" {
		t.Errorf("handoff overrides not applied: %+v", cfg.Handoff)
	}
	if cfg.Envelope().Medium.Run != 100000 {
		t.Errorf("medium run budget = %d, want 100000", cfg.Envelope().Medium.Run)
	}
}

func TestLoadFromPath_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "coordination ratio out of range",
			content: "gates:\n  max_coordination_ratio: 1.5\n",
		},
		{
			name:    "negative summary cap",
			content: "handoff:\n  max_summary_tokens: -10\n",
		},
		{
			name:    "unknown risk level",
			content: "handoff:\n  escalate_on_risk: [catastrophic]\n",
		},
		{
			name:    "inverted budget hierarchy",
			content: "budgets:\n  low:\n    run: 100\n    team: 500\n    task: 50\n    message: 5\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromPath(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefault_MatchesLoadedDefaults(t *testing.T) {
	loaded, err := LoadFromPath(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadFromPath() failed: %v", err)
	}
	if !reflect.DeepEqual(Default(), loaded) {
		t.Errorf("Default() = %+v, loaded defaults = %+v", Default(), loaded)
	}
}

func TestHandoffPolicyConversion(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadFromPath() failed: %v", err)
	}

	policy := cfg.HandoffPolicy()
	if !policy.Escalates(models.RiskCritical) || !policy.Escalates(models.RiskHigh) {
		t.Error("default policy should escalate high and critical risk")
	}
	if policy.Escalates(models.RiskLow) {
		t.Error("default policy should not escalate low risk")
	}
}
