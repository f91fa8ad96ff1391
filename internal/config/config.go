// Package config handles configuration loading and management for Cohort.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/cohort/pkg/models"
)

// Config holds all configuration for Cohort.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Gates    GatesConfig    `mapstructure:"gates"`
	Handoff  HandoffConfig  `mapstructure:"handoff"`
	Budgets  BudgetsConfig  `mapstructure:"budgets"`
}

// DefaultsConfig holds default values for planning runs.
type DefaultsConfig struct {
	// Workload is the default workload profile.
	Workload string `mapstructure:"workload"`
	// Protocol is the default message protocol mode.
	Protocol string `mapstructure:"protocol"`
	// BudgetTier is the default budget tier.
	BudgetTier string `mapstructure:"budget_tier"`
	// Mode is the default recommendation scoring mode.
	Mode string `mapstructure:"mode"`
	// Degradation is the default degradation policy.
	Degradation string `mapstructure:"degradation"`
}

// GatesConfig holds governance gate thresholds.
type GatesConfig struct {
	// MaxCoordinationRatio is the ceiling on coordination token share.
	MaxCoordinationRatio float64 `mapstructure:"max_coordination_ratio"`
	// MinPassRate is the floor on estimated pass rate.
	MinPassRate float64 `mapstructure:"min_pass_rate"`
	// MaxP95LatencySeconds is the ceiling on estimated p95 task latency.
	MaxP95LatencySeconds float64 `mapstructure:"max_p95_latency_s"`
}

// HandoffConfig holds message compaction settings.
type HandoffConfig struct {
	// MaxSummaryTokens caps message summaries.
	MaxSummaryTokens int `mapstructure:"max_summary_tokens"`
	// AllowRawTranscript permits embedding full transcripts.
	AllowRawTranscript bool `mapstructure:"allow_raw_transcript"`
	// EscalateOnRisk lists risk levels routed to the coordinator.
	EscalateOnRisk []string `mapstructure:"escalate_on_risk"`
	// Coordinator is the coordinator identity escalations are routed to.
	Coordinator string `mapstructure:"coordinator"`
}

// BudgetsConfig holds the per-tier budget hierarchy.
type BudgetsConfig struct {
	Low    TierBudgetConfig `mapstructure:"low"`
	Medium TierBudgetConfig `mapstructure:"medium"`
	High   TierBudgetConfig `mapstructure:"high"`
}

// TierBudgetConfig is one tier's run/team/task/message hierarchy.
type TierBudgetConfig struct {
	Run     int64 `mapstructure:"run"`
	Team    int64 `mapstructure:"team"`
	Task    int64 `mapstructure:"task"`
	Message int64 `mapstructure:"message"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (COHORT_*)
// 2. Project config (.cohort.yaml in current directory or a parent)
// 3. User config (~/.config/cohort/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Merge project config if present (takes precedence).
	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("COHORT")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with built-in default values.
func Default() *Config {
	envelope := models.DefaultEnvelope()
	policy := models.DefaultHandoffPolicy()
	levels := func(l models.BudgetLevels) TierBudgetConfig {
		return TierBudgetConfig{Run: l.Run, Team: l.Team, Task: l.Task, Message: l.Message}
	}
	return &Config{
		Defaults: DefaultsConfig{
			Workload:    string(models.WorkloadMixed),
			Protocol:    string(models.ProtocolA2ALite),
			BudgetTier:  string(models.BudgetMedium),
			Mode:        string(models.RecommendBalanced),
			Degradation: string(models.DegradationAuto),
		},
		Gates: GatesConfig{
			MaxCoordinationRatio: 0.20,
			MinPassRate:          0.80,
			MaxP95LatencySeconds: 90,
		},
		Handoff: HandoffConfig{
			MaxSummaryTokens:   policy.MaxSummaryTokens,
			AllowRawTranscript: policy.AllowRawTranscript,
			EscalateOnRisk:     []string{string(models.RiskHigh), string(models.RiskCritical)},
			Coordinator:        "coordinator",
		},
		Budgets: BudgetsConfig{
			Low:    levels(envelope.Low),
			Medium: levels(envelope.Medium),
			High:   levels(envelope.High),
		},
	}
}

// Validate checks threshold ranges and the budget hierarchy.
func (c *Config) Validate() error {
	if c.Gates.MaxCoordinationRatio <= 0 || c.Gates.MaxCoordinationRatio > 1 {
		return fmt.Errorf("gates.max_coordination_ratio must be in (0,1], got %f", c.Gates.MaxCoordinationRatio)
	}
	if c.Gates.MinPassRate < 0 || c.Gates.MinPassRate > 1 {
		return fmt.Errorf("gates.min_pass_rate must be in [0,1], got %f", c.Gates.MinPassRate)
	}
	if c.Gates.MaxP95LatencySeconds <= 0 {
		return fmt.Errorf("gates.max_p95_latency_s must be positive, got %f", c.Gates.MaxP95LatencySeconds)
	}
	if c.Handoff.MaxSummaryTokens <= 0 {
		return fmt.Errorf("handoff.max_summary_tokens must be positive, got %d", c.Handoff.MaxSummaryTokens)
	}
	for _, risk := range c.Handoff.EscalateOnRisk {
		if !models.RiskLevel(risk).Valid() {
			return fmt.Errorf("handoff.escalate_on_risk: unknown risk level %q", risk)
		}
	}
	return c.Envelope().Validate()
}

// Envelope converts the configured budgets into a model envelope.
func (c *Config) Envelope() models.BudgetEnvelope {
	levels := func(t TierBudgetConfig) models.BudgetLevels {
		return models.BudgetLevels{Run: t.Run, Team: t.Team, Task: t.Task, Message: t.Message}
	}
	return models.BudgetEnvelope{
		Low:    levels(c.Budgets.Low),
		Medium: levels(c.Budgets.Medium),
		High:   levels(c.Budgets.High),
	}
}

// HandoffPolicy converts the configured handoff settings into a policy.
func (c *Config) HandoffPolicy() models.HandoffPolicy {
	risks := make([]models.RiskLevel, 0, len(c.Handoff.EscalateOnRisk))
	for _, risk := range c.Handoff.EscalateOnRisk {
		risks = append(risks, models.RiskLevel(risk))
	}
	return models.HandoffPolicy{
		MaxSummaryTokens:   c.Handoff.MaxSummaryTokens,
		AllowRawTranscript: c.Handoff.AllowRawTranscript,
		EscalateOnRisk:     risks,
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.workload", string(models.WorkloadMixed))
	v.SetDefault("defaults.protocol", string(models.ProtocolA2ALite))
	v.SetDefault("defaults.budget_tier", string(models.BudgetMedium))
	v.SetDefault("defaults.mode", string(models.RecommendBalanced))
	v.SetDefault("defaults.degradation", string(models.DegradationAuto))

	v.SetDefault("gates.max_coordination_ratio", 0.20)
	v.SetDefault("gates.min_pass_rate", 0.80)
	v.SetDefault("gates.max_p95_latency_s", 90.0)

	policy := models.DefaultHandoffPolicy()
	v.SetDefault("handoff.max_summary_tokens", policy.MaxSummaryTokens)
	v.SetDefault("handoff.allow_raw_transcript", policy.AllowRawTranscript)
	v.SetDefault("handoff.escalate_on_risk", []string{string(models.RiskHigh), string(models.RiskCritical)})
	v.SetDefault("handoff.coordinator", "coordinator")

	envelope := models.DefaultEnvelope()
	for tier, levels := range map[string]models.BudgetLevels{
		"low":    envelope.Low,
		"medium": envelope.Medium,
		"high":   envelope.High,
	} {
		v.SetDefault("budgets."+tier+".run", levels.Run)
		v.SetDefault("budgets."+tier+".team", levels.Team)
		v.SetDefault("budgets."+tier+".task", levels.Task)
		v.SetDefault("budgets."+tier+".message", levels.Message)
	}
}

// getUserConfigDir returns the XDG config directory for Cohort.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cohort")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cohort"
	}
	return filepath.Join(home, ".config", "cohort")
}

// findProjectConfig walks up from the working directory looking for a
// .cohort.yaml file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".cohort.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
