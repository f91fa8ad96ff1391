package models

import "fmt"

// BudgetTier selects one level of a budget envelope.
type BudgetTier string

const (
	// BudgetLow is the cheapest tier.
	BudgetLow BudgetTier = "low"
	// BudgetMedium is the standard tier.
	BudgetMedium BudgetTier = "medium"
	// BudgetHigh is the most generous tier.
	BudgetHigh BudgetTier = "high"
)

// Valid returns true if the budget tier is a known value.
func (t BudgetTier) Valid() bool {
	switch t {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return true
	default:
		return false
	}
}

// BudgetLevels decomposes one tier into a run -> team -> task -> message
// hierarchy. Each lower level must not exceed its parent.
type BudgetLevels struct {
	// Run is the total token budget for an orchestration run.
	Run int64 `json:"run" yaml:"run"`
	// Team is the budget for one team within the run.
	Team int64 `json:"team" yaml:"team"`
	// Task is the budget for a single task.
	Task int64 `json:"task" yaml:"task"`
	// Message is the budget for a single inter-agent message.
	Message int64 `json:"message" yaml:"message"`
}

// Validate checks the hierarchy invariant. A violation is a configuration
// error and is never silently clamped.
func (l BudgetLevels) Validate() error {
	if l.Run <= 0 {
		return fmt.Errorf("run budget must be positive, got %d", l.Run)
	}
	if l.Team > l.Run {
		return fmt.Errorf("team budget %d exceeds run budget %d", l.Team, l.Run)
	}
	if l.Task > l.Team {
		return fmt.Errorf("task budget %d exceeds team budget %d", l.Task, l.Team)
	}
	if l.Message > l.Task {
		return fmt.Errorf("message budget %d exceeds task budget %d", l.Message, l.Task)
	}
	return nil
}

// BudgetEnvelope holds the budget hierarchy for every tier.
type BudgetEnvelope struct {
	Low    BudgetLevels `json:"low" yaml:"low"`
	Medium BudgetLevels `json:"medium" yaml:"medium"`
	High   BudgetLevels `json:"high" yaml:"high"`
}

// Levels returns the budget hierarchy for the given tier.
func (e BudgetEnvelope) Levels(tier BudgetTier) BudgetLevels {
	switch tier {
	case BudgetLow:
		return e.Low
	case BudgetHigh:
		return e.High
	default:
		return e.Medium
	}
}

// Validate checks every tier's hierarchy invariant.
func (e BudgetEnvelope) Validate() error {
	for _, tier := range []BudgetTier{BudgetLow, BudgetMedium, BudgetHigh} {
		if err := e.Levels(tier).Validate(); err != nil {
			return fmt.Errorf("%s tier: %w", tier, err)
		}
	}
	return nil
}

// DefaultEnvelope returns the standard three-tier budget envelope.
func DefaultEnvelope() BudgetEnvelope {
	return BudgetEnvelope{
		Low:    BudgetLevels{Run: 50_000, Team: 25_000, Task: 8_000, Message: 300},
		Medium: BudgetLevels{Run: 200_000, Team: 100_000, Task: 30_000, Message: 600},
		High:   BudgetLevels{Run: 800_000, Team: 400_000, Task: 120_000, Message: 1_200},
	}
}
