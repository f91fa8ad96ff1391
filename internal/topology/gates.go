package topology

import "sort"

// Gate names reported in GateResult failures.
const (
	GateCoordinationRatio = "coordination_ratio"
	GatePassRate          = "pass_rate"
	GateP95Latency        = "p95_latency"
	GateTotalTokens       = "total_tokens"
)

// GateConfig holds the governance thresholds a KPI estimate must satisfy.
// Thresholds are threaded explicitly rather than hardcoded so tests and
// callers can evaluate against alternates.
type GateConfig struct {
	// MaxCoordinationRatio is the ceiling on coordination token share.
	MaxCoordinationRatio float64 `json:"max_coordination_ratio" yaml:"max_coordination_ratio"`
	// MinPassRate is the floor on estimated pass rate.
	MinPassRate float64 `json:"min_pass_rate" yaml:"min_pass_rate"`
	// MaxP95LatencySeconds is the ceiling on estimated p95 task latency.
	MaxP95LatencySeconds float64 `json:"max_p95_latency_s" yaml:"max_p95_latency_s"`
	// MaxTotalTokens is the run budget ceiling on estimated spend.
	MaxTotalTokens int64 `json:"max_total_tokens" yaml:"max_total_tokens"`
}

// DefaultGateConfig returns the standard thresholds against the given run
// budget: coordination ratio <= 0.20, pass rate >= 0.80, p95 <= 90s.
func DefaultGateConfig(runBudget int64) GateConfig {
	return GateConfig{
		MaxCoordinationRatio: 0.20,
		MinPassRate:          0.80,
		MaxP95LatencySeconds: 90,
		MaxTotalTokens:       runBudget,
	}
}

// GateResult reports which governance gates a KPI estimate satisfies.
type GateResult struct {
	// Pass is true iff every gate holds.
	Pass bool `json:"pass"`
	// Failures names every failing gate, sorted. Callers need the full set
	// to pick a degradation strategy, not just the first failure.
	Failures []string `json:"failures,omitempty"`
}

// CheckGates evaluates all four gates independently against the KPI estimate.
func CheckGates(kpi KPIReport, cfg GateConfig) GateResult {
	var failures []string

	if kpi.CoordinationRatio > cfg.MaxCoordinationRatio {
		failures = append(failures, GateCoordinationRatio)
	}
	if kpi.PassRate < cfg.MinPassRate {
		failures = append(failures, GatePassRate)
	}
	if kpi.P95LatencySeconds > cfg.MaxP95LatencySeconds {
		failures = append(failures, GateP95Latency)
	}
	if kpi.TotalTokens > cfg.MaxTotalTokens {
		failures = append(failures, GateTotalTokens)
	}

	sort.Strings(failures)
	return GateResult{Pass: len(failures) == 0, Failures: failures}
}
