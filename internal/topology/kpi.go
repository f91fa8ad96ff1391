// Package topology scores candidate communication topologies against a
// workload, protocol mode, and budget tier, applies governance gates and
// cost-degradation levers, and recommends one topology per scoring mode.
package topology

import "github.com/ShayCichocki/cohort/pkg/models"

// KPIReport holds the estimated key performance indicators for one
// (topology, workload, protocol, budget) combination. Reports are derived,
// read-only values; identical inputs always produce identical reports.
type KPIReport struct {
	// Topology is the topology the report describes.
	Topology models.TeamTopology `json:"topology"`
	// Throughput is the estimated completed tasks per hour.
	Throughput float64 `json:"throughput"`
	// PassRate is the estimated fraction of tasks passing review, 0-1.
	PassRate float64 `json:"pass_rate"`
	// DefectEscape is the estimated fraction of defects reaching the caller.
	DefectEscape float64 `json:"defect_escape"`
	// TotalTokens is the estimated total token spend for a run.
	TotalTokens int64 `json:"total_tokens"`
	// CoordinationTokens is the slice of TotalTokens spent coordinating.
	CoordinationTokens int64 `json:"coordination_tokens"`
	// CoordinationRatio is CoordinationTokens / TotalTokens.
	CoordinationRatio float64 `json:"coordination_ratio"`
	// P95LatencySeconds is the estimated 95th-percentile task latency.
	P95LatencySeconds float64 `json:"p95_latency_s"`
	// Workers is the worker count the estimate was computed for.
	Workers int `json:"workers"`
	// DegradedExhausted is set when every degradation lever was applied and
	// the gates still fail. Non-fatal; the recommendation engine penalizes
	// the topology instead of accepting an out-of-bounds estimate.
	DegradedExhausted bool `json:"degraded_exhausted,omitempty"`
	// LeversApplied records the degradation levers applied, in order.
	LeversApplied []Lever `json:"levers_applied,omitempty"`
}

// EvalParams are the tunable inputs the degradation levers act on.
// Zero values are invalid; start from DefaultParams.
type EvalParams struct {
	// Workers is the active worker count, bounded by the topology.
	Workers int
	// PeerCommFactor scales peer-to-peer message volume, 0-1.
	PeerCommFactor float64
	// SummaryCapTokens caps the size of one coordination message.
	SummaryCapTokens int
	// CheapTierFraction is the fraction of workers downgraded to a cheaper
	// execution tier, 0-1.
	CheapTierFraction float64
	// CompactionFactor scales message volume by compaction cadence, 0-1;
	// lower means more frequent compaction and fewer residual messages.
	CompactionFactor float64
}

// DefaultParams returns evaluation parameters for a topology before any
// degradation lever has been applied.
func DefaultParams(topology models.TeamTopology) EvalParams {
	return EvalParams{
		Workers:           topology.MaxWorkers(),
		PeerCommFactor:    1.0,
		SummaryCapTokens:  150,
		CheapTierFraction: 0,
		CompactionFactor:  1.0,
	}
}
