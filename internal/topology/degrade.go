package topology

import (
	"fmt"

	"github.com/ShayCichocki/cohort/pkg/models"
)

// Lever is one discrete cost-reduction action. Levers form a fixed ordered
// sequence; the evaluation loop walks the enumeration rather than branching,
// so adding a lever means adding a variant and an apply case only.
type Lever int

const (
	// LeverReducePeerComm halves peer-to-peer communication volume.
	LeverReducePeerComm Lever = iota
	// LeverTightenSummaries halves the per-message summary cap.
	LeverTightenSummaries
	// LeverReduceWorkers cuts the active worker count to two thirds.
	LeverReduceWorkers
	// LeverDowngradeLowPriority moves half the workers to a cheaper
	// execution tier.
	LeverDowngradeLowPriority
	// LeverIncreaseCompaction compacts message history more often, trimming
	// residual coordination volume.
	LeverIncreaseCompaction
)

// String returns the lever's wire name.
func (l Lever) String() string {
	switch l {
	case LeverReducePeerComm:
		return "reduce_peer_comm"
	case LeverTightenSummaries:
		return "tighten_summaries"
	case LeverReduceWorkers:
		return "reduce_workers"
	case LeverDowngradeLowPriority:
		return "downgrade_low_priority"
	case LeverIncreaseCompaction:
		return "increase_compaction"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so levers serialize by name.
func (l Lever) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for stored reports.
func (l *Lever) UnmarshalText(text []byte) error {
	for _, lever := range AllLevers() {
		if lever.String() == string(text) {
			*l = lever
			return nil
		}
	}
	return fmt.Errorf("unknown degradation lever %q", text)
}

// AllLevers returns the levers in application order.
func AllLevers() []Lever {
	return []Lever{
		LeverReducePeerComm,
		LeverTightenSummaries,
		LeverReduceWorkers,
		LeverDowngradeLowPriority,
		LeverIncreaseCompaction,
	}
}

// apply returns the evaluation parameters with one lever applied.
func apply(lever Lever, params EvalParams) EvalParams {
	switch lever {
	case LeverReducePeerComm:
		params.PeerCommFactor *= 0.5
	case LeverTightenSummaries:
		params.SummaryCapTokens /= 2
		if params.SummaryCapTokens < 40 {
			params.SummaryCapTokens = 40
		}
	case LeverReduceWorkers:
		params.Workers = params.Workers * 2 / 3
		if params.Workers < 1 {
			params.Workers = 1
		}
	case LeverDowngradeLowPriority:
		params.CheapTierFraction = 0.5
	case LeverIncreaseCompaction:
		params.CompactionFactor *= 0.7
	}
	return params
}

// Degrade applies the ordered lever sequence to bring a failing estimate
// within the gates, re-evaluating after each lever and stopping as soon as
// the gates pass or the sequence is exhausted.
//
// Policy none returns the input estimate untouched. Policy auto applies
// levers only when gates fail. Policy aggressive applies every lever before
// checking, trading quality for guaranteed headroom. If the sequence is
// exhausted without passing, the returned report carries DegradedExhausted
// so the recommendation engine can penalize it instead of silently accepting
// an out-of-bounds estimate.
func Degrade(kpi KPIReport, params EvalParams, policy models.DegradationPolicy, workload models.WorkloadProfile, protocol models.ProtocolMode, tier models.BudgetTier, cfg GateConfig) KPIReport {
	switch policy {
	case models.DegradationNone:
		return kpi

	case models.DegradationAggressive:
		applied := make([]Lever, 0, len(AllLevers()))
		for _, lever := range AllLevers() {
			params = apply(lever, params)
			applied = append(applied, lever)
		}
		result := Evaluate(kpi.Topology, workload, protocol, tier, params)
		result.LeversApplied = applied
		if !CheckGates(result, cfg).Pass {
			result.DegradedExhausted = true
		}
		return result

	default: // auto
		if CheckGates(kpi, cfg).Pass {
			return kpi
		}

		result := kpi
		var applied []Lever
		for _, lever := range AllLevers() {
			params = apply(lever, params)
			applied = append(applied, lever)

			result = Evaluate(kpi.Topology, workload, protocol, tier, params)
			result.LeversApplied = append([]Lever(nil), applied...)
			if CheckGates(result, cfg).Pass {
				return result
			}
		}

		result.DegradedExhausted = true
		return result
	}
}
