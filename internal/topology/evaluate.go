package topology

import "github.com/ShayCichocki/cohort/pkg/models"

// The KPI formulas are closed-form and deterministic. The source material for
// the coordination model fixes only the qualitative ordering (mesh costs more
// than star, star more than lead/single, transcript more than a2a_lite); the
// constants below are chosen to satisfy that ordering with realistic token
// magnitudes. Every branch on an enum is exhaustive so a new variant forces
// an audit of each formula.

// transcriptMultiplier scales message size when full transcripts are embedded
// instead of bounded summaries.
const transcriptMultiplier = 12

// workloadModel holds the per-workload estimation constants.
type workloadModel struct {
	workTokensPerWorker int64   // task-work tokens one worker spends per run
	messagesPerChannel  float64 // coordination messages per channel per run
	basePassRate        float64
	baseLatencySeconds  float64
	tasksPerWorkerHour  float64
}

func modelFor(workload models.WorkloadProfile) workloadModel {
	switch workload {
	case models.WorkloadImplementation:
		return workloadModel{9000, 6, 0.88, 45, 2.0}
	case models.WorkloadDebugging:
		return workloadModel{7000, 10, 0.82, 60, 1.5}
	case models.WorkloadResearch:
		return workloadModel{5000, 8, 0.92, 30, 3.0}
	case models.WorkloadMixed:
		return workloadModel{8000, 8, 0.86, 50, 2.0}
	default:
		return workloadModel{8000, 8, 0.86, 50, 2.0}
	}
}

// channelCount is the coordination-overhead model per topology: single has no
// channels, lead_subagent one, star fans in and out through one coordinator
// (one channel per worker), mesh keeps pairwise channels and grows
// combinatorially.
func channelCount(topology models.TeamTopology, workers int) float64 {
	switch topology {
	case models.TopologySingle:
		return 0
	case models.TopologyLeadSubagent:
		return 1
	case models.TopologyStarTeam:
		return float64(workers)
	case models.TopologyMeshTeam:
		return float64(workers*(workers-1)) / 2
	default:
		return 0
	}
}

// reviewBonus is the pass-rate lift from the topology's review structure.
func reviewBonus(topology models.TeamTopology) float64 {
	switch topology {
	case models.TopologySingle:
		return 0
	case models.TopologyLeadSubagent:
		return 0.04
	case models.TopologyStarTeam:
		return 0.05
	case models.TopologyMeshTeam:
		return 0.03
	default:
		return 0
	}
}

// escapeFactor converts residual failure rate into defect escape; topologies
// with a reviewing coordinator catch more before the caller sees them.
func escapeFactor(topology models.TeamTopology) float64 {
	switch topology {
	case models.TopologySingle:
		return 0.50
	case models.TopologyLeadSubagent:
		return 0.35
	case models.TopologyStarTeam:
		return 0.30
	case models.TopologyMeshTeam:
		return 0.40
	default:
		return 0.50
	}
}

// tierWorkScale sizes per-worker task work to the budget tier: a low tier
// run carries less work per worker, a high tier run more.
func tierWorkScale(tier models.BudgetTier) float64 {
	switch tier {
	case models.BudgetLow:
		return 0.5
	case models.BudgetHigh:
		return 1.5
	default:
		return 1.0
	}
}

// Evaluate estimates KPIs for one topology under the given workload, protocol
// mode, budget tier, and evaluation parameters. The result is
// side-effect-free and reproducible for identical inputs.
func Evaluate(topology models.TeamTopology, workload models.WorkloadProfile, protocol models.ProtocolMode, tier models.BudgetTier, params EvalParams) KPIReport {
	m := modelFor(workload)

	workers := params.Workers
	if workers < 1 {
		workers = 1
	}
	if bound := topology.MaxWorkers(); workers > bound {
		workers = bound
	}

	msgTokens := float64(params.SummaryCapTokens)
	if protocol == models.ProtocolTranscript {
		msgTokens *= transcriptMultiplier
	}

	channels := channelCount(topology, workers)
	coordTokens := channels * m.messagesPerChannel * msgTokens * params.PeerCommFactor * params.CompactionFactor

	// Cheap-tier workers spend roughly 40% fewer tokens on task work.
	workTokens := float64(m.workTokensPerWorker) * tierWorkScale(tier) * float64(workers) * (1 - 0.4*params.CheapTierFraction)

	totalTokens := workTokens + coordTokens
	ratio := 0.0
	if totalTokens > 0 {
		ratio = coordTokens / totalTokens
	}

	passRate := m.basePassRate + reviewBonus(topology) - 0.05*params.CheapTierFraction
	if excess := ratio - 0.20; excess > 0 {
		// Coordination churn past the gate threshold erodes quality.
		passRate -= 0.2 * excess
	}
	passRate = clamp01(passRate)

	return KPIReport{
		Topology:           topology,
		Throughput:         m.tasksPerWorkerHour * float64(workers) * (1 - ratio) * (1 - 0.25*params.CheapTierFraction),
		PassRate:           passRate,
		DefectEscape:       (1 - passRate) * escapeFactor(topology),
		TotalTokens:        int64(totalTokens),
		CoordinationTokens: int64(coordTokens),
		CoordinationRatio:  ratio,
		P95LatencySeconds:  m.baseLatencySeconds * (1 + ratio) * (1 + 0.05*float64(workers-1)),
		Workers:            workers,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
