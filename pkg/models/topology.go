package models

// TeamTopology is the shape of agent communication for a run.
type TeamTopology string

const (
	// TopologySingle is one agent working alone.
	TopologySingle TeamTopology = "single"
	// TopologyLeadSubagent is one lead delegating to a single subagent.
	TopologyLeadSubagent TeamTopology = "lead_subagent"
	// TopologyStarTeam is a team fanning in and out through one coordinator.
	TopologyStarTeam TeamTopology = "star_team"
	// TopologyMeshTeam is a team with pairwise channels between all workers.
	TopologyMeshTeam TeamTopology = "mesh_team"
)

// Valid returns true if the topology is a known value.
func (t TeamTopology) Valid() bool {
	switch t {
	case TopologySingle, TopologyLeadSubagent, TopologyStarTeam, TopologyMeshTeam:
		return true
	default:
		return false
	}
}

// MaxWorkers returns the bound on concurrent workers for the topology.
func (t TeamTopology) MaxWorkers() int {
	switch t {
	case TopologySingle:
		return 1
	case TopologyLeadSubagent:
		return 2
	case TopologyStarTeam:
		return 5
	case TopologyMeshTeam:
		return 6
	default:
		return 1
	}
}

// AllTopologies returns every topology in a fixed order.
func AllTopologies() []TeamTopology {
	return []TeamTopology{
		TopologySingle,
		TopologyLeadSubagent,
		TopologyStarTeam,
		TopologyMeshTeam,
	}
}

// WorkloadProfile tunes the KPI estimation formulas for the kind of work
// the agents will be doing.
type WorkloadProfile string

const (
	// WorkloadImplementation is feature and code-writing work.
	WorkloadImplementation WorkloadProfile = "implementation"
	// WorkloadDebugging is fault isolation and fixing work.
	WorkloadDebugging WorkloadProfile = "debugging"
	// WorkloadResearch is exploration and summarization work.
	WorkloadResearch WorkloadProfile = "research"
	// WorkloadMixed is a blend of the above.
	WorkloadMixed WorkloadProfile = "mixed"
)

// Valid returns true if the workload profile is a known value.
func (w WorkloadProfile) Valid() bool {
	switch w {
	case WorkloadImplementation, WorkloadDebugging, WorkloadResearch, WorkloadMixed:
		return true
	default:
		return false
	}
}

// ProtocolMode selects the inter-agent message size model.
type ProtocolMode string

const (
	// ProtocolA2ALite is the bounded, pointer-based message protocol.
	ProtocolA2ALite ProtocolMode = "a2a_lite"
	// ProtocolTranscript embeds full transcripts; message sizes are unbounded.
	ProtocolTranscript ProtocolMode = "transcript"
)

// Valid returns true if the protocol mode is a known value.
func (p ProtocolMode) Valid() bool {
	switch p {
	case ProtocolA2ALite, ProtocolTranscript:
		return true
	default:
		return false
	}
}

// DegradationPolicy controls how aggressively cost-reduction levers are
// applied when governance gates fail.
type DegradationPolicy string

const (
	// DegradationNone never applies levers.
	DegradationNone DegradationPolicy = "none"
	// DegradationAuto applies levers only after a gate failure.
	DegradationAuto DegradationPolicy = "auto"
	// DegradationAggressive applies every lever up front, trading quality
	// for guaranteed headroom.
	DegradationAggressive DegradationPolicy = "aggressive"
)

// Valid returns true if the degradation policy is a known value.
func (d DegradationPolicy) Valid() bool {
	switch d {
	case DegradationNone, DegradationAuto, DegradationAggressive:
		return true
	default:
		return false
	}
}

// RecommendationMode selects the scoring policy used to rank topologies.
type RecommendationMode string

const (
	// RecommendBalanced weights quality and cost equally.
	RecommendBalanced RecommendationMode = "balanced"
	// RecommendCost minimizes token spend subject to gates passing.
	RecommendCost RecommendationMode = "cost"
	// RecommendQuality maximizes pass rate minus defect escape subject to
	// gates passing.
	RecommendQuality RecommendationMode = "quality"
)

// Valid returns true if the recommendation mode is a known value.
func (m RecommendationMode) Valid() bool {
	switch m {
	case RecommendBalanced, RecommendCost, RecommendQuality:
		return true
	default:
		return false
	}
}
