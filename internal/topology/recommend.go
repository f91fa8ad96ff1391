package topology

import (
	"fmt"
	"math"

	"github.com/ShayCichocki/cohort/pkg/models"
)

// Candidate is one topology's full evaluation record: the (possibly degraded)
// KPI estimate, the gate outcome, and the score under the requested mode.
// Ineligible candidates stay in the report for audit but are never chosen.
type Candidate struct {
	Topology models.TeamTopology `json:"topology"`
	KPI      KPIReport           `json:"kpi"`
	Gates    GateResult          `json:"gates"`
	Score    float64             `json:"score"`
	Eligible bool                `json:"eligible"`
}

// Recommendation is the outcome of ranking candidate topologies.
type Recommendation struct {
	// Mode is the scoring mode the ranking used.
	Mode models.RecommendationMode `json:"mode"`
	// Chosen is the selected topology; empty when no candidate passed the
	// gates even after full degradation.
	Chosen models.TeamTopology `json:"chosen,omitempty"`
	// BestEffort is the highest-scoring topology regardless of gates. It
	// equals Chosen when any candidate is eligible; callers may fall back
	// to it, knowingly, when none is.
	BestEffort models.TeamTopology `json:"best_effort"`
	// Candidates holds every evaluated topology in evaluation order.
	Candidates []Candidate `json:"candidates"`
}

// Recommend evaluates, gates, and degrades every candidate topology, then
// ranks them under the given scoring mode. Tie-breaks prefer fewer workers
// (simpler coordination), then lexicographic topology name, so the result is
// fully deterministic.
func Recommend(candidates []models.TeamTopology, mode models.RecommendationMode, workload models.WorkloadProfile, protocol models.ProtocolMode, tier models.BudgetTier, policy models.DegradationPolicy, cfg GateConfig) (*Recommendation, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate topologies")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown recommendation mode %q", mode)
	}

	rec := &Recommendation{Mode: mode}
	for _, topo := range candidates {
		if !topo.Valid() {
			return nil, fmt.Errorf("unknown topology %q", topo)
		}

		params := DefaultParams(topo)
		kpi := Evaluate(topo, workload, protocol, tier, params)
		kpi = Degrade(kpi, params, policy, workload, protocol, tier, cfg)
		gates := CheckGates(kpi, cfg)

		rec.Candidates = append(rec.Candidates, Candidate{
			Topology: topo,
			KPI:      kpi,
			Gates:    gates,
			Score:    score(mode, kpi, cfg),
			Eligible: gates.Pass,
		})
	}

	if best := pick(rec.Candidates, true); best != nil {
		rec.Chosen = best.Topology
	}
	if best := pick(rec.Candidates, false); best != nil {
		rec.BestEffort = best.Topology
	}
	return rec, nil
}

// score computes the ranking value for one candidate under a scoring mode.
func score(mode models.RecommendationMode, kpi KPIReport, cfg GateConfig) float64 {
	quality := kpi.PassRate - kpi.DefectEscape

	switch mode {
	case models.RecommendCost:
		if kpi.TotalTokens <= 0 {
			return 0
		}
		// 1/total_tokens, scaled into a readable range.
		return 1e6 / float64(kpi.TotalTokens)
	case models.RecommendQuality:
		return quality
	default: // balanced: quality and budget headroom weighted equally
		headroom := 0.0
		if cfg.MaxTotalTokens > 0 {
			headroom = clamp01(1 - float64(kpi.TotalTokens)/float64(cfg.MaxTotalTokens))
		}
		return 0.5*quality + 0.5*headroom
	}
}

// pick returns the best candidate, optionally restricted to eligible ones.
func pick(candidates []Candidate, eligibleOnly bool) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if eligibleOnly && !c.Eligible {
			continue
		}
		if best == nil || better(c, best) {
			best = c
		}
	}
	return best
}

// better reports whether a outranks b: higher score, then fewer workers,
// then lexicographic topology name.
func better(a, b *Candidate) bool {
	if diff := a.Score - b.Score; math.Abs(diff) > 1e-9 {
		return diff > 0
	}
	if a.KPI.Workers != b.KPI.Workers {
		return a.KPI.Workers < b.KPI.Workers
	}
	return a.Topology < b.Topology
}
