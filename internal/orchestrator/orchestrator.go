package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/cohort/internal/handoff"
	"github.com/ShayCichocki/cohort/internal/planner"
	"github.com/ShayCichocki/cohort/internal/topology"
	"github.com/ShayCichocki/cohort/pkg/models"
)

// Request describes one planning run. Zero-valued optional fields are filled
// with defaults by Normalize before use.
type Request struct {
	RunID       string                    `json:"run_id"`
	Tasks       []*models.TaskSpec        `json:"tasks"`
	Workload    models.WorkloadProfile    `json:"workload"`
	Protocol    models.ProtocolMode       `json:"protocol"`
	BudgetTier  models.BudgetTier         `json:"budget_tier"`
	Mode        models.RecommendationMode `json:"mode"`
	Degradation models.DegradationPolicy  `json:"degradation"`

	// Envelope overrides the built-in budget envelope when non-zero.
	Envelope *models.BudgetEnvelope `json:"envelope,omitempty"`
	// Policy overrides the default handoff compaction policy when set.
	Policy *models.HandoffPolicy `json:"policy,omitempty"`
	// Gates overrides the derived gate thresholds when set.
	Gates *topology.GateConfig `json:"gates,omitempty"`
	// Coordinator names the agent escalations are routed to.
	Coordinator string `json:"coordinator,omitempty"`
}

// PlannerConfig is the execution configuration derived from the chosen
// topology and budget envelope. Batches stay maximal; MaxWorkers is the
// concurrency bound executors honor when draining one batch.
type PlannerConfig struct {
	// Topology is the topology the plan should execute under. Falls back to
	// the best-effort candidate when nothing passed the gates.
	Topology models.TeamTopology `json:"topology"`
	// MaxWorkers is the evaluated worker count for that topology, after any
	// degradation levers. Never exceeds the topology's ceiling.
	MaxWorkers int `json:"max_workers"`
	// BudgetTier is the tier the budget levels were resolved against.
	BudgetTier models.BudgetTier `json:"budget_tier"`
}

// Bundle is the full output of one planning run: the chosen topology with
// its audited alternatives, the derived planner config, the validated
// execution plan, diagnostics, and the synthesized batch handoff messages.
type Bundle struct {
	RunID          string                    `json:"run_id"`
	Recommendation *topology.Recommendation  `json:"recommendation"`
	Config         PlannerConfig             `json:"config"`
	Budgets        models.BudgetLevels       `json:"budgets"`
	Plan           *planner.ExecutionPlan    `json:"plan"`
	Validation     *planner.ValidationReport `json:"validation"`
	Diagnostics    planner.Diagnostics       `json:"diagnostics"`
	Handoffs       []models.AgentMessage     `json:"handoffs"`
	// HandoffTokens is the estimated coordination footprint of the
	// synthesized messages, for comparison against the message budget.
	HandoffTokens int64 `json:"handoff_tokens"`
}

// PlanInvalidError reports that an assembled plan failed independent
// validation. The run aborts rather than emit a plan that breaks its own
// contract.
type PlanInvalidError struct {
	Report *planner.ValidationReport
}

func (e *PlanInvalidError) Error() string {
	return fmt.Sprintf("plan failed validation with %d violations", len(e.Report.Violations))
}

// Normalize fills zero-valued optional fields with defaults.
func (r *Request) Normalize() {
	if r.Workload == "" {
		r.Workload = models.WorkloadMixed
	}
	if r.Protocol == "" {
		r.Protocol = models.ProtocolA2ALite
	}
	if r.BudgetTier == "" {
		r.BudgetTier = models.BudgetMedium
	}
	if r.Mode == "" {
		r.Mode = models.RecommendBalanced
	}
	if r.Degradation == "" {
		r.Degradation = models.DegradationAuto
	}
	if r.Coordinator == "" {
		r.Coordinator = "coordinator"
	}
}

// validate rejects malformed requests before any planning work starts.
func (r *Request) validate() error {
	if r.RunID == "" {
		return fmt.Errorf("request: run_id is required")
	}
	if len(r.Tasks) == 0 {
		return fmt.Errorf("request: at least one task is required")
	}
	if !r.Workload.Valid() {
		return fmt.Errorf("request: unknown workload profile %q", r.Workload)
	}
	if !r.Protocol.Valid() {
		return fmt.Errorf("request: unknown protocol mode %q", r.Protocol)
	}
	if !r.BudgetTier.Valid() {
		return fmt.Errorf("request: unknown budget tier %q", r.BudgetTier)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("request: unknown recommendation mode %q", r.Mode)
	}
	if !r.Degradation.Valid() {
		return fmt.Errorf("request: unknown degradation policy %q", r.Degradation)
	}
	return nil
}

// Orchestrate runs the full planning pipeline for a request. The pipeline is
// pure over its inputs: the same request yields the same bundle on every
// invocation, and nothing is mutated, so re-running is safe.
//
// Order: budget resolution, topology recommendation, plan construction,
// independent validation, diagnostics, handoff synthesis. A validation
// failure aborts with PlanInvalidError instead of returning the plan.
func Orchestrate(req Request) (*Bundle, error) {
	req.Normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	envelope := models.DefaultEnvelope()
	if req.Envelope != nil {
		envelope = *req.Envelope
	}
	if err := envelope.Validate(); err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	levels := envelope.Levels(req.BudgetTier)
	debugLog("run %s: tier=%s run_budget=%d", req.RunID, req.BudgetTier, levels.Run)

	gates := topology.DefaultGateConfig(levels.Run)
	if req.Gates != nil {
		gates = *req.Gates
	}

	rec, err := topology.Recommend(models.AllTopologies(), req.Mode, req.Workload, req.Protocol, req.BudgetTier, req.Degradation, gates)
	if err != nil {
		return nil, fmt.Errorf("recommend topology: %w", err)
	}
	planCfg := derivePlannerConfig(rec, req.BudgetTier)
	debugLog("run %s: chosen topology=%q best_effort=%q max_workers=%d",
		req.RunID, rec.Chosen, rec.BestEffort, planCfg.MaxWorkers)

	plan, err := planner.Build(req.Tasks, levels.Run)
	if err != nil {
		return nil, err
	}

	report := planner.Validate(plan, req.Tasks)
	if !report.OK {
		debugLog("run %s: plan rejected with %d violations", req.RunID, len(report.Violations))
		return nil, &PlanInvalidError{Report: report}
	}

	diag := planner.Analyze(plan, req.Tasks)

	policy := models.DefaultHandoffPolicy()
	if req.Policy != nil {
		policy = *req.Policy
	}
	handoffs, err := handoff.SynthesizeBatchHandoffs(req.RunID, plan, req.Tasks, policy, req.Coordinator)
	if err != nil {
		return nil, err
	}
	debugLog("run %s: %d batches, %d handoffs, %d lock deferrals",
		req.RunID, len(plan.Batches), len(handoffs), plan.LockDeferrals)

	return &Bundle{
		RunID:          req.RunID,
		Recommendation: rec,
		Config:         planCfg,
		Budgets:        levels,
		Plan:           plan,
		Validation:     report,
		Diagnostics:    diag,
		Handoffs:       handoffs,
		HandoffTokens:  int64(handoff.EstimateBatchTokens(handoffs)),
	}, nil
}

// derivePlannerConfig resolves the execution configuration from the
// recommendation: the chosen topology (best effort when nothing passed the
// gates) and its evaluated worker count, which reflects any degradation
// levers already applied.
func derivePlannerConfig(rec *topology.Recommendation, tier models.BudgetTier) PlannerConfig {
	chosen := rec.Chosen
	if chosen == "" {
		chosen = rec.BestEffort
	}

	workers := chosen.MaxWorkers()
	for _, c := range rec.Candidates {
		if c.Topology == chosen {
			workers = c.KPI.Workers
			break
		}
	}

	return PlannerConfig{Topology: chosen, MaxWorkers: workers, BudgetTier: tier}
}
