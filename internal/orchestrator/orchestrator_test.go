package orchestrator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ShayCichocki/cohort/internal/graph"
	"github.com/ShayCichocki/cohort/internal/planner"
	"github.com/ShayCichocki/cohort/internal/topology"
	"github.com/ShayCichocki/cohort/pkg/models"
)

func requestFixture() Request {
	return Request{
		RunID: "run-1",
		Tasks: []*models.TaskSpec{
			{ID: "schema", EstimatedTokens: 4000, Priority: 2},
			{ID: "api", EstimatedTokens: 6000, DependsOn: []string{"schema"}, Owners: []string{"server/api.go"}},
			{ID: "client", EstimatedTokens: 5000, DependsOn: []string{"schema"}, Owners: []string{"server/api.go"}},
			{ID: "docs", EstimatedTokens: 1000, Priority: -1},
		},
		Workload:   models.WorkloadImplementation,
		Protocol:   models.ProtocolA2ALite,
		BudgetTier: models.BudgetMedium,
	}
}

func TestOrchestrate_FullBundle(t *testing.T) {
	bundle, err := Orchestrate(requestFixture())
	if err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}

	if bundle.RunID != "run-1" {
		t.Errorf("run id = %s", bundle.RunID)
	}
	if bundle.Recommendation == nil || bundle.Recommendation.Chosen == "" {
		t.Fatal("expected an eligible topology under default gates")
	}
	if len(bundle.Recommendation.Candidates) != len(models.AllTopologies()) {
		t.Errorf("got %d candidates, want all %d topologies audited",
			len(bundle.Recommendation.Candidates), len(models.AllTopologies()))
	}
	if !bundle.Validation.OK {
		t.Errorf("bundle carries a failing validation report: %+v", bundle.Validation.Violations)
	}
	if len(bundle.Handoffs) != len(requestFixture().Tasks) {
		t.Errorf("got %d handoffs, want one per task", len(bundle.Handoffs))
	}
	if bundle.HandoffTokens <= 0 {
		t.Error("handoff token footprint should be positive")
	}
	if bundle.Budgets.Run != models.DefaultEnvelope().Medium.Run {
		t.Errorf("run budget = %d, want medium tier default", bundle.Budgets.Run)
	}
	if got := bundle.Plan.BatchIndex("schema"); got != 0 {
		t.Errorf("schema batch = %d, want 0", got)
	}
	// api and client contend for the same file, so one defers a batch.
	if bundle.Plan.LockDeferrals != 1 {
		t.Errorf("lock deferrals = %d, want 1", bundle.Plan.LockDeferrals)
	}
}

func TestOrchestrate_DerivedPlannerConfig(t *testing.T) {
	bundle, err := Orchestrate(requestFixture())
	if err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}

	cfg := bundle.Config
	if cfg.Topology != bundle.Recommendation.Chosen {
		t.Errorf("config topology = %s, want chosen %s", cfg.Topology, bundle.Recommendation.Chosen)
	}
	if cfg.BudgetTier != models.BudgetMedium {
		t.Errorf("config tier = %s, want medium", cfg.BudgetTier)
	}
	if cfg.MaxWorkers < 1 || cfg.MaxWorkers > cfg.Topology.MaxWorkers() {
		t.Errorf("worker bound %d outside [1,%d]", cfg.MaxWorkers, cfg.Topology.MaxWorkers())
	}

	// The bound is the chosen candidate's evaluated worker count, so it
	// already reflects any degradation levers.
	for _, c := range bundle.Recommendation.Candidates {
		if c.Topology == cfg.Topology && cfg.MaxWorkers != c.KPI.Workers {
			t.Errorf("worker bound %d, want candidate's evaluated %d", cfg.MaxWorkers, c.KPI.Workers)
		}
	}
}

func TestOrchestrate_PlannerConfigBestEffortFallback(t *testing.T) {
	req := requestFixture()
	// Gates no estimate can satisfy, so no topology is eligible.
	req.Gates = &topology.GateConfig{
		MaxCoordinationRatio: 0.000001,
		MinPassRate:          0.9999,
		MaxP95LatencySeconds: 0.001,
		MaxTotalTokens:       1,
	}

	bundle, err := Orchestrate(req)
	if err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}
	if bundle.Recommendation.Chosen != "" {
		t.Fatalf("chosen = %s, fixture gates should be unsatisfiable", bundle.Recommendation.Chosen)
	}
	if bundle.Config.Topology != bundle.Recommendation.BestEffort {
		t.Errorf("config topology = %s, want best effort %s",
			bundle.Config.Topology, bundle.Recommendation.BestEffort)
	}
	if bundle.Config.MaxWorkers < 1 {
		t.Errorf("worker bound = %d, want at least 1", bundle.Config.MaxWorkers)
	}
}

func TestOrchestrate_DeterministicAndIdempotent(t *testing.T) {
	first, err := Orchestrate(requestFixture())
	if err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Orchestrate(requestFixture())
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d bundle differs from first", i)
		}
	}
}

func TestOrchestrate_DoesNotMutateRequest(t *testing.T) {
	req := requestFixture()
	taskCopy := *req.Tasks[1]

	if _, err := Orchestrate(req); err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}
	if !reflect.DeepEqual(*req.Tasks[1], taskCopy) {
		t.Errorf("task mutated: %+v", *req.Tasks[1])
	}
}

func TestOrchestrate_Normalization(t *testing.T) {
	req := Request{
		RunID: "run-defaults",
		Tasks: []*models.TaskSpec{{ID: "only", EstimatedTokens: 100}},
	}

	bundle, err := Orchestrate(req)
	if err != nil {
		t.Fatalf("Orchestrate() with zero-valued options failed: %v", err)
	}
	if bundle.Recommendation.Mode != models.RecommendBalanced {
		t.Errorf("mode = %s, want balanced default", bundle.Recommendation.Mode)
	}
	if bundle.Handoffs[0].Sender != "coordinator" {
		t.Errorf("sender = %s, want default coordinator", bundle.Handoffs[0].Sender)
	}
}

func TestOrchestrate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty run id", func(r *Request) { r.RunID = "" }},
		{"no tasks", func(r *Request) { r.Tasks = nil }},
		{"unknown workload", func(r *Request) { r.Workload = "sprinting" }},
		{"unknown protocol", func(r *Request) { r.Protocol = "smoke-signals" }},
		{"unknown tier", func(r *Request) { r.BudgetTier = "infinite" }},
		{"unknown mode", func(r *Request) { r.Mode = "vibes" }},
		{"unknown degradation", func(r *Request) { r.Degradation = "panic" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := requestFixture()
			tc.mutate(&req)
			if _, err := Orchestrate(req); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOrchestrate_CycleAborts(t *testing.T) {
	req := requestFixture()
	req.Tasks = []*models.TaskSpec{
		{ID: "x", DependsOn: []string{"y"}, EstimatedTokens: 10},
		{ID: "y", DependsOn: []string{"x"}, EstimatedTokens: 10},
	}

	_, err := Orchestrate(req)
	var cycleErr *graph.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycleErr.Members, []string{"x", "y"}) {
		t.Errorf("cycle members = %v, want [x y]", cycleErr.Members)
	}
}

func TestOrchestrate_BudgetFloorAborts(t *testing.T) {
	req := requestFixture()
	req.Envelope = &models.BudgetEnvelope{
		Low:    models.BudgetLevels{Run: 10, Team: 10, Task: 10, Message: 10},
		Medium: models.BudgetLevels{Run: 10, Team: 10, Task: 10, Message: 10},
		High:   models.BudgetLevels{Run: 10, Team: 10, Task: 10, Message: 10},
	}
	req.Tasks = []*models.TaskSpec{
		{ID: "big", EstimatedTokens: 1_000_000},
		{ID: "tiny", EstimatedTokens: 1},
	}

	_, err := Orchestrate(req)
	var budgetErr *planner.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
	if budgetErr.TaskID != "tiny" {
		t.Errorf("starved task = %s, want tiny", budgetErr.TaskID)
	}
}
