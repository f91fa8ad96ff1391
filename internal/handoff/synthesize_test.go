package handoff

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/cohort/internal/planner"
	"github.com/ShayCichocki/cohort/pkg/models"
)

func planFixture(t *testing.T) (*planner.ExecutionPlan, []*models.TaskSpec) {
	t.Helper()
	tasks := []*models.TaskSpec{
		{ID: "A", EstimatedTokens: 10},
		{ID: "B", EstimatedTokens: 5, Owners: []string{"file1"}, DependsOn: []string{"A"}},
		{ID: "C", EstimatedTokens: 5, Owners: []string{"file1"}, DependsOn: []string{"A"}},
	}
	plan, err := planner.Build(tasks, 100)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return plan, tasks
}

func TestSynthesize_OneMessagePerTask(t *testing.T) {
	plan, tasks := planFixture(t)
	msgs, err := SynthesizeBatchHandoffs("run-1", plan, tasks, models.DefaultHandoffPolicy(), "coordinator")
	if err != nil {
		t.Fatalf("SynthesizeBatchHandoffs() failed: %v", err)
	}

	if len(msgs) != len(tasks) {
		t.Fatalf("got %d messages, want one per task (%d)", len(msgs), len(tasks))
	}

	// Batch order: A then B then C.
	var order []string
	for _, msg := range msgs {
		order = append(order, msg.TaskID)
		if msg.Status != models.MessageStatusQueued {
			t.Errorf("task %s status = %s, want queued", msg.TaskID, msg.Status)
		}
		if msg.RunID != "run-1" || msg.Sender != "coordinator" {
			t.Errorf("task %s envelope wrong: %+v", msg.TaskID, msg)
		}
	}
	if !reflect.DeepEqual(order, []string{"A", "B", "C"}) {
		t.Errorf("message order = %v, want batch order [A B C]", order)
	}
}

func TestSynthesize_NeedsAndArtifacts(t *testing.T) {
	plan, tasks := planFixture(t)
	msgs, err := SynthesizeBatchHandoffs("run-1", plan, tasks, models.DefaultHandoffPolicy(), "coordinator")
	if err != nil {
		t.Fatalf("SynthesizeBatchHandoffs() failed: %v", err)
	}

	byTask := make(map[string]models.AgentMessage)
	for _, msg := range msgs {
		byTask[msg.TaskID] = msg
	}

	if len(byTask["A"].Needs) != 0 {
		t.Errorf("A has no dependencies, needs = %v", byTask["A"].Needs)
	}
	// B sits in the batch right after A, so A's output is still landing.
	if !reflect.DeepEqual(byTask["B"].Needs, []string{"A"}) {
		t.Errorf("B needs = %v, want [A]", byTask["B"].Needs)
	}
	// C runs two batches after A; A's output was collected already.
	if len(byTask["C"].Needs) != 0 {
		t.Errorf("C needs = %v, want none (A completed before the prior batch)", byTask["C"].Needs)
	}

	// Dependency outputs are referenced by pointer, never inline.
	if !reflect.DeepEqual(byTask["B"].Artifacts, []string{"artifact://run-1/A"}) {
		t.Errorf("B artifacts = %v, want pointer to A's output", byTask["B"].Artifacts)
	}
}

func TestSynthesize_SummaryFromTaskMetadataOnly(t *testing.T) {
	plan, tasks := planFixture(t)
	msgs, err := SynthesizeBatchHandoffs("run-1", plan, tasks, models.DefaultHandoffPolicy(), "coordinator")
	if err != nil {
		t.Fatalf("SynthesizeBatchHandoffs() failed: %v", err)
	}

	for _, msg := range msgs {
		if !strings.Contains(msg.Summary, "Task "+msg.TaskID) {
			t.Errorf("summary for %s should name its own task: %q", msg.TaskID, msg.Summary)
		}
		if msg.Confidence < 0 || msg.Confidence > 100 {
			t.Errorf("confidence %d out of range", msg.Confidence)
		}
	}
}

func TestSynthesize_BudgetPressureRaisesRisk(t *testing.T) {
	tasks := []*models.TaskSpec{
		{ID: "a", EstimatedTokens: 600},
		{ID: "b", EstimatedTokens: 400},
	}
	plan, err := planner.Build(tasks, 100) // forces scaling
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if !plan.BudgetScaled {
		t.Fatal("fixture should trigger budget scaling")
	}

	msgs, err := SynthesizeBatchHandoffs("run-1", plan, tasks, models.DefaultHandoffPolicy(), "coordinator")
	if err != nil {
		t.Fatalf("SynthesizeBatchHandoffs() failed: %v", err)
	}
	for _, msg := range msgs {
		if msg.RiskLevel != models.RiskMedium {
			t.Errorf("task %s risk = %s, want medium under budget pressure", msg.TaskID, msg.RiskLevel)
		}
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	plan, tasks := planFixture(t)
	policy := models.DefaultHandoffPolicy()

	first, err := SynthesizeBatchHandoffs("run-1", plan, tasks, policy, "coordinator")
	if err != nil {
		t.Fatalf("SynthesizeBatchHandoffs() failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := SynthesizeBatchHandoffs("run-1", plan, tasks, policy, "coordinator")
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d messages differ from first", i)
		}
	}
}

func TestSynthesize_UnknownTaskInPlan(t *testing.T) {
	plan, tasks := planFixture(t)
	plan.Batches = append(plan.Batches, []string{"ghost"})

	if _, err := SynthesizeBatchHandoffs("run-1", plan, tasks, models.DefaultHandoffPolicy(), "coordinator"); err == nil {
		t.Error("expected error for plan scheduling an unknown task")
	}
}
