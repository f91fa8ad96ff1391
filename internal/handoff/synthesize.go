package handoff

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/cohort/internal/planner"
	"github.com/ShayCichocki/cohort/pkg/models"
)

// SynthesizeBatchHandoffs emits one message per newly-runnable task at every
// batch transition of the plan: the coordinator hands the task to the
// executor pool with its allocated budget, artifact pointers for completed
// dependency outputs, and the dependencies whose outputs are still landing.
//
// Summaries are built from the task's own metadata only, never from
// cross-task raw content. Messages come out in batch order, tasks in batch
// member order, so the sequence is deterministic.
func SynthesizeBatchHandoffs(runID string, plan *planner.ExecutionPlan, tasks []*models.TaskSpec, policy models.HandoffPolicy, coordinator string) ([]models.AgentMessage, error) {
	byID := make(map[string]*models.TaskSpec, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	builder := NewBuilder(policy, coordinator)
	risk := models.RiskLow
	if plan.BudgetScaled {
		// Scaled allocations mean tighter headroom for every task.
		risk = models.RiskMedium
	}

	var messages []models.AgentMessage
	for batchIdx, batch := range plan.Batches {
		for _, id := range batch {
			task, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("plan schedules unknown task %s", id)
			}

			msg, err := builder.Build(Fields{
				RunID:      runID,
				TaskID:     id,
				Sender:     coordinator,
				Recipient:  "executor",
				Status:     models.MessageStatusQueued,
				Confidence: confidenceFor(task),
				RiskLevel:  risk,
				Summary:    taskSummary(task, batchIdx, plan.Budgets[id]),
				Artifacts:  dependencyArtifacts(runID, task),
				Needs:      pendingNeeds(task, plan, batchIdx),
				NextAction: "promote to running and execute within the allocated budget",
			})
			if err != nil {
				return nil, fmt.Errorf("synthesize handoff for task %s: %w", id, err)
			}
			messages = append(messages, msg)
		}
	}

	return messages, nil
}

// confidenceFor derives a deterministic confidence percentage from the
// task's own shape: unconditioned tasks are surest, each dependency and each
// contended owner chips away a little.
func confidenceFor(task *models.TaskSpec) int {
	confidence := 95 - 3*len(task.DependsOn) - 2*len(task.Owners)
	if confidence < 50 {
		confidence = 50
	}
	return confidence
}

// taskSummary renders the handoff summary from task metadata only.
func taskSummary(task *models.TaskSpec, batchIdx int, budget int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s runnable in batch %d with %d token budget", task.ID, batchIdx, budget)
	if len(task.DependsOn) > 0 {
		fmt.Fprintf(&b, "; depends on %s", strings.Join(task.DependsOn, ", "))
	}
	if len(task.Owners) > 0 {
		fmt.Fprintf(&b, "; writes %s", strings.Join(task.Owners, ", "))
	}
	return b.String()
}

// dependencyArtifacts builds pointer references for dependency outputs.
// Pointers, never inline content: the A2A-lite contract.
func dependencyArtifacts(runID string, task *models.TaskSpec) []string {
	if len(task.DependsOn) == 0 {
		return nil
	}
	artifacts := make([]string, 0, len(task.DependsOn))
	for _, depID := range task.DependsOn {
		artifacts = append(artifacts, fmt.Sprintf("artifact://%s/%s", runID, depID))
	}
	return artifacts
}

// pendingNeeds lists dependencies whose outputs are still landing at the
// transition: those completing in the batch immediately prior. Outputs from
// earlier batches were already collected at previous transitions.
func pendingNeeds(task *models.TaskSpec, plan *planner.ExecutionPlan, batchIdx int) []string {
	var needs []string
	for _, depID := range task.DependsOn {
		if plan.BatchIndex(depID) == batchIdx-1 {
			needs = append(needs, depID)
		}
	}
	return needs
}
