package planner

import "github.com/ShayCichocki/cohort/pkg/models"

// Diagnostics summarizes the shape of a validated plan.
type Diagnostics struct {
	// CriticalPathTokens is the token weight of the longest dependency
	// chain. Tasks with a zero estimate contribute unit weight so the path
	// length stays meaningful on unsized graphs.
	CriticalPathTokens int64 `json:"critical_path_tokens"`
	// ParallelEfficiency is total work over batch-count times the heaviest
	// batch, in (0,1]. Low values mean batches dominated by a few expensive
	// tasks.
	ParallelEfficiency float64 `json:"parallel_efficiency"`
	// LockConflictsResolved counts tasks deferred to a later batch purely
	// due to an owner conflict.
	LockConflictsResolved int `json:"lock_conflicts_resolved"`
}

// Analyze computes diagnostics for a plan over its originating task set.
// Longest path is computed over the plan's topological order, so dependency
// weights are already resolved when each task is visited.
func Analyze(plan *ExecutionPlan, tasks []*models.TaskSpec) Diagnostics {
	byID := make(map[string]*models.TaskSpec, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	weight := func(id string) int64 {
		task, ok := byID[id]
		if !ok {
			return 0
		}
		if task.EstimatedTokens == 0 {
			return 1
		}
		return task.EstimatedTokens
	}

	// Longest path in the DAG via the topological order.
	longest := make(map[string]int64, len(plan.TopologicalOrder))
	var critical int64
	for _, id := range plan.TopologicalOrder {
		best := int64(0)
		if task, ok := byID[id]; ok {
			for _, depID := range task.DependsOn {
				if longest[depID] > best {
					best = longest[depID]
				}
			}
		}
		longest[id] = best + weight(id)
		if longest[id] > critical {
			critical = longest[id]
		}
	}

	return Diagnostics{
		CriticalPathTokens:    critical,
		ParallelEfficiency:    parallelEfficiency(plan, byID),
		LockConflictsResolved: plan.LockDeferrals,
	}
}

// parallelEfficiency is total estimated work divided by batch count times the
// heaviest single batch. A perfectly even plan scores 1.0.
func parallelEfficiency(plan *ExecutionPlan, byID map[string]*models.TaskSpec) float64 {
	if len(plan.Batches) == 0 {
		return 1.0
	}

	var total, maxBatch int64
	for _, batch := range plan.Batches {
		var batchTokens int64
		for _, id := range batch {
			if task, ok := byID[id]; ok {
				batchTokens += task.EstimatedTokens
			}
		}
		total += batchTokens
		if batchTokens > maxBatch {
			maxBatch = batchTokens
		}
	}
	if total == 0 || maxBatch == 0 {
		return 1.0
	}

	eff := float64(total) / (float64(len(plan.Batches)) * float64(maxBatch))
	if eff > 1.0 {
		eff = 1.0
	}
	return eff
}
