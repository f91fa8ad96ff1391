package planner

import (
	"fmt"

	"github.com/ShayCichocki/cohort/internal/graph"
	"github.com/ShayCichocki/cohort/pkg/models"
)

// minViableTokens is the smallest allocation a task with a positive estimate
// can receive. Scaling below this means the run budget cannot hold the plan.
const minViableTokens = 1

// Build constructs a conflict-aware execution plan for the given tasks under
// the run budget. It fails with *graph.CycleError if the dependency graph is
// not acyclic and with *BudgetExceededError if scaling cannot fit the
// allocations within the run budget.
func Build(tasks []*models.TaskSpec, runBudget int64) (*ExecutionPlan, error) {
	if runBudget <= 0 {
		return nil, fmt.Errorf("run budget must be positive, got %d", runBudget)
	}

	g := graph.New()
	if err := g.Build(tasks); err != nil {
		return nil, err
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	budgets, scaled, err := allocateBudgets(tasks, runBudget)
	if err != nil {
		return nil, err
	}

	batches, deferrals := buildBatches(g, order)

	var total int64
	for _, task := range tasks {
		total += task.EstimatedTokens
	}

	return &ExecutionPlan{
		TopologicalOrder:     order,
		Budgets:              budgets,
		Batches:              batches,
		TotalEstimatedTokens: total,
		RunBudget:            runBudget,
		BudgetScaled:         scaled,
		LockDeferrals:        deferrals,
	}, nil
}

// allocateBudgets assigns each task a budget proportional to its estimate.
// If the proportional sum exceeds the run budget, every allocation is scaled
// down by the same factor so ratios are preserved and no task is dropped;
// the returned bool flags that degradation pressure.
func allocateBudgets(tasks []*models.TaskSpec, runBudget int64) (map[string]int64, bool, error) {
	budgets := make(map[string]int64, len(tasks))

	var sum int64
	for _, task := range tasks {
		if task.EstimatedTokens < 0 {
			return nil, false, fmt.Errorf("task %s has negative estimated tokens", task.ID)
		}
		sum += task.EstimatedTokens
	}

	if sum <= runBudget {
		for _, task := range tasks {
			budgets[task.ID] = task.EstimatedTokens
		}
		return budgets, false, nil
	}

	factor := float64(runBudget) / float64(sum)
	for _, task := range tasks {
		if task.EstimatedTokens == 0 {
			budgets[task.ID] = 0
			continue
		}
		allocated := int64(float64(task.EstimatedTokens) * factor)
		if allocated < minViableTokens {
			return nil, false, &BudgetExceededError{TaskID: task.ID, RunBudget: runBudget}
		}
		budgets[task.ID] = allocated
	}
	return budgets, true, nil
}

// buildBatches places tasks into maximal parallel batches in topological
// order. A task joins the earliest batch after all its dependencies, and is
// pushed later while the candidate batch holds a task sharing one of its
// owners. Returns the batches and the count of owner-driven deferrals.
func buildBatches(g *graph.DependencyGraph, order []string) ([][]string, int) {
	batchOf := make(map[string]int, len(order))
	var batches [][]string
	deferrals := 0

	for _, id := range order {
		task := g.Task(id)

		// Earliest index satisfying every dependency edge.
		idx := 0
		for _, depID := range g.Dependencies(id) {
			if depIdx, ok := batchOf[depID]; ok && depIdx+1 > idx {
				idx = depIdx + 1
			}
		}

		// Push past owner conflicts.
		deferred := false
		for idx < len(batches) && ownerConflict(g, task, batches[idx]) {
			idx++
			deferred = true
		}
		if deferred {
			deferrals++
		}

		for len(batches) <= idx {
			batches = append(batches, nil)
		}
		batches[idx] = append(batches[idx], id)
		batchOf[id] = idx
	}

	return batches, deferrals
}

// ownerConflict returns true if the task shares an owner with any batch member.
func ownerConflict(g *graph.DependencyGraph, task *models.TaskSpec, batch []string) bool {
	if len(task.Owners) == 0 {
		return false
	}
	for _, id := range batch {
		if task.SharesOwner(g.Task(id)) {
			return true
		}
	}
	return false
}
