// Package planner builds conflict-aware parallel execution plans from task
// graphs, validates them independently, and computes plan diagnostics.
package planner

import "fmt"

// ExecutionPlan is the parallelism contract produced for a task graph.
// Tasks in the same batch have no dependency edge and no overlapping owner
// set; the external executor may run a batch concurrently.
type ExecutionPlan struct {
	// TopologicalOrder lists every task ID, dependencies first.
	TopologicalOrder []string `json:"topological_order"`
	// Budgets maps task ID to its allocated token budget.
	Budgets map[string]int64 `json:"budgets"`
	// Batches is the ordered sequence of concurrently runnable task sets.
	Batches [][]string `json:"batches"`
	// TotalEstimatedTokens is the sum of all task estimates.
	TotalEstimatedTokens int64 `json:"total_estimated_tokens"`
	// RunBudget is the run budget the plan was built against.
	RunBudget int64 `json:"run_budget"`
	// BudgetScaled is true when proportional allocations had to be scaled
	// down to fit the run budget (degradation pressure).
	BudgetScaled bool `json:"budget_scaled,omitempty"`
	// LockDeferrals counts tasks pushed to a later batch purely because of
	// an owner conflict, not a dependency.
	LockDeferrals int `json:"lock_deferrals"`
}

// BatchIndex returns the index of the batch containing the task, or -1.
func (p *ExecutionPlan) BatchIndex(taskID string) int {
	for i, batch := range p.Batches {
		for _, id := range batch {
			if id == taskID {
				return i
			}
		}
	}
	return -1
}

// BudgetExceededError indicates that scaling cannot bring allocations within
// the run budget: a task's minimum viable allocation alone does not fit.
type BudgetExceededError struct {
	TaskID    string
	RunBudget int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("run budget %d too small for minimum viable allocation of task %s", e.RunBudget, e.TaskID)
}
