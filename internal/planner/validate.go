package planner

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/cohort/internal/graph"
	"github.com/ShayCichocki/cohort/pkg/models"
)

// ViolationKind classifies a plan validation failure.
type ViolationKind string

const (
	// ViolationDependencyMissing means a task in the plan is absent from the
	// task set, or a task in the set is absent from the plan.
	ViolationDependencyMissing ViolationKind = "dependency-missing"
	// ViolationOrderViolation means a task is not batched strictly after a
	// dependency.
	ViolationOrderViolation ViolationKind = "order-violation"
	// ViolationOwnerConflict means a batch holds two tasks sharing an owner.
	ViolationOwnerConflict ViolationKind = "owner-conflict"
	// ViolationBudgetExceeded means allocated budgets exceed the run budget.
	ViolationBudgetExceeded ViolationKind = "budget-exceeded"
	// ViolationCycleDetected means the originating task graph has a cycle.
	ViolationCycleDetected ViolationKind = "cycle-detected"
)

// Violation describes one validation failure with enough detail to act on.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	TaskIDs []string      `json:"task_ids,omitempty"`
	Detail  string        `json:"detail"`
}

// ValidationReport is the outcome of independently re-checking a plan.
type ValidationReport struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations,omitempty"`
}

func (r *ValidationReport) add(kind ViolationKind, detail string, taskIDs ...string) {
	r.OK = false
	r.Violations = append(r.Violations, Violation{Kind: kind, TaskIDs: taskIDs, Detail: detail})
}

// Validate re-derives every plan invariant from the plan's raw fields and the
// original task set. It deliberately trusts none of the planner's bookkeeping
// so planner bugs are caught here rather than replayed. All violations are
// collected, not just the first.
func Validate(plan *ExecutionPlan, tasks []*models.TaskSpec) *ValidationReport {
	report := &ValidationReport{OK: true}

	byID := make(map[string]*models.TaskSpec, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	// Recompute batch membership from the raw batches field.
	batchOf := make(map[string]int)
	seen := make(map[string]int)
	for i, batch := range plan.Batches {
		for _, id := range batch {
			batchOf[id] = i
			seen[id]++
		}
	}

	// Every plan task must exist in the task set, exactly once in batches.
	for id, count := range seen {
		if _, ok := byID[id]; !ok {
			report.add(ViolationDependencyMissing,
				fmt.Sprintf("plan schedules unknown task %s", id), id)
		}
		if count > 1 {
			report.add(ViolationDependencyMissing,
				fmt.Sprintf("task %s appears in %d batches", id, count), id)
		}
	}

	// Every task in the set must be scheduled.
	missing := make([]string, 0)
	for id := range byID {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	for _, id := range missing {
		report.add(ViolationDependencyMissing,
			fmt.Sprintf("task %s missing from plan batches", id), id)
	}

	// Dependency edges must be satisfied by strict batch ordering.
	for _, task := range tasks {
		taskIdx, scheduled := batchOf[task.ID]
		if !scheduled {
			continue
		}
		for _, depID := range task.DependsOn {
			depIdx, ok := batchOf[depID]
			if !ok {
				report.add(ViolationDependencyMissing,
					fmt.Sprintf("dependency %s of task %s not scheduled", depID, task.ID),
					task.ID, depID)
				continue
			}
			if taskIdx <= depIdx {
				report.add(ViolationOrderViolation,
					fmt.Sprintf("task %s in batch %d not after dependency %s in batch %d",
						task.ID, taskIdx, depID, depIdx),
					task.ID, depID)
			}
		}
	}

	// No batch may hold two tasks with overlapping owners.
	for i, batch := range plan.Batches {
		claimed := make(map[string]string) // owner -> first claiming task
		for _, id := range batch {
			task, ok := byID[id]
			if !ok {
				continue
			}
			for _, owner := range task.Owners {
				if prev, conflict := claimed[owner]; conflict {
					report.add(ViolationOwnerConflict,
						fmt.Sprintf("batch %d: tasks %s and %s both own %s", i, prev, id, owner),
						prev, id)
					continue
				}
				claimed[owner] = id
			}
		}
	}

	// Allocated budgets must not exceed the originating run budget.
	var allocated int64
	for _, b := range plan.Budgets {
		allocated += b
	}
	if allocated > plan.RunBudget {
		report.add(ViolationBudgetExceeded,
			fmt.Sprintf("allocated %d tokens exceeds run budget %d", allocated, plan.RunBudget))
	}

	// The originating graph itself must be acyclic.
	g := graph.New()
	if err := g.Build(tasks); err == nil {
		if _, err := g.TopologicalOrder(); err != nil {
			if cycleErr, ok := err.(*graph.CycleError); ok {
				report.add(ViolationCycleDetected, cycleErr.Error(), cycleErr.Members...)
			}
		}
	}

	return report
}
