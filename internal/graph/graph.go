// Package graph provides a dependency graph for task planning.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/cohort/pkg/models"
)

// CycleError indicates the task graph is not acyclic. Members lists exactly
// the task IDs participating in a cycle, sorted for determinism.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among tasks: %s", strings.Join(e.Members, ", "))
}

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships. Nodes are
// stored in an indexed map and edges as ID references so cycle detection never
// chases embedded structures.
type DependencyGraph struct {
	// nodes maps task ID to the task spec itself.
	nodes map[string]*models.TaskSpec
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// dependents maps task ID to IDs of tasks that depend on it.
	dependents map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:      make(map[string]*models.TaskSpec),
		edges:      make(map[string][]string),
		dependents: make(map[string][]string),
		debugLog:   func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of task specs.
// Returns an error on duplicate IDs, self-dependencies, or dependencies that
// reference unknown tasks. Cycles are not detected here; they surface from
// TopologicalOrder so the full membership can be reported.
func (g *DependencyGraph) Build(tasks []*models.TaskSpec) error {
	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("task with empty ID")
		}
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("duplicate task ID %s", task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
	}

	// Second pass: build edges from DependsOn fields.
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if depID == task.ID {
				return fmt.Errorf("task %s depends on itself", task.ID)
			}
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
			g.dependents[depID] = append(g.dependents[depID], task.ID)
		}
	}

	g.debugLog("[graph.Build] graph built with %d nodes", len(g.nodes))
	return nil
}

// TopologicalOrder returns task IDs in an order where all dependencies come
// before the tasks that depend on them, via incremental in-degree reduction.
// Ties are broken by priority descending, then task ID ascending, so the
// order is reproducible for identical inputs.
//
// If the graph contains a cycle, returns a CycleError whose Members are
// exactly the tasks that never reached zero residual in-degree.
func (g *DependencyGraph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.edges[id])
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		g.sortReady(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, depID := range g.dependents[next] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				ready = append(ready, depID)
			}
		}
	}

	if len(order) < len(g.nodes) {
		// Any task that never reached zero residual in-degree is part of a
		// cycle (or downstream of one only via cycle members, which the
		// residual walk below excludes).
		members := g.cycleMembers(inDegree)
		g.debugLog("[graph.TopologicalOrder] cycle detected: %v", members)
		return nil, &CycleError{Members: members}
	}

	return order, nil
}

// sortReady orders the ready set by priority descending, then ID ascending.
func (g *DependencyGraph) sortReady(ready []string) {
	sort.Slice(ready, func(i, j int) bool {
		a, b := g.nodes[ready[i]], g.nodes[ready[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})
}

// cycleMembers narrows the residual set to tasks actually on a cycle.
// A residual task whose unmet dependencies all lead back into the residual
// set may still be a straggler hanging off a cycle; repeatedly peel tasks
// that have a residual dependency count but no residual dependents until
// the set stabilizes on the strongly-connected remainder.
func (g *DependencyGraph) cycleMembers(inDegree map[string]int) []string {
	residual := make(map[string]bool)
	for id, deg := range inDegree {
		if deg > 0 {
			residual[id] = true
		}
	}

	// Peel tasks no residual task depends on; they hang off the cycle but
	// are not part of it.
	for {
		peeled := false
		for id := range residual {
			hasResidualDependent := false
			for _, depID := range g.dependents[id] {
				if residual[depID] {
					hasResidualDependent = true
					break
				}
			}
			if !hasResidualDependent {
				delete(residual, id)
				peeled = true
			}
		}
		if !peeled {
			break
		}
	}

	members := make([]string, 0, len(residual))
	for id := range residual {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// Task returns the task spec for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.TaskSpec {
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// Dependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	return g.edges[taskID]
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	return g.dependents[taskID]
}
