package models

// TaskSpec describes one schedulable unit of work in a task graph.
// The set of TaskSpecs plus their DependsOn edges form a directed graph;
// plan construction requires the graph to be acyclic.
type TaskSpec struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Owners lists logical resource IDs this task will write to.
	// Two tasks sharing an owner can never run in the same batch.
	Owners []string `json:"owners,omitempty" yaml:"owners,omitempty"`
	// EstimatedTokens is the expected token cost of executing the task.
	EstimatedTokens int64 `json:"estimated_tokens" yaml:"estimated_tokens"`
	// Priority orders tasks when scheduling ties occur; higher runs first.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// SharesOwner returns true if the two tasks have at least one owner in common.
func (t *TaskSpec) SharesOwner(other *TaskSpec) bool {
	for _, a := range t.Owners {
		for _, b := range other.Owners {
			if a == b {
				return true
			}
		}
	}
	return false
}
