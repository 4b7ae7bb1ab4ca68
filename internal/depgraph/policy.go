package depgraph

import (
	"fmt"
	"slices"

	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
)

// Scope selects which tasks may be offered as predecessors of a task.
type Scope string

const (
	// ScopeHierarchy offers the other roots to a root task, and siblings plus
	// ancestors to a subtask.
	ScopeHierarchy Scope = "hierarchy"
	// ScopeSiblings offers only tasks sharing the same parent.
	ScopeSiblings Scope = "siblings"
	// ScopeProject offers every task of the same project.
	ScopeProject Scope = "project"
)

func ParseScope(value string) (Scope, error) {
	switch Scope(value) {
	case "":
		return ScopeHierarchy, nil
	case ScopeHierarchy, ScopeSiblings, ScopeProject:
		return Scope(value), nil
	}
	return "", fmt.Errorf("unknown predecessor scope %q", value)
}

// inScope reports whether candidate falls inside the scope of taskID.
func inScope(f *hierarchy.Forest, scope Scope, taskID, candidateID int64) bool {
	switch scope {
	case ScopeProject:
		return true
	case ScopeSiblings:
		return slices.Contains(f.Siblings(taskID), candidateID)
	default:
		if slices.Contains(f.Siblings(taskID), candidateID) {
			return true
		}
		return f.IsAncestor(candidateID, taskID)
	}
}

// ValidPredecessors lists the tasks that could become predecessors of
// taskID under scope. Excluded are the task itself, tasks of other projects,
// tasks already reachable from it through successor edges (they would close
// a cycle), and existing direct predecessors. Results keep hierarchy order.
func ValidPredecessors(g *Graph, f *hierarchy.Forest, taskID int64, scope Scope) ([]model.Task, error) {
	task, ok := g.Task(taskID)
	if !ok {
		return nil, &model.DanglingReferenceError{From: "predecessor lookup", MissingID: taskID}
	}

	reachable := g.Reachable(taskID)
	existing := make(map[int64]bool)
	for _, edge := range g.Predecessors(taskID) {
		existing[edge.PredecessorID] = true
	}

	var result []model.Task
	for _, entry := range hierarchy.Flatten(f) {
		candidate := entry.Task
		switch {
		case candidate.ID == taskID,
			candidate.ProjectID != task.ProjectID,
			reachable[candidate.ID],
			existing[candidate.ID],
			!inScope(f, scope, taskID, candidate.ID):
			continue
		}
		result = append(result, candidate)
	}
	return result, nil
}

// CheckScope rejects an edge whose predecessor lies outside the successor's
// scope with ScopeViolationError.
func CheckScope(f *hierarchy.Forest, scope Scope, predecessorID, successorID int64) error {
	if inScope(f, scope, successorID, predecessorID) {
		return nil
	}
	return &model.ScopeViolationError{
		PredecessorID: predecessorID,
		SuccessorID:   successorID,
		Reason:        fmt.Sprintf("outside the %s predecessor scope", scope),
	}
}
