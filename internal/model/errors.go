package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks field level validation failures (empty name,
	// unknown enum value, out of range number).
	ErrInvalidInput = errors.New("invalid input")
)

// CycleDetectedError reports a parent chain or dependency path that returns
// to its start. IDs lists the tasks on the cycle in traversal order.
type CycleDetectedError struct {
	Kind string // "hierarchy" or "dependency"
	IDs  []int64
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("%s cycle detected: %s", e.Kind, joinIDs(e.IDs, " -> "))
}

type SelfDependencyError struct {
	TaskID int64
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("task %d cannot depend on itself", e.TaskID)
}

// InvalidHierarchyError rejects a reparent or create that would break the
// tree: the new parent is the task itself, one of its descendants, or too deep.
type InvalidHierarchyError struct {
	TaskID   int64
	ParentID int64
	Reason   string
}

func (e *InvalidHierarchyError) Error() string {
	return fmt.Sprintf("cannot place task %d under %d: %s", e.TaskID, e.ParentID, e.Reason)
}

type InconsistentDateError struct {
	TaskID int64
	Start  time.Time
	End    time.Time
	Actual bool
}

func (e *InconsistentDateError) Error() string {
	kind := "planned"
	if e.Actual {
		kind = "actual"
	}
	return fmt.Sprintf("task %d: %s end %s precedes start %s", e.TaskID, kind, e.End.Format("2006-01-02"), e.Start.Format("2006-01-02"))
}

// DanglingReferenceError names a referenced task id that is not part of the
// supplied task set. From is the task or edge holding the reference.
type DanglingReferenceError struct {
	From      string
	MissingID int64
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown task %d", e.From, e.MissingID)
}

type DuplicateDependencyError struct {
	PredecessorID int64
	SuccessorID   int64
}

func (e *DuplicateDependencyError) Error() string {
	return fmt.Sprintf("dependency %d -> %d already exists", e.PredecessorID, e.SuccessorID)
}

// ScopeViolationError rejects an edge whose predecessor lies outside the
// candidate scope of the successor (other project, or filtered by policy).
type ScopeViolationError struct {
	PredecessorID int64
	SuccessorID   int64
	Reason        string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("task %d cannot precede %d: %s", e.PredecessorID, e.SuccessorID, e.Reason)
}

// TaskInUseError blocks deletion of a task that still has children or edges.
type TaskInUseError struct {
	TaskID        int64
	ChildIDs      []int64
	DependencyIDs []int64
}

func (e *TaskInUseError) Error() string {
	parts := []string{}
	if len(e.ChildIDs) > 0 {
		parts = append(parts, "children "+joinIDs(e.ChildIDs, ","))
	}
	if len(e.DependencyIDs) > 0 {
		parts = append(parts, "dependencies "+joinIDs(e.DependencyIDs, ","))
	}
	return fmt.Sprintf("task %d is still referenced by %s", e.TaskID, strings.Join(parts, " and "))
}

// ErrorIDs extracts the task ids carried by a domain error, or nil.
func ErrorIDs(err error) []int64 {
	var (
		cycle     *CycleDetectedError
		self      *SelfDependencyError
		hierarchy *InvalidHierarchyError
		dates     *InconsistentDateError
		dangling  *DanglingReferenceError
		duplicate *DuplicateDependencyError
		scope     *ScopeViolationError
		inUse     *TaskInUseError
	)
	switch {
	case errors.As(err, &cycle):
		return cycle.IDs
	case errors.As(err, &self):
		return []int64{self.TaskID}
	case errors.As(err, &hierarchy):
		return []int64{hierarchy.TaskID, hierarchy.ParentID}
	case errors.As(err, &dates):
		return []int64{dates.TaskID}
	case errors.As(err, &dangling):
		return []int64{dangling.MissingID}
	case errors.As(err, &duplicate):
		return []int64{duplicate.PredecessorID, duplicate.SuccessorID}
	case errors.As(err, &scope):
		return []int64{scope.PredecessorID, scope.SuccessorID}
	case errors.As(err, &inUse):
		return append([]int64{inUse.TaskID}, inUse.ChildIDs...)
	}
	return nil
}

// ErrorKind names the domain error kind for API responses.
func ErrorKind(err error) string {
	var (
		cycle     *CycleDetectedError
		self      *SelfDependencyError
		hierarchy *InvalidHierarchyError
		dates     *InconsistentDateError
		dangling  *DanglingReferenceError
		duplicate *DuplicateDependencyError
		scope     *ScopeViolationError
		inUse     *TaskInUseError
	)
	switch {
	case errors.As(err, &cycle):
		return "cycle_detected"
	case errors.As(err, &self):
		return "self_dependency"
	case errors.As(err, &hierarchy):
		return "invalid_hierarchy"
	case errors.As(err, &dates):
		return "inconsistent_date"
	case errors.As(err, &dangling):
		return "dangling_reference"
	case errors.As(err, &duplicate):
		return "duplicate_dependency"
	case errors.As(err, &scope):
		return "scope_violation"
	case errors.As(err, &inUse):
		return "task_in_use"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return ""
}

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, sep)
}
