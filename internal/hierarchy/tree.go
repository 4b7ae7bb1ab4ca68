package hierarchy

import (
	"fmt"
	"sort"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// MaxLevel is the deepest level a task may sit at. Roots are level 0, so a
// tree holds at most three levels and a level 2 task cannot have children.
const MaxLevel = 2

// Forest indexes a task set by parent. Tasks are copied in and never
// mutated; derived values come back as new slices.
type Forest struct {
	tasks    map[int64]model.Task
	roots    []int64
	children map[int64][]int64
}

// Build groups tasks by ParentTaskID. Tasks without a parent become roots.
// A parent id missing from the set fails with DanglingReferenceError.
func Build(tasks []model.Task) (*Forest, error) {
	f := &Forest{
		tasks:    make(map[int64]model.Task, len(tasks)),
		children: make(map[int64][]int64),
	}
	for _, task := range tasks {
		f.tasks[task.ID] = task
	}

	for _, task := range tasks {
		if task.ParentTaskID == nil {
			f.roots = append(f.roots, task.ID)
			continue
		}
		parentID := *task.ParentTaskID
		if _, ok := f.tasks[parentID]; !ok {
			return nil, &model.DanglingReferenceError{From: fmt.Sprintf("task %d parent", task.ID), MissingID: parentID}
		}
		f.children[parentID] = append(f.children[parentID], task.ID)
	}

	f.sortSiblings(f.roots)
	for _, ids := range f.children {
		f.sortSiblings(ids)
	}
	return f, nil
}

// sortSiblings orders by sort_order, then id.
func (f *Forest) sortSiblings(ids []int64) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := f.tasks[ids[i]], f.tasks[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
}

func (f *Forest) Len() int {
	return len(f.tasks)
}

func (f *Forest) Task(id int64) (model.Task, bool) {
	task, ok := f.tasks[id]
	return task, ok
}

func (f *Forest) Roots() []int64 {
	return f.roots
}

// Children returns the ordered direct children of id.
func (f *Forest) Children(id int64) []int64 {
	return f.children[id]
}

func (f *Forest) HasChildren(id int64) bool {
	return len(f.children[id]) > 0
}

// Parent returns the parent id of a task, or false for roots and unknown ids.
func (f *Forest) Parent(id int64) (int64, bool) {
	task, ok := f.tasks[id]
	if !ok || task.ParentTaskID == nil {
		return 0, false
	}
	return *task.ParentTaskID, true
}

// Ancestors walks the parent chain from the direct parent upwards. The walk
// stops if the chain loops.
func (f *Forest) Ancestors(id int64) []int64 {
	var result []int64
	seen := map[int64]struct{}{id: {}}
	for parentID, ok := f.Parent(id); ok; parentID, ok = f.Parent(parentID) {
		if _, loop := seen[parentID]; loop {
			break
		}
		seen[parentID] = struct{}{}
		result = append(result, parentID)
	}
	return result
}

// Descendants lists the whole subtree below id in pre-order.
func (f *Forest) Descendants(id int64) []int64 {
	var result []int64
	seen := map[int64]struct{}{id: {}}
	var walk func(parentID int64)
	walk = func(parentID int64) {
		for _, childID := range f.children[parentID] {
			if _, ok := seen[childID]; ok {
				continue
			}
			seen[childID] = struct{}{}
			result = append(result, childID)
			walk(childID)
		}
	}
	walk(id)
	return result
}

// IsAncestor reports whether ancestorID sits on the parent chain of id.
func (f *Forest) IsAncestor(ancestorID, id int64) bool {
	for _, candidate := range f.Ancestors(id) {
		if candidate == ancestorID {
			return true
		}
	}
	return false
}

// Siblings returns the other children of id's parent, or the other roots.
func (f *Forest) Siblings(id int64) []int64 {
	group := f.roots
	if parentID, ok := f.Parent(id); ok {
		group = f.children[parentID]
	}
	result := make([]int64, 0, len(group))
	for _, other := range group {
		if other != id {
			result = append(result, other)
		}
	}
	return result
}

// height is the number of levels below id (0 for a leaf). The forest must
// be acyclic.
func (f *Forest) height(id int64) int {
	best := 0
	for _, childID := range f.children[id] {
		best = max(best, f.height(childID)+1)
	}
	return best
}

// AssignLevels walks each root depth first and returns every task with
// Level recomputed as parent level + 1. Tasks that no root reaches sit on a
// parent cycle and fail with CycleDetectedError; a task deeper than MaxLevel
// fails with InvalidHierarchyError.
func (f *Forest) AssignLevels() ([]model.Task, error) {
	result := make([]model.Task, 0, len(f.tasks))
	onPath := make(map[int64]bool, len(f.tasks))
	visited := make(map[int64]bool, len(f.tasks))

	var walk func(id int64, level int) error
	walk = func(id int64, level int) error {
		if onPath[id] {
			return &model.CycleDetectedError{Kind: "hierarchy", IDs: []int64{id}}
		}
		if visited[id] {
			return nil
		}
		task := f.tasks[id]
		if level > MaxLevel {
			parentID, _ := f.Parent(id)
			return &model.InvalidHierarchyError{TaskID: id, ParentID: parentID, Reason: fmt.Sprintf("exceeds max depth of %d levels", MaxLevel+1)}
		}
		onPath[id] = true
		visited[id] = true
		task.Level = level
		result = append(result, task)
		for _, childID := range f.children[id] {
			if err := walk(childID, level+1); err != nil {
				return err
			}
		}
		onPath[id] = false
		return nil
	}

	for _, rootID := range f.roots {
		if err := walk(rootID, 0); err != nil {
			return nil, err
		}
	}

	if len(visited) != len(f.tasks) {
		for id := range f.tasks {
			if !visited[id] {
				return nil, &model.CycleDetectedError{Kind: "hierarchy", IDs: f.parentCycle(id)}
			}
		}
	}
	return result, nil
}

// parentCycle follows parents from id until an id repeats and returns the
// loop itself.
func (f *Forest) parentCycle(id int64) []int64 {
	position := make(map[int64]int)
	var chain []int64
	for current, ok := id, true; ok; current, ok = f.Parent(current) {
		if at, seen := position[current]; seen {
			return chain[at:]
		}
		position[current] = len(chain)
		chain = append(chain, current)
	}
	return chain
}
