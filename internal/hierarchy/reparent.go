package hierarchy

import (
	"fmt"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// Reparent moves taskID under newParentID (nil makes it a root) and returns
// the moved task followed by its descendants in pre-order, each with Level
// recomputed. The input slice is left untouched and nothing is returned on
// error.
func Reparent(tasks []model.Task, taskID int64, newParentID *int64) ([]model.Task, error) {
	f, err := Build(tasks)
	if err != nil {
		return nil, err
	}
	leveled, err := f.AssignLevels()
	if err != nil {
		return nil, err
	}
	levels := make(map[int64]int, len(leveled))
	for _, task := range leveled {
		levels[task.ID] = task.Level
	}

	task, ok := f.Task(taskID)
	if !ok {
		return nil, &model.DanglingReferenceError{From: "reparent", MissingID: taskID}
	}

	newLevel := 0
	if newParentID != nil {
		parentID := *newParentID
		parent, ok := f.Task(parentID)
		if !ok {
			return nil, &model.DanglingReferenceError{From: fmt.Sprintf("task %d parent", taskID), MissingID: parentID}
		}
		if err := CheckParent(f, task, parent, levels[parentID]); err != nil {
			return nil, err
		}
		newLevel = levels[parentID] + 1
		if newLevel+f.height(taskID) > MaxLevel {
			return nil, &model.InvalidHierarchyError{TaskID: taskID, ParentID: parentID, Reason: fmt.Sprintf("subtree would exceed max depth of %d levels", MaxLevel+1)}
		}
	}

	moved := task
	moved.ParentTaskID = copyID(newParentID)
	moved.Level = newLevel
	result := []model.Task{moved}

	shift := newLevel - levels[taskID]
	for _, id := range f.Descendants(taskID) {
		descendant, _ := f.Task(id)
		descendant.Level = levels[id] + shift
		result = append(result, descendant)
	}
	return result, nil
}

// CheckParent validates placing task under parent, where parentLevel is the
// parent's current level. It rejects self parenting, descendants as parents,
// cross-project parents, and parents already at MaxLevel.
func CheckParent(f *Forest, task, parent model.Task, parentLevel int) error {
	switch {
	case parent.ID == task.ID:
		return &model.InvalidHierarchyError{TaskID: task.ID, ParentID: parent.ID, Reason: "task cannot be its own parent"}
	case f != nil && f.IsAncestor(task.ID, parent.ID):
		return &model.InvalidHierarchyError{TaskID: task.ID, ParentID: parent.ID, Reason: "new parent is a descendant of the task"}
	case parent.ProjectID != task.ProjectID:
		return &model.InvalidHierarchyError{TaskID: task.ID, ParentID: parent.ID, Reason: "parent belongs to another project"}
	case parentLevel >= MaxLevel:
		return &model.InvalidHierarchyError{TaskID: task.ID, ParentID: parent.ID, Reason: fmt.Sprintf("parent is at level %d, the deepest allowed", parentLevel)}
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}
