package hierarchy

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

func id(v int64) *int64 {
	return &v
}

// sampleTasks is a two-root forest:
//
//	1 ─┬─ 3 ── 5
//	   └─ 2
//	4
func sampleTasks() []model.Task {
	return []model.Task{
		{ID: 5, ProjectID: 1, ParentTaskID: id(3)},
		{ID: 4, ProjectID: 1, SortOrder: 2},
		{ID: 3, ProjectID: 1, ParentTaskID: id(1), SortOrder: 1},
		{ID: 2, ProjectID: 1, ParentTaskID: id(1), SortOrder: 5},
		{ID: 1, ProjectID: 1, SortOrder: 1},
	}
}

func mustBuild(t *testing.T, tasks []model.Task) *Forest {
	t.Helper()
	f, err := Build(tasks)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return f
}

func TestAssignLevelsMatchesParentChain(t *testing.T) {
	f := mustBuild(t, sampleTasks())
	tasks, err := f.AssignLevels()
	if err != nil {
		t.Fatalf("assign levels: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}

	levels := map[int64]int{}
	for _, task := range tasks {
		levels[task.ID] = task.Level
	}
	for _, task := range tasks {
		if task.ParentTaskID == nil {
			if task.Level != 0 {
				t.Fatalf("root %d has level %d", task.ID, task.Level)
			}
			continue
		}
		if task.Level != levels[*task.ParentTaskID]+1 {
			t.Fatalf("task %d level %d, parent level %d", task.ID, task.Level, levels[*task.ParentTaskID])
		}
	}
}

func TestBuildRejectsUnknownParent(t *testing.T) {
	_, err := Build([]model.Task{{ID: 1, ParentTaskID: id(99)}})
	var dangling *model.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if dangling.MissingID != 99 {
		t.Fatalf("expected missing id 99, got %d", dangling.MissingID)
	}
}

func TestAssignLevelsDetectsParentCycle(t *testing.T) {
	f := mustBuild(t, []model.Task{
		{ID: 1},
		{ID: 2, ParentTaskID: id(3)},
		{ID: 3, ParentTaskID: id(2)},
	})
	_, err := f.AssignLevels()
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleDetectedError, got %v", err)
	}
	ids := slices.Clone(cycle.IDs)
	slices.Sort(ids)
	if !slices.Equal(ids, []int64{2, 3}) {
		t.Fatalf("expected cycle over 2 and 3, got %v", cycle.IDs)
	}
}

func TestAssignLevelsRejectsTooDeep(t *testing.T) {
	f := mustBuild(t, []model.Task{
		{ID: 1},
		{ID: 2, ParentTaskID: id(1)},
		{ID: 3, ParentTaskID: id(2)},
		{ID: 4, ParentTaskID: id(3)},
	})
	_, err := f.AssignLevels()
	var invalid *model.InvalidHierarchyError
	if !errors.As(err, &invalid) || invalid.TaskID != 4 {
		t.Fatalf("expected InvalidHierarchyError for task 4, got %v", err)
	}
}

func TestFlattenOrdersSiblingsAndIsDeterministic(t *testing.T) {
	want := []int64{1, 3, 5, 2, 4}

	tasks := sampleTasks()
	first := IDs(Flatten(mustBuild(t, tasks)))
	if !slices.Equal(first, want) {
		t.Fatalf("expected %v, got %v", want, first)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := slices.Clone(tasks)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := IDs(Flatten(mustBuild(t, shuffled)))
		if !slices.Equal(got, want) {
			t.Fatalf("shuffle %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestFlattenTieBreaksByID(t *testing.T) {
	f := mustBuild(t, []model.Task{{ID: 9}, {ID: 3}, {ID: 5}})
	if got := IDs(Flatten(f)); !slices.Equal(got, []int64{3, 5, 9}) {
		t.Fatalf("expected id order, got %v", got)
	}
}

func TestFlattenVisibleHonoursExpandedSet(t *testing.T) {
	f := mustBuild(t, sampleTasks())

	collapsed := FlattenVisible(f, nil)
	if got := IDs(collapsed); !slices.Equal(got, []int64{1, 4}) {
		t.Fatalf("expected only roots, got %v", got)
	}
	if !collapsed[0].HasChildren || collapsed[0].Expanded {
		t.Fatalf("expected collapsed root with children, got %+v", collapsed[0])
	}

	partial := FlattenVisible(f, map[int64]bool{1: true})
	if got := IDs(partial); !slices.Equal(got, []int64{1, 3, 2, 4}) {
		t.Fatalf("expected 1,3,2,4, got %v", got)
	}
	if partial[1].Depth != 1 {
		t.Fatalf("expected depth 1 for task 3, got %d", partial[1].Depth)
	}
}

func TestReparent(t *testing.T) {
	t.Run("moves subtree and recomputes levels", func(t *testing.T) {
		moved, err := Reparent(sampleTasks(), 3, id(4))
		if err != nil {
			t.Fatalf("reparent: %v", err)
		}
		if len(moved) != 2 {
			t.Fatalf("expected task and one descendant, got %d", len(moved))
		}
		if moved[0].ID != 3 || *moved[0].ParentTaskID != 4 || moved[0].Level != 1 {
			t.Fatalf("unexpected moved task %+v", moved[0])
		}
		if moved[1].ID != 5 || moved[1].Level != 2 {
			t.Fatalf("unexpected descendant %+v", moved[1])
		}
	})

	t.Run("promote to root", func(t *testing.T) {
		moved, err := Reparent(sampleTasks(), 3, nil)
		if err != nil {
			t.Fatalf("reparent: %v", err)
		}
		if moved[0].ParentTaskID != nil || moved[0].Level != 0 || moved[1].Level != 1 {
			t.Fatalf("unexpected levels %+v", moved)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		tasks := sampleTasks()
		if _, err := Reparent(tasks, 2, id(4)); err != nil {
			t.Fatalf("reparent: %v", err)
		}
		if *tasks[3].ParentTaskID != 1 {
			t.Fatalf("input task changed parent")
		}
	})

	rejected := []struct {
		name   string
		taskID int64
		parent int64
	}{
		{"self", 1, 1},
		{"descendant", 1, 5},
		{"parent at max level", 4, 5},
		{"subtree too deep", 1, 4},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reparent(sampleTasks(), tc.taskID, id(tc.parent))
			var invalid *model.InvalidHierarchyError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidHierarchyError, got %v", err)
			}
		})
	}

	t.Run("unknown parent", func(t *testing.T) {
		_, err := Reparent(sampleTasks(), 1, id(42))
		var dangling *model.DanglingReferenceError
		if !errors.As(err, &dangling) {
			t.Fatalf("expected DanglingReferenceError, got %v", err)
		}
	})
}

func TestRollupProgress(t *testing.T) {
	tasks := sampleTasks()
	for i := range tasks {
		switch tasks[i].ID {
		case 5:
			tasks[i].ProgressRate = 50
		case 2:
			tasks[i].ProgressRate = 25
		case 4:
			tasks[i].ProgressRate = 10
		}
	}

	changed := RollupProgress(mustBuild(t, tasks))
	if changed[3] != 50 {
		t.Fatalf("expected task 3 at 50, got %d", changed[3])
	}
	if changed[1] != 37 {
		t.Fatalf("expected task 1 at 37, got %d", changed[1])
	}
	if _, ok := changed[4]; ok {
		t.Fatalf("leaf task must not change")
	}
}

func TestAncestorsAndSiblings(t *testing.T) {
	f := mustBuild(t, sampleTasks())
	if got := f.Ancestors(5); !slices.Equal(got, []int64{3, 1}) {
		t.Fatalf("expected ancestors 3,1, got %v", got)
	}
	if !f.IsAncestor(1, 5) || f.IsAncestor(5, 1) {
		t.Fatalf("unexpected ancestor relation")
	}
	if got := f.Siblings(3); !slices.Equal(got, []int64{2}) {
		t.Fatalf("expected sibling 2, got %v", got)
	}
	if got := f.Siblings(4); !slices.Equal(got, []int64{1}) {
		t.Fatalf("expected root sibling 1, got %v", got)
	}
}
