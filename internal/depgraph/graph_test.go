package depgraph

import (
	"errors"
	"slices"
	"testing"

	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
)

func ptr(v int64) *int64 {
	return &v
}

// projectTasks:
//
//	1 ─┬─ 2
//	   └─ 3 ── 4
//	5
//	6 (other project)
func projectTasks() []model.Task {
	return []model.Task{
		{ID: 1, ProjectID: 1, SortOrder: 1},
		{ID: 2, ProjectID: 1, ParentTaskID: ptr(1), SortOrder: 1},
		{ID: 3, ProjectID: 1, ParentTaskID: ptr(1), SortOrder: 2},
		{ID: 4, ProjectID: 1, ParentTaskID: ptr(3), SortOrder: 1},
		{ID: 5, ProjectID: 1, SortOrder: 2},
		{ID: 6, ProjectID: 2, SortOrder: 1},
	}
}

func newGraph(t *testing.T, edges ...model.Dependency) *Graph {
	t.Helper()
	g, err := Build(projectTasks(), edges)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestAddEdgeAssignsIDsAndAdjacency(t *testing.T) {
	g := newGraph(t)
	first, err := g.AddEdge(1, 5, model.FinishToStart, 0)
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	second, err := g.AddEdge(2, 3, "", 2)
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if second.Type != model.FinishToStart {
		t.Fatalf("expected default type finish_to_start, got %q", second.Type)
	}
	if preds := g.Predecessors(5); len(preds) != 1 || preds[0].PredecessorID != 1 {
		t.Fatalf("unexpected predecessors of 5: %+v", preds)
	}
	if succs := g.Successors(2); len(succs) != 1 || succs[0].SuccessorID != 3 {
		t.Fatalf("unexpected successors of 2: %+v", succs)
	}
}

func TestAddEdgeValidation(t *testing.T) {
	g := newGraph(t,
		model.Dependency{ID: 10, PredecessorID: 1, SuccessorID: 5},
		model.Dependency{ID: 11, PredecessorID: 2, SuccessorID: 3},
	)

	cases := []struct {
		name  string
		pred  int64
		succ  int64
		check func(error) bool
	}{
		{"self", 2, 2, func(err error) bool {
			var target *model.SelfDependencyError
			return errors.As(err, &target)
		}},
		{"unknown task", 2, 99, func(err error) bool {
			var target *model.DanglingReferenceError
			return errors.As(err, &target)
		}},
		{"other project", 6, 1, func(err error) bool {
			var target *model.ScopeViolationError
			return errors.As(err, &target)
		}},
		{"duplicate", 1, 5, func(err error) bool {
			var target *model.DuplicateDependencyError
			return errors.As(err, &target)
		}},
		{"cycle", 5, 1, func(err error) bool {
			var target *model.CycleDetectedError
			return errors.As(err, &target) && slices.Equal(target.IDs, []int64{5, 1})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.AddEdge(tc.pred, tc.succ, model.FinishToStart, 0)
			if !tc.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if got := len(g.Edges()); got != 2 {
				t.Fatalf("rejected edge changed the graph: %d edges", got)
			}
		})
	}
}

func TestAddEdgeRejectsLongCycle(t *testing.T) {
	g := newGraph(t)
	for _, pair := range [][2]int64{{1, 5}, {5, 2}, {2, 3}} {
		if _, err := g.AddEdge(pair[0], pair[1], model.FinishToStart, 0); err != nil {
			t.Fatalf("add %v: %v", pair, err)
		}
	}
	_, err := g.AddEdge(3, 1, model.StartToStart, 0)
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if !slices.Equal(cycle.IDs, []int64{3, 1, 5, 2}) {
		t.Fatalf("unexpected cycle path %v", cycle.IDs)
	}
	if g.FindCycle() != nil {
		t.Fatalf("graph must stay acyclic")
	}
}

func TestRemoveEdgeIsIdempotent(t *testing.T) {
	g := newGraph(t, model.Dependency{ID: 7, PredecessorID: 1, SuccessorID: 5})
	if !g.RemoveEdge(7) {
		t.Fatalf("expected first removal to report true")
	}
	if g.RemoveEdge(7) {
		t.Fatalf("expected second removal to report false")
	}
	if len(g.Predecessors(5)) != 0 || len(g.Successors(1)) != 0 {
		t.Fatalf("adjacency not cleaned up")
	}
}

func TestBuildRejectsDanglingEdge(t *testing.T) {
	_, err := Build(projectTasks(), []model.Dependency{{ID: 1, PredecessorID: 1, SuccessorID: 42}})
	var dangling *model.DanglingReferenceError
	if !errors.As(err, &dangling) || dangling.MissingID != 42 {
		t.Fatalf("expected dangling reference to 42, got %v", err)
	}
}

func TestValidateFindsStoredCycle(t *testing.T) {
	g := newGraph(t,
		model.Dependency{ID: 1, PredecessorID: 1, SuccessorID: 5},
		model.Dependency{ID: 2, PredecessorID: 5, SuccessorID: 1},
	)
	err := g.Validate()
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycle, got %v", err)
	}
	if !slices.Equal(cycle.IDs, []int64{1, 5}) {
		t.Fatalf("unexpected cycle %v", cycle.IDs)
	}
}

func TestValidPredecessors(t *testing.T) {
	tasks := projectTasks()
	forest, err := hierarchy.Build(tasks)
	if err != nil {
		t.Fatalf("build forest: %v", err)
	}
	g := newGraph(t, model.Dependency{ID: 1, PredecessorID: 4, SuccessorID: 2})

	ids := func(tasks []model.Task) []int64 {
		var result []int64
		for _, task := range tasks {
			result = append(result, task.ID)
		}
		return result
	}

	cases := []struct {
		name   string
		taskID int64
		scope  Scope
		want   []int64
	}{
		{"root gets other roots", 1, ScopeHierarchy, []int64{5}},
		{"subtask gets siblings and ancestors", 4, ScopeHierarchy, []int64{1, 3}},
		{"existing predecessor and reachable excluded", 2, ScopeHierarchy, []int64{1, 3}},
		{"siblings only", 3, ScopeSiblings, []int64{2}},
		{"whole project", 5, ScopeProject, []int64{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidPredecessors(g, forest, tc.taskID, tc.scope)
			if err != nil {
				t.Fatalf("valid predecessors: %v", err)
			}
			if !slices.Equal(ids(got), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, ids(got))
			}
		})
	}
}

func TestValidPredecessorsExcludesSuccessors(t *testing.T) {
	forest, err := hierarchy.Build(projectTasks())
	if err != nil {
		t.Fatalf("build forest: %v", err)
	}
	g := newGraph(t, model.Dependency{ID: 1, PredecessorID: 2, SuccessorID: 3})

	got, err := ValidPredecessors(g, forest, 2, ScopeSiblings)
	if err != nil {
		t.Fatalf("valid predecessors: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("successor 3 must not be offered, got %+v", got)
	}
}

func TestCheckScope(t *testing.T) {
	forest, err := hierarchy.Build(projectTasks())
	if err != nil {
		t.Fatalf("build forest: %v", err)
	}
	if err := CheckScope(forest, ScopeHierarchy, 5, 4); err == nil {
		t.Fatalf("expected scope violation for a root preceding a nested task")
	}
	if err := CheckScope(forest, ScopeProject, 5, 4); err != nil {
		t.Fatalf("project scope should allow any task: %v", err)
	}
}
