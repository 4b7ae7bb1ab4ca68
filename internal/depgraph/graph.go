package depgraph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// Graph holds precedence edges over a fixed task set. Adjacency is kept both
// ways so predecessor and successor lookups cost O(degree).
type Graph struct {
	tasks  map[int64]model.Task
	edges  map[int64]model.Dependency
	out    map[int64][]int64 // task id -> outgoing edge ids
	in     map[int64][]int64 // task id -> incoming edge ids
	nextID int64
}

func New(tasks []model.Task) *Graph {
	g := &Graph{
		tasks:  make(map[int64]model.Task, len(tasks)),
		edges:  make(map[int64]model.Dependency),
		out:    make(map[int64][]int64),
		in:     make(map[int64][]int64),
		nextID: 1,
	}
	for _, task := range tasks {
		g.tasks[task.ID] = task
	}
	return g
}

// Build loads stored edges without re-validating them beyond references, so
// corrupted data (self loops, cycles) can still be inspected. An edge naming
// a task outside the set fails with DanglingReferenceError.
func Build(tasks []model.Task, edges []model.Dependency) (*Graph, error) {
	g := New(tasks)
	for _, edge := range edges {
		if err := g.checkRefs(edge); err != nil {
			return nil, err
		}
		g.insert(edge)
	}
	return g, nil
}

func (g *Graph) checkRefs(edge model.Dependency) error {
	if _, ok := g.tasks[edge.PredecessorID]; !ok {
		return &model.DanglingReferenceError{From: fmt.Sprintf("dependency %d", edge.ID), MissingID: edge.PredecessorID}
	}
	if _, ok := g.tasks[edge.SuccessorID]; !ok {
		return &model.DanglingReferenceError{From: fmt.Sprintf("dependency %d", edge.ID), MissingID: edge.SuccessorID}
	}
	return nil
}

func (g *Graph) insert(edge model.Dependency) {
	if edge.ID == 0 {
		edge.ID = g.nextID
	}
	if edge.Type == "" {
		edge.Type = model.FinishToStart
	}
	g.nextID = max(g.nextID, edge.ID+1)
	g.edges[edge.ID] = edge
	g.out[edge.PredecessorID] = append(g.out[edge.PredecessorID], edge.ID)
	g.in[edge.SuccessorID] = append(g.in[edge.SuccessorID], edge.ID)
}

// Check runs every rule AddEdge applies without committing anything.
func (g *Graph) Check(edge model.Dependency) error {
	if edge.PredecessorID == edge.SuccessorID {
		return &model.SelfDependencyError{TaskID: edge.PredecessorID}
	}
	if err := g.checkRefs(edge); err != nil {
		return err
	}
	pred, succ := g.tasks[edge.PredecessorID], g.tasks[edge.SuccessorID]
	if pred.ProjectID != succ.ProjectID {
		return &model.ScopeViolationError{PredecessorID: pred.ID, SuccessorID: succ.ID, Reason: "tasks belong to different projects"}
	}
	if _, ok := g.Find(edge.PredecessorID, edge.SuccessorID); ok {
		return &model.DuplicateDependencyError{PredecessorID: edge.PredecessorID, SuccessorID: edge.SuccessorID}
	}
	if path := g.path(edge.SuccessorID, edge.PredecessorID); path != nil {
		return &model.CycleDetectedError{Kind: "dependency", IDs: append([]int64{edge.PredecessorID}, path[:len(path)-1]...)}
	}
	return nil
}

// AddEdge validates and commits a new edge, returning it with its id set.
// An edge that would let the successor reach the predecessor again fails
// with CycleDetectedError and leaves the graph unchanged.
func (g *Graph) AddEdge(predecessorID, successorID int64, typ model.DependencyType, lagDays int) (model.Dependency, error) {
	edge := model.Dependency{PredecessorID: predecessorID, SuccessorID: successorID, Type: typ, LagDays: lagDays}
	if err := g.Check(edge); err != nil {
		return model.Dependency{}, err
	}
	edge.ID = g.nextID
	g.insert(edge)
	return g.edges[edge.ID], nil
}

// RemoveEdge drops an edge. Removing an absent edge is not an error; the
// return value only reports whether something was removed.
func (g *Graph) RemoveEdge(id int64) bool {
	edge, ok := g.edges[id]
	if !ok {
		return false
	}
	delete(g.edges, id)
	g.out[edge.PredecessorID] = slices.DeleteFunc(g.out[edge.PredecessorID], func(v int64) bool { return v == id })
	g.in[edge.SuccessorID] = slices.DeleteFunc(g.in[edge.SuccessorID], func(v int64) bool { return v == id })
	return true
}

func (g *Graph) Task(id int64) (model.Task, bool) {
	task, ok := g.tasks[id]
	return task, ok
}

// TaskIDs returns every task id in ascending order.
func (g *Graph) TaskIDs() []int64 {
	ids := make([]int64, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) Edge(id int64) (model.Dependency, bool) {
	edge, ok := g.edges[id]
	return edge, ok
}

// Edges returns all edges ordered by id.
func (g *Graph) Edges() []model.Dependency {
	result := make([]model.Dependency, 0, len(g.edges))
	for _, edge := range g.edges {
		result = append(result, edge)
	}
	slices.SortFunc(result, func(a, b model.Dependency) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

// Find returns the edge from predecessorID to successorID, if any.
func (g *Graph) Find(predecessorID, successorID int64) (model.Dependency, bool) {
	for _, edgeID := range g.out[predecessorID] {
		if edge := g.edges[edgeID]; edge.SuccessorID == successorID {
			return edge, true
		}
	}
	return model.Dependency{}, false
}

// Predecessors returns the incoming edges of a task.
func (g *Graph) Predecessors(taskID int64) []model.Dependency {
	return g.collect(g.in[taskID])
}

// Successors returns the outgoing edges of a task.
func (g *Graph) Successors(taskID int64) []model.Dependency {
	return g.collect(g.out[taskID])
}

func (g *Graph) collect(ids []int64) []model.Dependency {
	result := make([]model.Dependency, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.edges[id])
	}
	return result
}

// Reachable returns every task reachable from id by following successor
// edges. id itself is included only when it sits on a cycle.
func (g *Graph) Reachable(id int64) map[int64]bool {
	seen := make(map[int64]bool)
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edgeID := range g.out[current] {
			next := g.edges[edgeID].SuccessorID
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return seen
}

// path returns a successor path from -> ... -> to using breadth-first search,
// or nil when to is unreachable.
func (g *Graph) path(from, to int64) []int64 {
	if from == to {
		return []int64{from}
	}
	prev := map[int64]int64{from: from}
	queue := []int64{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edgeID := range g.out[current] {
			next := g.edges[edgeID].SuccessorID
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = current
			if next == to {
				var result []int64
				for node := to; node != from; node = prev[node] {
					result = append(result, node)
				}
				result = append(result, from)
				slices.Reverse(result)
				return result
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// FindCycle returns the tasks of one cycle in successor order, or nil when
// the graph is acyclic. Tasks are visited by ascending id so the answer is
// stable.
func (g *Graph) FindCycle() []int64 {
	const (
		white = iota
		grey
		black
	)
	color := make(map[int64]int, len(g.tasks))
	var stack []int64
	var found []int64

	var visit func(id int64) bool
	visit = func(id int64) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, edgeID := range g.out[id] {
			next := g.edges[edgeID].SuccessorID
			switch color[next] {
			case grey:
				at := slices.Index(stack, next)
				found = slices.Clone(stack[at:])
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.TaskIDs() {
		if color[id] == white && visit(id) {
			return found
		}
	}
	return nil
}

// Validate reports the first stored edge that breaks a graph invariant: a
// self loop or a cycle.
func (g *Graph) Validate() error {
	for _, edge := range g.Edges() {
		if edge.PredecessorID == edge.SuccessorID {
			return &model.SelfDependencyError{TaskID: edge.PredecessorID}
		}
	}
	if cycle := g.FindCycle(); cycle != nil {
		return &model.CycleDetectedError{Kind: "dependency", IDs: cycle}
	}
	return nil
}
