// Package gantt exposes the scheduling engine to the storage, web and
// terminal layers: layout, critical path, predecessor candidates,
// dependency validation and reparenting.
package gantt

import (
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazygantt/internal/cpm"
	"github.com/Joseda-hg/lazygantt/internal/depgraph"
	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

// Planner holds the engine settings shared by every computation. It keeps
// no per-project state and is safe for concurrent use.
type Planner struct {
	log    lgr.L
	engine *cpm.Engine
	strict bool
	scope  depgraph.Scope
	now    func() time.Time
}

type Option func(*Planner)

func WithLogger(l lgr.L) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

func WithScope(scope depgraph.Scope) Option {
	return func(p *Planner) {
		if scope != "" {
			p.scope = scope
		}
	}
}

// WithStrictCycles makes critical path computations fail on dependency
// cycles instead of logging and continuing.
func WithStrictCycles(strict bool) Option {
	return func(p *Planner) {
		p.strict = strict
	}
}

// WithClock replaces time.Now, used for the today marker and the default
// project window.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		log:   lgr.NoOp,
		scope: depgraph.ScopeHierarchy,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.engine = cpm.New(cpm.WithLogger(p.log), cpm.WithStrictCycles(p.strict))
	return p
}

func (p *Planner) Scope() depgraph.Scope {
	return p.scope
}

func (p *Planner) Now() time.Time {
	return p.now()
}

// ComputeLayout flattens the visible rows and positions them on the window.
// Critical flags and slack come from a full critical path run. Rows carry
// window coordinates only; the container width is applied by BuildChart
// through Params.ContainerWidth.
func (p *Planner) ComputeLayout(tasks []model.Task, edges []model.Dependency, window timeline.Window, view timeline.ViewType, expanded map[int64]bool) ([]Task, error) {
	forest, err := hierarchy.Build(tasks)
	if err != nil {
		return nil, err
	}
	// a parent cycle has no root, so its tasks would never be flattened
	if _, err := forest.AssignLevels(); err != nil {
		return nil, err
	}
	schedule, err := p.engine.Compute(tasks, edges, window)
	if err != nil {
		return nil, err
	}
	return layoutTasks(forest, Layout{Window: window, View: view, Expanded: expanded, Schedule: schedule})
}

// CriticalPath runs the forward and backward passes over the task set. The
// window supplies dates for tasks that have none; pass the zero Window to
// derive it from the tasks themselves.
func (p *Planner) CriticalPath(tasks []model.Task, edges []model.Dependency, window timeline.Window) (*cpm.Result, error) {
	if window.Start.IsZero() {
		window = timeline.ProjectWindow(nil, nil, tasks, p.now())
	}
	if _, err := depgraph.Build(tasks, edges); err != nil {
		return nil, err
	}
	return p.engine.Compute(tasks, edges, window)
}

// ComputeCriticalPath returns the ids of every zero-slack task.
func (p *Planner) ComputeCriticalPath(tasks []model.Task, edges []model.Dependency) (map[int64]bool, error) {
	result, err := p.CriticalPath(tasks, edges, timeline.Window{})
	if err != nil {
		return nil, err
	}
	return result.CriticalSet(), nil
}

// ValidatePredecessorCandidates lists the tasks that may be linked as new
// predecessors of taskID under the planner's scope.
func (p *Planner) ValidatePredecessorCandidates(taskID int64, tasks []model.Task, edges []model.Dependency) ([]model.Task, error) {
	forest, err := hierarchy.Build(tasks)
	if err != nil {
		return nil, err
	}
	graph, err := depgraph.Build(tasks, edges)
	if err != nil {
		return nil, err
	}
	return depgraph.ValidPredecessors(graph, forest, taskID, p.scope)
}

// AddDependency validates a new edge against the existing ones and returns
// it. Nothing is stored: the id on the returned edge is only provisional and
// the caller persists it. Validation covers self links, unknown tasks,
// project and scope boundaries, duplicates and cycles.
func (p *Planner) AddDependency(predecessorID, successorID int64, typ model.DependencyType, lagDays int, tasks []model.Task, edges []model.Dependency) (model.Dependency, error) {
	graph, err := depgraph.Build(tasks, edges)
	if err != nil {
		return model.Dependency{}, err
	}
	edge := model.Dependency{PredecessorID: predecessorID, SuccessorID: successorID, Type: typ, LagDays: lagDays}
	if err := graph.Check(edge); err != nil {
		return model.Dependency{}, err
	}
	forest, err := hierarchy.Build(tasks)
	if err != nil {
		return model.Dependency{}, err
	}
	if err := depgraph.CheckScope(forest, p.scope, predecessorID, successorID); err != nil {
		return model.Dependency{}, err
	}
	return graph.AddEdge(predecessorID, successorID, typ, lagDays)
}

// ReparentTask moves a task under newParentID (nil for root) and returns the
// moved subtree with recomputed levels.
func (p *Planner) ReparentTask(taskID int64, newParentID *int64, tasks []model.Task) ([]model.Task, error) {
	return hierarchy.Reparent(tasks, taskID, newParentID)
}
