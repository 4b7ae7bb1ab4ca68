// Package cpm computes early and late dates, slack and the critical path of
// a dependency network.
package cpm

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// Epsilon absorbs float error when comparing slack to zero.
const Epsilon = 0.01

// Schedule holds the computed dates of one task, in days from project start.
type Schedule struct {
	Duration    float64 `json:"duration"`
	EarlyStart  float64 `json:"early_start"`
	EarlyFinish float64 `json:"early_finish"`
	LateStart   float64 `json:"late_start"`
	LateFinish  float64 `json:"late_finish"`
	Slack       float64 `json:"slack"`
	Critical    bool    `json:"critical"`
}

// Result holds the schedule of every task and the critical chain.
type Result struct {
	Tasks         map[int64]Schedule `json:"tasks"`
	ProjectFinish float64            `json:"project_finish"`
	Critical      []int64            `json:"critical"`
	// Cycles lists every cycle the passes ran into. Tasks on a cycle are
	// never marked critical because their dates are not meaningful.
	Cycles        [][]int64          `json:"cycles,omitempty"`
}

// IsCritical reports whether the task is on the critical path.
func (r *Result) IsCritical(id int64) bool {
	return r.Tasks[id].Critical
}

// CriticalSet returns the critical ids as a set.
func (r *Result) CriticalSet() map[int64]bool {
	set := make(map[int64]bool, len(r.Critical))
	for _, id := range r.Critical {
		set[id] = true
	}
	return set
}

// Engine runs the forward and backward passes.
type Engine struct {
	log    lgr.L
	strict bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for cycle warnings. nil keeps lgr.NoOp.
func WithLogger(l lgr.L) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStrictCycles makes Run fail with CycleDetectedError instead of logging
// a warning and treating the revisited task's date as zero.
func WithStrictCycles(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// New returns a lenient engine that logs nothing by default.
func New(opts ...Option) *Engine {
	e := &Engine{log: lgr.NoOp}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the forward and backward passes. durations is keyed by task
// id; every edge must reference ids present in it.
func (e *Engine) Run(durations map[int64]float64, edges []model.Dependency) (*Result, error) {
	p := &pass{
		engine:    e,
		durations: durations,
		preds:     make(map[int64][]model.Dependency),
		succs:     make(map[int64][]model.Dependency),
		es:        make(map[int64]float64, len(durations)),
		lf:        make(map[int64]float64, len(durations)),
		onCycle:   make(map[int64]bool),
	}
	for _, edge := range edges {
		for _, id := range []int64{edge.PredecessorID, edge.SuccessorID} {
			if _, ok := durations[id]; !ok {
				return nil, &model.DanglingReferenceError{From: fmt.Sprintf("dependency %d", edge.ID), MissingID: id}
			}
		}
		p.preds[edge.SuccessorID] = append(p.preds[edge.SuccessorID], edge)
		p.succs[edge.PredecessorID] = append(p.succs[edge.PredecessorID], edge)
	}

	ids := make([]int64, 0, len(durations))
	for id := range durations {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// forward
	p.reset()
	for _, id := range ids {
		if _, err := p.earlyStart(id); err != nil {
			return nil, err
		}
	}
	for _, id := range ids {
		p.finish = max(p.finish, p.es[id]+durations[id])
	}

	// backward
	p.reset()
	for _, id := range ids {
		if _, err := p.lateFinish(id); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Tasks:         make(map[int64]Schedule, len(ids)),
		ProjectFinish: p.finish,
		Cycles:        p.cycles,
	}
	for _, id := range ids {
		d := durations[id]
		s := Schedule{
			Duration:    d,
			EarlyStart:  p.es[id],
			EarlyFinish: p.es[id] + d,
			LateFinish:  p.lf[id],
			LateStart:   p.lf[id] - d,
		}
		s.Slack = s.LateStart - s.EarlyStart
		s.Critical = math.Abs(s.Slack) < Epsilon && !p.onCycle[id]
		if s.Critical {
			result.Critical = append(result.Critical, id)
		}
		result.Tasks[id] = s
	}
	return result, nil
}

// pass carries the memo tables of one Run.
type pass struct {
	engine    *Engine
	durations map[int64]float64
	preds     map[int64][]model.Dependency
	succs     map[int64][]model.Dependency

	es, lf  map[int64]float64
	done    map[int64]bool
	active  map[int64]bool
	stack   []int64
	finish  float64
	cycles  [][]int64
	onCycle map[int64]bool
}

func (p *pass) reset() {
	p.done = make(map[int64]bool, len(p.durations))
	p.active = make(map[int64]bool)
	p.stack = p.stack[:0]
}

// revisit handles reaching a task that is still on the recursion stack.
func (p *pass) revisit(id int64, direction string, fallback float64) (float64, error) {
	at := slices.Index(p.stack, id)
	cycle := slices.Clone(p.stack[at:])
	if p.engine.strict {
		return 0, &model.CycleDetectedError{Kind: "dependency", IDs: cycle}
	}
	if !p.known(cycle) {
		p.cycles = append(p.cycles, cycle)
		p.engine.log.Logf("[WARN] dependency cycle through tasks %v in %s pass, using %.0f for task %d", cycle, direction, fallback, id)
	}
	for _, member := range cycle {
		p.onCycle[member] = true
	}
	return fallback, nil
}

// known reports whether the same set of tasks was already recorded as a
// cycle, so the backward pass does not report it twice.
func (p *pass) known(cycle []int64) bool {
	sorted := slices.Sorted(slices.Values(cycle))
	for _, seen := range p.cycles {
		if slices.Equal(sorted, slices.Sorted(slices.Values(seen))) {
			return true
		}
	}
	return false
}

func (p *pass) earlyStart(id int64) (float64, error) {
	if p.done[id] {
		return p.es[id], nil
	}
	if p.active[id] {
		return p.revisit(id, "forward", 0)
	}
	p.active[id] = true
	p.stack = append(p.stack, id)

	es := 0.0
	for _, edge := range sortedEdges(p.preds[id]) {
		predES, err := p.earlyStart(edge.PredecessorID)
		if err != nil {
			return 0, err
		}
		es = max(es, RequiredStart(edge.Type, predES, p.durations[edge.PredecessorID], p.durations[id], float64(edge.LagDays)))
	}

	p.stack = p.stack[:len(p.stack)-1]
	p.active[id] = false
	p.done[id] = true
	p.es[id] = es
	return es, nil
}

func (p *pass) lateFinish(id int64) (float64, error) {
	if p.done[id] {
		return p.lf[id], nil
	}
	if p.active[id] {
		return p.revisit(id, "backward", p.finish)
	}
	p.active[id] = true
	p.stack = append(p.stack, id)

	lf := p.finish
	for _, edge := range sortedEdges(p.succs[id]) {
		succLF, err := p.lateFinish(edge.SuccessorID)
		if err != nil {
			return 0, err
		}
		lf = min(lf, RequiredFinish(edge.Type, succLF, p.durations[edge.SuccessorID], p.durations[id], float64(edge.LagDays)))
	}

	p.stack = p.stack[:len(p.stack)-1]
	p.active[id] = false
	p.done[id] = true
	p.lf[id] = lf
	return lf, nil
}

func sortedEdges(edges []model.Dependency) []model.Dependency {
	return slices.SortedFunc(slices.Values(edges), func(a, b model.Dependency) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// RequiredStart is the earliest start a successor of duration succDuration
// may take given one predecessor edge.
func RequiredStart(typ model.DependencyType, predES, predDuration, succDuration, lag float64) float64 {
	switch typ {
	case model.StartToStart:
		return predES + lag
	case model.FinishToFinish:
		return predES + predDuration + lag - succDuration
	case model.StartToFinish:
		return predES + lag - succDuration
	default:
		return predES + predDuration + lag
	}
}

// RequiredFinish inverts RequiredStart: the latest finish a predecessor of
// duration predDuration may take so that its successor keeps its late dates.
func RequiredFinish(typ model.DependencyType, succLF, succDuration, predDuration, lag float64) float64 {
	switch typ {
	case model.StartToStart:
		return succLF - succDuration - lag + predDuration
	case model.FinishToFinish:
		return succLF - lag
	case model.StartToFinish:
		return succLF - lag + predDuration
	default:
		return succLF - succDuration - lag
	}
}
