package cpm

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

func fs(id, pred, succ int64, lag int) model.Dependency {
	return model.Dependency{ID: id, PredecessorID: pred, SuccessorID: succ, Type: model.FinishToStart, LagDays: lag}
}

func run(t *testing.T, durations map[int64]float64, edges ...model.Dependency) *Result {
	t.Helper()
	result, err := New().Run(durations, edges)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func expectDates(t *testing.T, r *Result, id int64, es, ef, ls, lf float64) {
	t.Helper()
	s := r.Tasks[id]
	got := []float64{s.EarlyStart, s.EarlyFinish, s.LateStart, s.LateFinish}
	want := []float64{es, ef, ls, lf}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("task %d: expected ES/EF/LS/LF %v, got %v", id, want, got)
		}
	}
}

func TestChainIsFullyCritical(t *testing.T) {
	// A=1 (3d) -> B=2 (2d) -> C=3 (4d)
	r := run(t, map[int64]float64{1: 3, 2: 2, 3: 4}, fs(1, 1, 2, 0), fs(2, 2, 3, 0))

	expectDates(t, r, 1, 0, 3, 0, 3)
	expectDates(t, r, 2, 3, 5, 3, 5)
	expectDates(t, r, 3, 5, 9, 5, 9)
	if r.ProjectFinish != 9 {
		t.Fatalf("expected project finish 9, got %v", r.ProjectFinish)
	}
	if !slices.Equal(r.Critical, []int64{1, 2, 3}) {
		t.Fatalf("expected all tasks critical, got %v", r.Critical)
	}
}

func TestParallelPathsSlack(t *testing.T) {
	// A=1 (2d) -> C=3 (3d) <- B=2 (5d)
	r := run(t, map[int64]float64{1: 2, 2: 5, 3: 3}, fs(1, 1, 3, 0), fs(2, 2, 3, 0))

	if es := r.Tasks[3].EarlyStart; es != 5 {
		t.Fatalf("expected ES(C)=5, got %v", es)
	}
	if slack := r.Tasks[1].Slack; slack != 3 {
		t.Fatalf("expected slack 3 on A, got %v", slack)
	}
	if r.IsCritical(1) {
		t.Fatalf("A must not be critical")
	}
	if !r.IsCritical(2) || !r.IsCritical(3) {
		t.Fatalf("B and C must be critical, got %v", r.Critical)
	}
}

func TestLagDelaysSuccessor(t *testing.T) {
	r := run(t, map[int64]float64{1: 2, 2: 2}, fs(1, 1, 2, 3))
	if es := r.Tasks[2].EarlyStart; es != 5 {
		t.Fatalf("expected ES(B)=5, got %v", es)
	}
	if !slices.Equal(r.Critical, []int64{1, 2}) {
		t.Fatalf("lagged chain should stay critical, got %v", r.Critical)
	}
}

func TestRelationTypes(t *testing.T) {
	// predecessor 1 lasts 4 days, successor 2 lasts 2 days, lag 1
	cases := []struct {
		typ    model.DependencyType
		es     float64
		finish float64
		predLF float64
	}{
		{model.FinishToStart, 5, 7, 4},
		{model.StartToStart, 1, 4, 4},
		{model.FinishToFinish, 3, 5, 4},
		{model.StartToFinish, 0, 4, 4},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			edge := model.Dependency{ID: 1, PredecessorID: 1, SuccessorID: 2, Type: tc.typ, LagDays: 1}
			r := run(t, map[int64]float64{1: 4, 2: 2}, edge)
			if es := r.Tasks[2].EarlyStart; es != tc.es {
				t.Fatalf("expected ES %v, got %v", tc.es, es)
			}
			if r.ProjectFinish != tc.finish {
				t.Fatalf("expected finish %v, got %v", tc.finish, r.ProjectFinish)
			}
			if lf := r.Tasks[1].LateFinish; lf != tc.predLF {
				t.Fatalf("expected predecessor LF %v, got %v", tc.predLF, lf)
			}
		})
	}
}

func TestNegativeContributionClampsToZero(t *testing.T) {
	r := run(t, map[int64]float64{1: 1, 2: 5}, model.Dependency{ID: 1, PredecessorID: 1, SuccessorID: 2, Type: model.StartToFinish})
	if es := r.Tasks[2].EarlyStart; es != 0 {
		t.Fatalf("expected ES 0, got %v", es)
	}
}

func TestEvaluationIgnoresInputOrder(t *testing.T) {
	// edges listed successor first, ids not topological
	durations := map[int64]float64{9: 1, 4: 2, 7: 3}
	r := run(t, durations, fs(2, 4, 9, 0), fs(1, 7, 4, 0))
	expectDates(t, r, 7, 0, 3, 0, 3)
	expectDates(t, r, 4, 3, 5, 3, 5)
	expectDates(t, r, 9, 5, 6, 5, 6)
}

func TestMilestoneHasZeroDuration(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	window := timeline.NewWindow(*day(1), *day(31))
	tasks := []model.Task{
		{ID: 1, PlannedStartDate: day(1), PlannedEndDate: day(3)},
		{ID: 2, IsMilestone: true, PlannedStartDate: day(4), PlannedEndDate: day(20)},
	}
	r, err := New().Compute(tasks, []model.Dependency{fs(1, 1, 2, 0)}, window)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	s := r.Tasks[2]
	if s.Duration != 0 || s.EarlyFinish != s.EarlyStart {
		t.Fatalf("milestone should have zero duration, got %+v", s)
	}
	if s.EarlyStart != 3 {
		t.Fatalf("expected milestone ES 3, got %v", s.EarlyStart)
	}
}

func TestComputeRejectsInvertedDates(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	window := timeline.NewWindow(end, start)
	_, err := New().Compute([]model.Task{{ID: 3, PlannedStartDate: &start, PlannedEndDate: &end}}, nil, window)
	var dates *model.InconsistentDateError
	if !errors.As(err, &dates) || dates.TaskID != 3 {
		t.Fatalf("expected InconsistentDateError for task 3, got %v", err)
	}
}

func TestDurationClampsOneSidedDates(t *testing.T) {
	window := timeline.NewWindow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	late := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	early := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	inside := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task model.Task
		want float64
	}{
		{"start after window", model.Task{ID: 1, PlannedStartDate: &late}, 1},
		{"end before window", model.Task{ID: 2, PlannedEndDate: &early}, 1},
		{"start inside window", model.Task{ID: 3, PlannedStartDate: &inside}, 3},
		{"no dates", model.Task{ID: 4}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Duration(tt.task, window)
			if err != nil {
				t.Fatalf("duration: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v days, got %v", tt.want, got)
			}
		})
	}
}

func TestDanglingEdge(t *testing.T) {
	_, err := New().Run(map[int64]float64{1: 1}, []model.Dependency{fs(1, 1, 2, 0)})
	var dangling *model.DanglingReferenceError
	if !errors.As(err, &dangling) || dangling.MissingID != 2 {
		t.Fatalf("expected dangling reference to 2, got %v", err)
	}
}

func TestCycleLenientFallback(t *testing.T) {
	var logged []string
	logger := lgr.Func(func(format string, args ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})

	durations := map[int64]float64{1: 2, 2: 3, 3: 1}
	edges := []model.Dependency{fs(1, 1, 2, 0), fs(2, 2, 1, 0), fs(3, 2, 3, 0)}
	r, err := New(WithLogger(logger)).Run(durations, edges)
	if err != nil {
		t.Fatalf("lenient run should not fail: %v", err)
	}
	if len(r.Cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", r.Cycles)
	}
	if got := slices.Sorted(slices.Values(r.Cycles[0])); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("expected cycle over 1 and 2, got %v", r.Cycles[0])
	}
	if r.IsCritical(1) || r.IsCritical(2) {
		t.Fatalf("tasks on a cycle must not be critical")
	}
	if len(logged) == 0 || !strings.HasPrefix(logged[0], "[WARN]") {
		t.Fatalf("expected a warning, got %v", logged)
	}
}

func TestCycleStrict(t *testing.T) {
	edges := []model.Dependency{fs(1, 1, 2, 0), fs(2, 2, 1, 0)}
	_, err := New(WithStrictCycles(true)).Run(map[int64]float64{1: 1, 2: 1}, edges)
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleDetectedError, got %v", err)
	}
	if !slices.Equal(cycle.IDs, []int64{1, 2}) {
		t.Fatalf("unexpected cycle ids %v", cycle.IDs)
	}
}

func TestSelfLoopTerminates(t *testing.T) {
	r := run(t, map[int64]float64{1: 2}, fs(1, 1, 1, 0))
	if len(r.Cycles) != 1 || !slices.Equal(r.Cycles[0], []int64{1}) {
		t.Fatalf("expected self cycle, got %v", r.Cycles)
	}
}
