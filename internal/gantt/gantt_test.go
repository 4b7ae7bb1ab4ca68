package gantt

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/depgraph"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

func date(month time.Month, day int) *time.Time {
	d := time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func ref(v int64) *int64 {
	return &v
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func januaryProject() model.Project {
	return model.Project{ID: 1, Name: "Launch", StartDate: date(time.January, 1), EndDate: date(time.January, 31), Revision: "r1"}
}

func TestBuildChartScenario(t *testing.T) {
	planner := NewPlanner(fixedClock(*date(time.January, 8)))
	tasks := []model.Task{{
		ID:               1,
		ProjectID:        1,
		Name:             "Design",
		PlannedStartDate: date(time.January, 5),
		PlannedEndDate:   date(time.January, 10),
		Status:           model.StatusInProgress,
		ProgressRate:     50,
	}}

	chart, err := planner.BuildChart(januaryProject(), tasks, nil, Params{View: timeline.ViewMonth, ContainerWidth: 1200})
	if err != nil {
		t.Fatalf("build chart: %v", err)
	}

	row, ok := chart.Row(1)
	if !ok {
		t.Fatalf("task 1 not laid out")
	}
	if row.X != 80 || row.Width != 120 {
		t.Fatalf("expected x=80 width=120, got x=%v width=%v", row.X, row.Width)
	}
	if !row.IsCritical || row.Color != ColorCritical || row.TextColor != "#ffffff" {
		t.Fatalf("single task should be critical and red, got %+v", row)
	}
	if chart.Width != 1200 {
		t.Fatalf("expected container width to win, got %v", chart.Width)
	}
	if chart.TodayX != 140 {
		t.Fatalf("expected today at 140, got %v", chart.TodayX)
	}
	if len(chart.Weekends) != 8 {
		t.Fatalf("expected 8 weekend days, got %d", len(chart.Weekends))
	}
	if len(chart.Labels) != 1 || chart.Labels[0].Text != "Jan 2024" {
		t.Fatalf("unexpected labels %+v", chart.Labels)
	}

	if len(chart.Progress.Points) != 1 {
		t.Fatalf("expected one progress point, got %+v", chart.Progress.Points)
	}
	point := chart.Progress.Points[0]
	if point.Expected != 60 || !point.Delayed || point.X != 140 || point.Y != 20 {
		t.Fatalf("unexpected progress point %+v", point)
	}
}

func TestBuildChartWholeWindowTask(t *testing.T) {
	planner := NewPlanner(fixedClock(*date(time.March, 1)))
	tasks := []model.Task{{ID: 1, ProjectID: 1, PlannedStartDate: date(time.January, 1), PlannedEndDate: date(time.January, 31)}}

	for _, view := range []timeline.ViewType{timeline.ViewDay, timeline.ViewWeek, timeline.ViewMonth} {
		chart, err := planner.BuildChart(januaryProject(), tasks, nil, Params{View: view})
		if err != nil {
			t.Fatalf("build chart: %v", err)
		}
		row := chart.Tasks[0]
		if row.X != 0 || row.Width != 31*timeline.DayWidth(view) {
			t.Fatalf("%s: expected full width, got x=%v width=%v", view, row.X, row.Width)
		}
		if chart.TodayX != -1 {
			t.Fatalf("%s: today outside the window should be -1, got %v", view, chart.TodayX)
		}
	}
}

func TestBuildChartHonoursExpandedSet(t *testing.T) {
	planner := NewPlanner(fixedClock(*date(time.January, 2)))
	tasks := []model.Task{
		{ID: 1, ProjectID: 1, Name: "Phase", PlannedStartDate: date(time.January, 1), PlannedEndDate: date(time.January, 20)},
		{ID: 2, ProjectID: 1, ParentTaskID: ref(1), Name: "Build", PlannedStartDate: date(time.January, 2), PlannedEndDate: date(time.January, 5)},
		{ID: 3, ProjectID: 1, Name: "Ship", IsMilestone: true, PlannedStartDate: date(time.January, 21), SortOrder: 1},
	}

	collapsed, err := planner.BuildChart(januaryProject(), tasks, nil, Params{View: timeline.ViewDay})
	if err != nil {
		t.Fatalf("build chart: %v", err)
	}
	if len(collapsed.Tasks) != 2 {
		t.Fatalf("expected 2 rows when collapsed, got %d", len(collapsed.Tasks))
	}
	if !collapsed.Tasks[0].HasChildren || collapsed.Tasks[0].IsExpanded {
		t.Fatalf("expected collapsed parent, got %+v", collapsed.Tasks[0])
	}
	if !slices.Equal(collapsed.Tasks[0].ChildIDs, []int64{2}) {
		t.Fatalf("expected children [2], got %v", collapsed.Tasks[0].ChildIDs)
	}

	expanded, err := planner.BuildChart(januaryProject(), tasks, nil, Params{View: timeline.ViewDay, Expanded: map[int64]bool{1: true}})
	if err != nil {
		t.Fatalf("build chart: %v", err)
	}
	if len(expanded.Tasks) != 3 {
		t.Fatalf("expected 3 rows when expanded, got %d", len(expanded.Tasks))
	}
	child := expanded.Tasks[1]
	if child.ID != 2 || child.Level != 1 || child.Y != timeline.RowHeight {
		t.Fatalf("unexpected child row %+v", child)
	}

	milestone := expanded.Tasks[2]
	if milestone.Width != timeline.MilestoneSize || milestone.X != 20*50-timeline.MilestoneSize/2 {
		t.Fatalf("unexpected milestone span x=%v width=%v", milestone.X, milestone.Width)
	}
	if milestone.Color != ColorMilestone {
		t.Fatalf("expected milestone color, got %s", milestone.Color)
	}
}

func TestComputeLayoutRejectsInvertedDates(t *testing.T) {
	planner := NewPlanner()
	window := timeline.NewWindow(*date(time.January, 1), *date(time.January, 31))
	tasks := []model.Task{{ID: 4, ProjectID: 1, PlannedStartDate: date(time.January, 9), PlannedEndDate: date(time.January, 3)}}
	_, err := planner.ComputeLayout(tasks, nil, window, timeline.ViewDay, nil)
	var dates *model.InconsistentDateError
	if !errors.As(err, &dates) || dates.TaskID != 4 {
		t.Fatalf("expected InconsistentDateError, got %v", err)
	}
}

func TestComputeLayoutRejectsParentCycle(t *testing.T) {
	planner := NewPlanner()
	window := timeline.NewWindow(*date(time.January, 1), *date(time.January, 31))
	tasks := []model.Task{
		{ID: 1, ProjectID: 1, ParentTaskID: ref(2)},
		{ID: 2, ProjectID: 1, ParentTaskID: ref(1)},
		{ID: 3, ProjectID: 1},
	}
	rows, err := planner.ComputeLayout(tasks, nil, window, timeline.ViewDay, nil)
	var cycle *model.CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleDetectedError, got rows %v err %v", rows, err)
	}
	if rows != nil {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestComputeLayoutStartOnlyTaskPastWindow(t *testing.T) {
	planner := NewPlanner()
	window := timeline.NewWindow(*date(time.January, 1), *date(time.January, 10))
	tasks := []model.Task{{ID: 5, ProjectID: 1, Name: "Late", PlannedStartDate: date(time.January, 20)}}
	rows, err := planner.ComputeLayout(tasks, nil, window, timeline.ViewDay, nil)
	if err != nil {
		t.Fatalf("compute layout: %v", err)
	}
	if len(rows) != 1 || rows[0].X != 950 || rows[0].Width != 50 {
		t.Fatalf("expected a one day bar at x=950, got %+v", rows)
	}
}

func TestComputeCriticalPath(t *testing.T) {
	planner := NewPlanner()
	tasks := []model.Task{
		{ID: 1, ProjectID: 1, PlannedStartDate: date(time.January, 1), PlannedEndDate: date(time.January, 2)},
		{ID: 2, ProjectID: 1, PlannedStartDate: date(time.January, 1), PlannedEndDate: date(time.January, 5)},
		{ID: 3, ProjectID: 1, PlannedStartDate: date(time.January, 6), PlannedEndDate: date(time.January, 8)},
	}
	edges := []model.Dependency{
		{ID: 1, PredecessorID: 1, SuccessorID: 3, Type: model.FinishToStart},
		{ID: 2, PredecessorID: 2, SuccessorID: 3, Type: model.FinishToStart},
	}
	critical, err := planner.ComputeCriticalPath(tasks, edges)
	if err != nil {
		t.Fatalf("critical path: %v", err)
	}
	if critical[1] || !critical[2] || !critical[3] {
		t.Fatalf("expected 2 and 3 critical, got %v", critical)
	}
}

func TestStrictPlannerFailsOnCycle(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, ProjectID: 1, PlannedStartDate: date(time.January, 1), PlannedEndDate: date(time.January, 2)},
		{ID: 2, ProjectID: 1, PlannedStartDate: date(time.January, 3), PlannedEndDate: date(time.January, 4)},
	}
	edges := []model.Dependency{
		{ID: 1, PredecessorID: 1, SuccessorID: 2},
		{ID: 2, PredecessorID: 2, SuccessorID: 1},
	}

	if _, err := NewPlanner(WithStrictCycles(true)).ComputeCriticalPath(tasks, edges); err == nil {
		t.Fatalf("expected strict planner to fail")
	}

	chart, err := NewPlanner(fixedClock(*date(time.January, 1))).BuildChart(januaryProject(), tasks, edges, Params{ExpandAll: true})
	if err != nil {
		t.Fatalf("lenient chart should build: %v", err)
	}
	if len(chart.Cycles) != 1 || len(chart.Warnings) != 1 {
		t.Fatalf("expected one reported cycle, got %v / %v", chart.Cycles, chart.Warnings)
	}
}

func TestAddDependency(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, ProjectID: 1},
		{ID: 2, ProjectID: 1, SortOrder: 1},
		{ID: 3, ProjectID: 1, ParentTaskID: ref(2)},
		{ID: 4, ProjectID: 2},
	}
	edges := []model.Dependency{{ID: 5, PredecessorID: 1, SuccessorID: 2, Type: model.FinishToStart}}
	planner := NewPlanner()

	edge, err := planner.AddDependency(2, 1, model.StartToStart, 0, tasks, nil)
	if err != nil {
		t.Fatalf("add dependency: %v", err)
	}
	if edge.PredecessorID != 2 || edge.SuccessorID != 1 || edge.Type != model.StartToStart {
		t.Fatalf("unexpected edge %+v", edge)
	}

	cases := []struct {
		name string
		pred int64
		succ int64
		kind string
	}{
		{"self", 1, 1, "self_dependency"},
		{"cycle", 2, 1, "cycle_detected"},
		{"duplicate", 1, 2, "duplicate_dependency"},
		{"other project", 4, 1, "scope_violation"},
		{"outside hierarchy scope", 1, 3, "scope_violation"},
		{"unknown", 1, 99, "dangling_reference"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := planner.AddDependency(tc.pred, tc.succ, model.FinishToStart, 0, tasks, edges)
			if got := model.ErrorKind(err); got != tc.kind {
				t.Fatalf("expected %s, got %q (%v)", tc.kind, got, err)
			}
		})
	}

	projectWide := NewPlanner(WithScope(depgraph.ScopeProject))
	if _, err := projectWide.AddDependency(1, 3, model.FinishToStart, 0, tasks, edges); err != nil {
		t.Fatalf("project scope should accept 1 -> 3: %v", err)
	}
}

func TestValidatePredecessorCandidates(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, ProjectID: 1, SortOrder: 1},
		{ID: 2, ProjectID: 1, SortOrder: 2},
		{ID: 3, ProjectID: 1, SortOrder: 3},
	}
	edges := []model.Dependency{{ID: 1, PredecessorID: 3, SuccessorID: 1}}

	got, err := NewPlanner().ValidatePredecessorCandidates(3, tasks, edges)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only task 2, got %+v", got)
	}
}

func TestReparentTask(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, ProjectID: 1},
		{ID: 2, ProjectID: 1},
		{ID: 3, ProjectID: 1, ParentTaskID: ref(2), Level: 1},
	}
	moved, err := NewPlanner().ReparentTask(2, ref(1), tasks)
	if err != nil {
		t.Fatalf("reparent: %v", err)
	}
	if len(moved) != 2 || moved[0].Level != 1 || moved[1].Level != 2 {
		t.Fatalf("unexpected subtree %+v", moved)
	}

	if _, err := NewPlanner().ReparentTask(2, ref(3), tasks); model.ErrorKind(err) != "invalid_hierarchy" {
		t.Fatalf("expected invalid hierarchy moving under a descendant, got %v", err)
	}
}

func TestConnectorsPerRelation(t *testing.T) {
	from := Task{Task: model.Task{ID: 1}, X: 0, Y: 0, Width: 100, Height: timeline.TaskBarHeight}
	to := Task{Task: model.Task{ID: 2}, X: 200, Y: timeline.RowHeight, Width: 60, Height: timeline.TaskBarHeight}

	cases := []struct {
		typ  model.DependencyType
		path string
	}{
		{model.FinishToStart, "M 100 20 L 150 20 L 150 60 L 200 60"},
		{model.StartToStart, "M 0 20 L 100 20 L 100 60 L 200 60"},
		{model.FinishToFinish, "M 100 20 L 180 20 L 180 60 L 260 60"},
		{model.StartToFinish, "M 0 20 L 130 20 L 130 60 L 260 60"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			connectors := Connectors([]Task{from, to}, []model.Dependency{{ID: 9, PredecessorID: 1, SuccessorID: 2, Type: tc.typ}})
			if len(connectors) != 1 {
				t.Fatalf("expected one connector, got %d", len(connectors))
			}
			if got := connectors[0].Path(); got != tc.path {
				t.Fatalf("expected %q, got %q", tc.path, got)
			}
			if connectors[0].Color != dependencyColors[tc.typ] {
				t.Fatalf("unexpected color %s", connectors[0].Color)
			}
		})
	}
}

func TestConnectorsPointForward(t *testing.T) {
	from := Task{Task: model.Task{ID: 1}, X: 300, Width: 100, Height: timeline.TaskBarHeight, IsCritical: true}
	to := Task{Task: model.Task{ID: 2}, X: 50, Y: timeline.RowHeight, Width: 40, Height: timeline.TaskBarHeight, IsCritical: true}
	hidden := model.Dependency{ID: 2, PredecessorID: 1, SuccessorID: 7}

	connectors := Connectors([]Task{from, to}, []model.Dependency{{ID: 1, PredecessorID: 1, SuccessorID: 2}, hidden})
	if len(connectors) != 1 {
		t.Fatalf("edges to hidden rows must be skipped, got %d", len(connectors))
	}
	c := connectors[0]
	end := c.Points[len(c.Points)-1]
	if end.X != 450 {
		t.Fatalf("expected end pushed to 450, got %v", end.X)
	}
	if !c.Critical || c.Color != ColorCritical {
		t.Fatalf("edge between critical tasks should be critical, got %+v", c)
	}
}

func TestStraightConnector(t *testing.T) {
	points := route(Point{X: 10, Y: 20}, Point{X: 90, Y: 25})
	if len(points) != 2 {
		t.Fatalf("expected straight segment, got %v", points)
	}
}

func TestColors(t *testing.T) {
	if got := BarColor(model.Task{Status: model.StatusCompleted}, false); got != ColorCompleted {
		t.Fatalf("expected completed color, got %s", got)
	}
	if got := BarColor(model.Task{Status: model.StatusCompleted}, true); got != ColorCritical {
		t.Fatalf("critical should override status, got %s", got)
	}
	if got := BarColor(model.Task{IsMilestone: true}, true); got != ColorMilestone {
		t.Fatalf("milestones keep their color, got %s", got)
	}
	if TextColor(ColorInProgress) != textLight {
		t.Fatalf("expected white text on blue")
	}
	if TextColor(ColorCancelled) != textDark {
		t.Fatalf("expected dark text on light grey")
	}
	if TextColor("not a color") != textLight {
		t.Fatalf("expected white text fallback")
	}
}

func TestExpectedProgress(t *testing.T) {
	start, end := *date(time.January, 1), *date(time.January, 11)
	cases := []struct {
		baseline time.Time
		want     float64
	}{
		{date(time.January, 1).AddDate(0, 0, -5), 0},
		{start, 0},
		{*date(time.January, 6), 50},
		{end, 100},
		{*date(time.February, 1), 100},
	}
	for _, tc := range cases {
		if got := ExpectedProgress(start, end, tc.baseline); got != tc.want {
			t.Fatalf("baseline %s: expected %v, got %v", tc.baseline.Format(time.DateOnly), tc.want, got)
		}
	}
}

func TestDelayedFlag(t *testing.T) {
	late := model.Task{PlannedEndDate: date(time.January, 5), ActualEndDate: date(time.January, 7)}
	early := model.Task{PlannedEndDate: date(time.January, 5), ActualEndDate: date(time.January, 5)}
	if !delayed(late) || delayed(early) || delayed(model.Task{}) {
		t.Fatalf("unexpected delayed flags")
	}
}

func TestCache(t *testing.T) {
	cache, err := NewCache(2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	now := *date(time.January, 3)
	project := januaryProject()

	builds := 0
	build := func() (*Chart, error) {
		builds++
		return &Chart{Project: project}, nil
	}

	key := KeyFor(project, Params{View: timeline.ViewWeek, Expanded: map[int64]bool{3: true, 1: true}}, now)
	same := KeyFor(project, Params{View: timeline.ViewWeek, Expanded: map[int64]bool{1: true, 3: true, 5: false}}, now)
	if key != same {
		t.Fatalf("expected equal keys, got %+v and %+v", key, same)
	}

	for i := 0; i < 3; i++ {
		if _, err := cache.Chart(key, build); err != nil {
			t.Fatalf("chart: %v", err)
		}
	}
	if builds != 1 {
		t.Fatalf("expected one build, got %d", builds)
	}

	project.Revision = "r2"
	if _, err := cache.Chart(KeyFor(project, Params{View: timeline.ViewWeek}, now), build); err != nil {
		t.Fatalf("chart: %v", err)
	}
	if builds != 2 {
		t.Fatalf("new revision must rebuild, got %d builds", builds)
	}

	_, err = cache.Chart(CacheKey{ProjectID: 9}, func() (*Chart, error) { return nil, errors.New("boom") })
	if err == nil {
		t.Fatalf("expected build error")
	}
	if cache.Len() != 2 {
		t.Fatalf("failed builds must not be cached, len %d", cache.Len())
	}

	cache.Forget(project.ID)
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after Forget, len %d", cache.Len())
	}
}
