package gantt

import (
	"fmt"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

// Params are the view settings of one chart request.
type Params struct {
	View           timeline.ViewType
	ContainerWidth float64
	Expanded       map[int64]bool
	ExpandAll      bool
	// Baseline dates the progress line; zero means today.
	Baseline       time.Time
}

// Chart is everything a renderer needs to draw a project.
type Chart struct {
	Project       model.Project     `json:"project"`
	Window        timeline.Window   `json:"window"`
	View          timeline.ViewType `json:"view"`
	DayWidth      float64           `json:"day_width"`
	Width         float64           `json:"width"`
	Height        float64           `json:"height"`
	Labels        []timeline.Label  `json:"labels"`
	Gridlines     []float64         `json:"gridlines"`
	Weekends      []timeline.Span   `json:"weekends"`
	TodayX        float64           `json:"today_x"`
	Tasks         []Task            `json:"tasks"`
	Connectors    []Connector       `json:"connectors"`
	Progress      ProgressLine      `json:"progress"`
	Critical      []int64           `json:"critical"`
	ProjectFinish float64           `json:"project_finish"`
	Cycles        [][]int64         `json:"cycles,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
	TotalTasks    int               `json:"total_tasks"`
}

// BuildChart assembles the full chart of a project: window, header scale,
// weekend shading, today marker, laid out rows, connectors, progress line
// and critical path.
func (p *Planner) BuildChart(project model.Project, tasks []model.Task, edges []model.Dependency, params Params) (*Chart, error) {
	view := params.View
	if view == "" {
		view = timeline.ViewMonth
	}
	now := p.now()
	window := timeline.ProjectWindow(project.StartDate, project.EndDate, tasks, now)

	forest, err := hierarchy.Build(tasks)
	if err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	if _, err := forest.AssignLevels(); err != nil {
		return nil, err
	}
	schedule, err := p.CriticalPath(tasks, edges, window)
	if err != nil {
		return nil, err
	}

	rows, err := layoutTasks(forest, Layout{
		Window:    window,
		View:      view,
		Expanded:  params.Expanded,
		ExpandAll: params.ExpandAll,
		Schedule:  schedule,
	})
	if err != nil {
		return nil, err
	}

	dayWidth := timeline.DayWidth(view)
	chart := &Chart{
		Project:       project,
		Window:        window,
		View:          view,
		DayWidth:      dayWidth,
		Width:         max(window.Width(view), params.ContainerWidth),
		Height:        float64(len(rows) * timeline.RowHeight),
		Labels:        timeline.TimeLabels(window, view),
		Gridlines:     timeline.Gridlines(window, view),
		TodayX:        timeline.TodayPosition(window, view, now),
		Tasks:         rows,
		Connectors:    Connectors(rows, edges),
		Critical:      schedule.Critical,
		ProjectFinish: schedule.ProjectFinish,
		Cycles:        schedule.Cycles,
		GeneratedAt:   now,
		TotalTasks:    len(tasks),
	}
	for _, day := range timeline.WeekendDays(window) {
		chart.Weekends = append(chart.Weekends, timeline.Span{X: window.X(day, view), Width: dayWidth})
	}

	baseline := params.Baseline
	if baseline.IsZero() {
		baseline = now
	}
	chart.Progress = BuildProgressLine(rows, window, view, baseline)

	for _, cycle := range schedule.Cycles {
		chart.Warnings = append(chart.Warnings, fmt.Sprintf("dependency cycle through tasks %v, slack on these tasks is not reliable", cycle))
	}
	return chart, nil
}

// Row returns the laid out task with the given id, if visible.
func (c *Chart) Row(id int64) (Task, bool) {
	for _, task := range c.Tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}
