package gantt

import (
	"time"

	"github.com/Joseda-hg/lazygantt/internal/cpm"
	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

// Task is the positioned view of one task row. The stored task is embedded
// unchanged except for Level, which is recomputed from the hierarchy.
type Task struct {
	model.Task
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Row         int       `json:"row"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	ChildIDs    []int64   `json:"children"`
	HasChildren bool      `json:"has_children"`
	IsExpanded  bool      `json:"is_expanded"`
	Color       string    `json:"color"`
	TextColor   string    `json:"text_color"`
	IsCritical  bool      `json:"is_critical"`
	Slack       float64   `json:"slack"`
	IsDelayed   bool      `json:"is_delayed"`
}

// BarY is the top edge of the bar inside its row.
func (t Task) BarY() float64 {
	return t.Y + timeline.TaskBarMargin
}

// CenterY is the vertical middle of the bar.
func (t Task) CenterY() float64 {
	return t.BarY() + t.Height/2
}

// Layout is the input of a layout pass.
type Layout struct {
	Window    timeline.Window
	View      timeline.ViewType
	Expanded  map[int64]bool
	// ExpandAll ignores Expanded and opens every subtree.
	ExpandAll bool
	Schedule  *cpm.Result
}

// layoutTasks positions every visible task row by row. Dates missing on a
// task default to the window bounds.
func layoutTasks(f *hierarchy.Forest, in Layout) ([]Task, error) {
	var entries []hierarchy.Entry
	if in.ExpandAll {
		entries = hierarchy.Flatten(f)
	} else {
		entries = hierarchy.FlattenVisible(f, in.Expanded)
	}

	result := make([]Task, 0, len(entries))
	for row, entry := range entries {
		task := entry.Task
		if err := task.CheckDates(); err != nil {
			return nil, err
		}
		task.Level = entry.Depth

		start, end := in.Window.Start, in.Window.End
		if task.PlannedStartDate != nil {
			start = timeline.Day(*task.PlannedStartDate)
		}
		if task.PlannedEndDate != nil {
			end = timeline.Day(*task.PlannedEndDate)
		}
		if end.Before(start) {
			// only one side was defaulted; CheckDates covers the other case
			if task.PlannedStartDate == nil {
				start = end
			} else {
				end = start
			}
		}

		span := timeline.Position(start, end, task.IsMilestone, in.Window, in.View)
		var critical bool
		var slack float64
		if in.Schedule != nil {
			s := in.Schedule.Tasks[task.ID]
			critical, slack = s.Critical, s.Slack
		}
		color := BarColor(task, critical)

		result = append(result, Task{
			Task:        task,
			StartDate:   start,
			EndDate:     end,
			Row:         row,
			X:           span.X,
			Y:           float64(row * timeline.RowHeight),
			Width:       span.Width,
			Height:      timeline.TaskBarHeight,
			ChildIDs:    append([]int64(nil), f.Children(task.ID)...),
			HasChildren: entry.HasChildren,
			IsExpanded:  entry.Expanded && entry.HasChildren,
			Color:       color,
			TextColor:   TextColor(color),
			IsCritical:  critical,
			Slack:       slack,
			IsDelayed:   delayed(task),
		})
	}
	return result, nil
}

// delayed reports an actual finish later than the planned finish.
func delayed(task model.Task) bool {
	if task.ActualEndDate == nil || task.PlannedEndDate == nil {
		return false
	}
	return timeline.DaysBetween(*task.PlannedEndDate, *task.ActualEndDate) > 0
}
