package cpm

import (
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

// Duration returns the scheduled length of a task in days, counting both
// ends. Milestones always last zero days. Missing planned dates fall back to
// the window bounds, like the chart does. A one-sided task lying outside the
// window lasts a single day.
func Duration(task model.Task, window timeline.Window) (float64, error) {
	if task.IsMilestone {
		return 0, nil
	}
	start, end := window.Start, window.End
	if task.PlannedStartDate != nil {
		start = *task.PlannedStartDate
	}
	if task.PlannedEndDate != nil {
		end = *task.PlannedEndDate
	}
	if timeline.DaysBetween(start, end) < 0 {
		switch {
		case task.PlannedStartDate != nil && task.PlannedEndDate != nil:
			return 0, &model.InconsistentDateError{TaskID: task.ID, Start: start, End: end}
		case task.PlannedStartDate != nil:
			end = start
		default:
			start = end
		}
	}
	return float64(timeline.DurationDays(start, end)), nil
}

// Durations maps every task id to its Duration.
func Durations(tasks []model.Task, window timeline.Window) (map[int64]float64, error) {
	result := make(map[int64]float64, len(tasks))
	for _, task := range tasks {
		d, err := Duration(task, window)
		if err != nil {
			return nil, err
		}
		result[task.ID] = d
	}
	return result, nil
}

// Compute derives durations from the tasks and runs both passes.
func (e *Engine) Compute(tasks []model.Task, edges []model.Dependency, window timeline.Window) (*Result, error) {
	durations, err := Durations(tasks, window)
	if err != nil {
		return nil, err
	}
	return e.Run(durations, edges)
}
