package gantt

import (
	"time"

	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

// ProgressPoint compares where a task should be on the baseline date with
// where it is. X is the actual progress position on the bar.
type ProgressPoint struct {
	TaskID   int64   `json:"task_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Expected float64 `json:"expected"`
	Actual   int     `json:"actual"`
	Delayed  bool    `json:"delayed"`
}

// ProgressLine is the lightning line drawn through every bar at the
// baseline date.
type ProgressLine struct {
	Baseline  time.Time       `json:"baseline"`
	BaselineX float64         `json:"baseline_x"`
	Points    []ProgressPoint `json:"points"`
}

// ExpectedProgress is the linear share of [start, end] elapsed on baseline,
// in percent.
func ExpectedProgress(start, end, baseline time.Time) float64 {
	total := timeline.DaysBetween(start, end)
	elapsed := timeline.DaysBetween(start, baseline)
	switch {
	case elapsed >= total:
		return 100
	case elapsed <= 0:
		return 0
	}
	return float64(elapsed) / float64(total) * 100
}

// BuildProgressLine places one point per visible bar. Milestones have no
// extent to measure progress along and are skipped.
func BuildProgressLine(tasks []Task, window timeline.Window, view timeline.ViewType, baseline time.Time) ProgressLine {
	line := ProgressLine{
		Baseline:  timeline.Day(baseline),
		BaselineX: window.X(baseline, view),
	}
	for _, task := range tasks {
		if task.IsMilestone {
			continue
		}
		expected := ExpectedProgress(task.StartDate, task.EndDate, baseline)
		line.Points = append(line.Points, ProgressPoint{
			TaskID:   task.ID,
			X:        task.X + task.Width*float64(task.ProgressRate)/100,
			Y:        task.CenterY(),
			Expected: expected,
			Actual:   task.ProgressRate,
			Delayed:  float64(task.ProgressRate) < expected,
		})
	}
	return line
}
