package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
)

var titleCaser = cases.Title(language.English)

// label turns an enum value such as "in_progress" into "In Progress".
func label(value string) string {
	if value == "" {
		return "None"
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatDate(value *time.Time) string {
	if value == nil {
		return "n/a"
	}
	return value.Format(time.DateOnly)
}

func formatTaskSummary(task gantt.Task) string {
	summary := fmt.Sprintf("%s %3d%% %s", task.Name, task.ProgressRate, label(string(task.Status)))
	if task.IsMilestone {
		summary = "◆ " + summary
	}
	return summary
}

// expandedSet opens every parent that has not been collapsed.
func expandedSet(tasks []model.Task, collapsed map[int64]bool) map[int64]bool {
	expanded := make(map[int64]bool)
	for _, task := range tasks {
		if task.ParentTaskID != nil && !collapsed[*task.ParentTaskID] {
			expanded[*task.ParentTaskID] = true
		}
	}
	return expanded
}

// columnsPerDay is how many terminal cells one calendar day takes in a view.
func columnsPerDay(view timeline.ViewType) float64 {
	switch view {
	case timeline.ViewDay:
		return 3
	case timeline.ViewWeek:
		return 1
	default:
		return 0.5
	}
}

// column converts a chart x coordinate to a terminal column.
func column(x float64, chart *gantt.Chart) int {
	if chart.DayWidth <= 0 {
		return 0
	}
	return int(math.Floor(x / chart.DayWidth * columnsPerDay(chart.View)))
}

// chartColumns is the number of cells the whole window spans.
func chartColumns(chart *gantt.Chart) int {
	return max(int(math.Ceil(float64(chart.Window.Days())*columnsPerDay(chart.View))), 1)
}

// scaleLine renders the header labels of a chart, with a '|' on today when
// today falls in the window.
func scaleLine(chart *gantt.Chart) string {
	cells := []rune(strings.Repeat(" ", chartColumns(chart)))
	for _, l := range chart.Labels {
		start := column(l.X, chart)
		for i, r := range []rune(l.Text) {
			// labels never run into the next one
			if start+i >= len(cells) || float64(i) >= l.Width/chart.DayWidth*columnsPerDay(chart.View)-1 {
				break
			}
			cells[start+i] = r
		}
	}
	if today := column(chart.TodayX, chart); chart.Window.Contains(chart.GeneratedAt) && today >= 0 && today < len(cells) {
		cells[today] = '|'
	}
	return string(cells)
}

// barLine draws one task row: a block bar over the planned range, a diamond
// for milestones, and '!' after a delayed bar. Completed share of the bar is
// drawn solid, the rest shaded.
func barLine(task gantt.Task, chart *gantt.Chart, highlightCritical bool) string {
	total := chartColumns(chart)
	start := min(max(column(task.X, chart), 0), total-1)

	var bar string
	if task.IsMilestone {
		bar = "◆"
	} else {
		width := max(column(task.X+task.Width, chart)-start, 1)
		done := width * task.ProgressRate / 100
		bar = strings.Repeat("█", done) + strings.Repeat("▒", width-done)
	}
	if task.IsDelayed {
		bar += "!"
	}

	switch {
	case highlightCritical && task.IsCritical:
		bar = ansiRed + bar + ansiReset
	case task.Status == model.StatusCompleted:
		bar = ansiGreen + bar + ansiReset
	case task.Status == model.StatusCancelled:
		bar = ansiDim + bar + ansiReset
	}
	return strings.Repeat(" ", start) + bar
}

func formatDependency(dep model.Dependency, names map[int64]string) string {
	lag := ""
	if dep.LagDays != 0 {
		lag = fmt.Sprintf(" %+dd", dep.LagDays)
	}
	return fmt.Sprintf("%s (%s%s)", names[dep.PredecessorID], dep.Type.Short(), lag)
}
