package timeline

import (
	"fmt"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// Label is one cell of the header scale.
type Label struct {
	Date  time.Time `json:"date"`
	Text  string    `json:"label"`
	X     float64   `json:"x"`
	Width float64   `json:"width"`
}

// TimeLabels builds the header scale for a view. Day view has one label per
// day, week view one per seven day bucket counted from the window start, and
// month view one per calendar month clipped to the window.
func TimeLabels(window Window, view ViewType) []Label {
	dayWidth := DayWidth(view)
	var labels []Label

	switch view {
	case ViewDay:
		for i, d := 0, window.Start; !d.After(window.End); i, d = i+1, d.AddDate(0, 0, 1) {
			labels = append(labels, Label{
				Date:  d,
				Text:  fmt.Sprintf("%d/%d", int(d.Month()), d.Day()),
				X:     float64(i) * dayWidth,
				Width: dayWidth,
			})
		}
	case ViewWeek:
		for i, d := 0, window.Start; !d.After(window.End); i, d = i+1, d.AddDate(0, 0, 7) {
			labels = append(labels, Label{
				Date:  d,
				Text:  fmt.Sprintf("%d/%d~", int(d.Month()), d.Day()),
				X:     float64(i*7) * dayWidth,
				Width: 7 * dayWidth,
			})
		}
	default:
		for d := window.Start; !d.After(window.End); d = firstOfNextMonth(d) {
			last := firstOfNextMonth(d).AddDate(0, 0, -1)
			if last.After(window.End) {
				last = window.End
			}
			width := float64(DaysBetween(d, last)+1) * dayWidth
			text := d.Format("Jan 2006")
			if width < MonthLabelMinPx {
				text = d.Format("Jan")
			}
			labels = append(labels, Label{
				Date:  d,
				Text:  text,
				X:     window.X(d, view),
				Width: max(dayWidth, width),
			})
		}
	}

	return labels
}

// Gridlines returns the x offset of every label boundary, including the
// right edge of the window.
func Gridlines(window Window, view ViewType) []float64 {
	labels := TimeLabels(window, view)
	lines := make([]float64, 0, len(labels)+1)
	for _, label := range labels {
		lines = append(lines, label.X)
	}
	return append(lines, window.Width(view))
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// ProjectWindow is the union of the declared project range and every planned
// task date. With no dates at all the window is now .. now+90 days; a range
// collapsed to a single day is stretched the same way.
func ProjectWindow(projectStart, projectEnd *time.Time, tasks []model.Task, now time.Time) Window {
	var start, end time.Time
	include := func(t *time.Time) {
		if t == nil {
			return
		}
		d := Day(*t)
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}

	include(projectStart)
	include(projectEnd)
	for i := range tasks {
		include(tasks[i].PlannedStartDate)
		include(tasks[i].PlannedEndDate)
	}

	if start.IsZero() {
		start = Day(now)
		end = start
	}
	if !end.After(start) {
		end = start.AddDate(0, 0, DefaultSpanDays)
	}
	return NewWindow(start, end)
}
