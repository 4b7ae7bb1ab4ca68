package timeline

import (
	"fmt"
	"time"
)

type ViewType string

const (
	ViewDay   ViewType = "day"
	ViewWeek  ViewType = "week"
	ViewMonth ViewType = "month"
)

func ParseViewType(value string) (ViewType, error) {
	switch ViewType(value) {
	case ViewDay, ViewWeek, ViewMonth:
		return ViewType(value), nil
	case "":
		return ViewMonth, nil
	}
	return "", fmt.Errorf("unknown view type %q", value)
}

// Next cycles day -> week -> month -> day.
func (v ViewType) Next() ViewType {
	switch v {
	case ViewDay:
		return ViewWeek
	case ViewWeek:
		return ViewMonth
	default:
		return ViewDay
	}
}

const (
	RowHeight       = 40
	TaskBarHeight   = 24
	TaskBarMargin   = 8
	MinTaskWidth    = 20
	MilestoneSize   = 16
	MonthLabelMinPx = 80
	DefaultSpanDays = 90
	dateLayout      = "2006-01-02"
)

// DayWidth is the fixed pixel width of one calendar day per view. The values
// do not depend on the window length so scroll position and label density
// stay stable.
func DayWidth(view ViewType) float64 {
	switch view {
	case ViewDay:
		return 50
	case ViewWeek:
		return 25
	default:
		return 20
	}
}

// Day truncates t to midnight of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b. Both are reduced to their
// calendar date first, so DST shifts and time-of-day never produce fractions.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// DurationDays is the inclusive day count of [start, end], at least 1.
func DurationDays(start, end time.Time) int {
	return max(1, DaysBetween(start, end)+1)
}

// Window is the coordinate origin of a chart: both bounds are calendar days
// and both are inclusive.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewWindow(start, end time.Time) Window {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		end = start
	}
	return Window{Start: start, End: end}
}

// Days returns the number of calendar days covered, both ends included.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End) + 1
}

func (w Window) Contains(t time.Time) bool {
	offset := DaysBetween(w.Start, t)
	return offset >= 0 && offset < w.Days()
}

// Width is the full pixel width of the window in the given view.
func (w Window) Width(view ViewType) float64 {
	return float64(w.Days()) * DayWidth(view)
}

// X returns the pixel offset of the day containing t.
func (w Window) X(t time.Time, view ViewType) float64 {
	return float64(DaysBetween(w.Start, t)) * DayWidth(view)
}

func (w Window) String() string {
	return w.Start.Format(dateLayout) + ".." + w.End.Format(dateLayout)
}

// Span is a horizontal extent in pixels.
type Span struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// Position maps a task's calendar range to pixels. Milestones are a fixed
// size diamond centered on their start day.
func Position(start, end time.Time, milestone bool, window Window, view ViewType) Span {
	x := window.X(start, view)
	if milestone {
		return Span{X: x - MilestoneSize/2, Width: MilestoneSize}
	}
	width := float64(DurationDays(start, end)) * DayWidth(view)
	return Span{X: x, Width: max(MinTaskWidth, width)}
}

// WeekendDays lists every Saturday and Sunday inside the window.
func WeekendDays(window Window) []time.Time {
	var days []time.Time
	for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			days = append(days, d)
		}
	}
	return days
}

// TodayPosition returns the x offset of now's calendar day, or -1 when now
// falls outside the window.
func TodayPosition(window Window, view ViewType, now time.Time) float64 {
	if !window.Contains(now) {
		return -1
	}
	return window.X(now, view)
}
