package gantt

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

const (
	ColorNotStarted = "#94a3b8"
	ColorInProgress = "#3b82f6"
	ColorCompleted  = "#10b981"
	ColorMilestone  = "#f59e0b"
	ColorCritical   = "#ef4444"
	ColorOnHold     = "#a78bfa"
	ColorCancelled  = "#d1d5db"

	textLight = "#ffffff"
	textDark  = "#1f2937"
)

// dependencyColors are the connector colors per relation when the edge is
// not critical.
var dependencyColors = map[model.DependencyType]string{
	model.FinishToStart:  "#3b82f6",
	model.StartToStart:   "#10b981",
	model.FinishToFinish: "#f59e0b",
	model.StartToFinish:  "#ef4444",
}

// BarColor picks the fill of a task bar. Milestones keep their own color,
// critical tasks are highlighted, everything else follows status.
func BarColor(task model.Task, critical bool) string {
	switch {
	case task.IsMilestone:
		return ColorMilestone
	case critical:
		return ColorCritical
	}
	switch task.Status {
	case model.StatusCompleted:
		return ColorCompleted
	case model.StatusInProgress:
		return ColorInProgress
	case model.StatusOnHold:
		return ColorOnHold
	case model.StatusCancelled:
		return ColorCancelled
	default:
		return ColorNotStarted
	}
}

// TextColor returns dark text for light fills and white text otherwise,
// judged by CIE L*.
func TextColor(fill string) string {
	c, err := colorful.Hex(fill)
	if err != nil {
		return textLight
	}
	if l, _, _ := c.Lab(); l > 0.7 {
		return textDark
	}
	return textLight
}

func dependencyColor(typ model.DependencyType, critical bool) string {
	if critical {
		return ColorCritical
	}
	if c, ok := dependencyColors[typ]; ok {
		return c
	}
	return "#6b7280"
}
