package gantt

import (
	"fmt"
	"math"
	"strings"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connector is the drawable arrow of one dependency edge.
type Connector struct {
	DependencyID  int64                `json:"dependency_id"`
	PredecessorID int64                `json:"predecessor_id"`
	SuccessorID   int64                `json:"successor_id"`
	Type          model.DependencyType `json:"dependency_type"`
	LagDays       int                  `json:"lag_days"`
	Points        []Point              `json:"points"`
	Color         string               `json:"color"`
	Critical      bool                 `json:"critical"`
}

// Path renders the polyline as an SVG path.
func (c Connector) Path() string {
	var b strings.Builder
	for i, p := range c.Points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s %g %g", op, p.X, p.Y)
	}
	return b.String()
}

const (
	minArrowRun  = 50
	minElbowRun  = 30
	straightSlop = 10
)

// Connectors builds arrows for edges whose two ends are both visible. Each
// relation leaves and enters the bars on its own side: fs right to left, ss
// left to left, ff right to right, sf left to right. An end point that would
// sit left of its start is pushed right so arrows always point forward.
func Connectors(tasks []Task, edges []model.Dependency) []Connector {
	byID := make(map[int64]Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var result []Connector
	for _, edge := range edges {
		from, ok := byID[edge.PredecessorID]
		if !ok {
			continue
		}
		to, ok := byID[edge.SuccessorID]
		if !ok {
			continue
		}

		start := Point{X: from.X + from.Width, Y: from.CenterY()}
		end := Point{X: to.X, Y: to.CenterY()}
		switch edge.Type {
		case model.StartToStart:
			start.X = from.X
		case model.FinishToFinish:
			end.X = to.X + to.Width
		case model.StartToFinish:
			start.X = from.X
			end.X = to.X + to.Width
		}
		if end.X <= start.X {
			end.X = start.X + max(minArrowRun, to.Width)
		}

		critical := from.IsCritical && to.IsCritical
		result = append(result, Connector{
			DependencyID:  edge.ID,
			PredecessorID: edge.PredecessorID,
			SuccessorID:   edge.SuccessorID,
			Type:          edge.Type,
			LagDays:       edge.LagDays,
			Points:        route(start, end),
			Color:         dependencyColor(edge.Type, critical),
			Critical:      critical,
		})
	}
	return result
}

// route is a straight segment for nearly horizontal arrows, otherwise an
// elbow through a vertical run between the two bars.
func route(start, end Point) []Point {
	dx, dy := end.X-start.X, end.Y-start.Y
	if math.Abs(dy) < straightSlop && dx > 0 {
		return []Point{start, end}
	}
	midX := start.X + max(minElbowRun, math.Abs(dx)/2)
	return []Point{start, {X: midX, Y: start.Y}, {X: midX, Y: end.Y}, end}
}
