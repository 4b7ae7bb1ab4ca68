package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

var (
	titleStyle    = color.New(color.Bold, color.FgCyan)
	criticalStyle = color.New(color.FgRed, color.Bold)
	doneStyle     = color.New(color.FgGreen)
	delayedStyle  = color.New(color.FgYellow)
	dimStyle      = color.New(color.Faint)

	titleCaser = cases.Title(language.English)
)

// printReport writes every project with its window, critical path and a
// per task schedule table.
func printReport(ctx context.Context, w io.Writer, store *db.Store) error {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(w, "no projects, run with -demo to create one")
		return nil
	}

	for i, project := range projects {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printProject(ctx, w, store, project); err != nil {
			return fmt.Errorf("project %d: %w", project.ID, err)
		}
	}
	return nil
}

func printProject(ctx context.Context, w io.Writer, store *db.Store, project model.Project) error {
	snapshot, err := store.Snapshot(ctx, project.ID)
	if err != nil {
		return err
	}
	chart, err := store.Planner.BuildChart(snapshot.Project, snapshot.Tasks, snapshot.Dependencies, gantt.Params{View: timeline.ViewDay, ExpandAll: true})
	if err != nil {
		return err
	}

	titleStyle.Fprintf(w, "%s\n", project.Name)
	dimStyle.Fprintf(w, "window %s | %s tasks | %s links | updated %s\n",
		chart.Window, humanize.Comma(int64(len(snapshot.Tasks))), humanize.Comma(int64(len(snapshot.Dependencies))), humanize.Time(project.UpdatedAt))

	fmt.Fprintf(w, "critical path length %s days", humanize.FormatFloat("#.#", chart.ProjectFinish))
	names := make(map[int64]string, len(snapshot.Tasks))
	for _, task := range snapshot.Tasks {
		names[task.ID] = task.Name
	}
	path := make([]string, 0, len(chart.Critical))
	for _, id := range chart.Critical {
		path = append(path, names[id])
	}
	if len(path) > 0 {
		fmt.Fprint(w, " | critical: ")
		criticalStyle.Fprint(w, strings.Join(path, ", "))
	}
	fmt.Fprintln(w)
	for _, warning := range chart.Warnings {
		delayedStyle.Fprintf(w, "warning: %s\n", warning)
	}

	for _, row := range chart.Tasks {
		line := fmt.Sprintf("  %s%-*s %10s %10s %4d%% %-12s slack %s",
			strings.Repeat("  ", row.Level),
			max(30-2*row.Level, 1), row.Name,
			reportDate(row.PlannedStartDate), reportDate(row.PlannedEndDate),
			row.ProgressRate, enumLabel(string(row.Status)),
			humanize.FormatFloat("#.#", row.Slack))

		switch {
		case row.IsCritical:
			criticalStyle.Fprintln(w, line)
		case row.IsDelayed:
			delayedStyle.Fprintln(w, line+" (delayed)")
		case row.Status == model.StatusCompleted:
			doneStyle.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func enumLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func reportDate(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Format(time.DateOnly)
}
