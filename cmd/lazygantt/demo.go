package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

type demoTask struct {
	key       string
	parent    string
	name      string
	offset    int
	days      int
	progress  int
	milestone bool
}

type demoLink struct {
	from, to string
	typ      model.DependencyType
	lag      int
}

// seedDemo creates a small website project starting this week with a two
// level breakdown and a few links of every type.
func seedDemo(ctx context.Context, store *db.Store) (model.Project, error) {
	start := timeline.Day(time.Now()).AddDate(0, 0, -7)
	end := start.AddDate(0, 0, 45)

	project, err := store.CreateProject(ctx, db.ProjectInput{
		Name:        "Website Launch",
		Description: "Sample project created by -demo",
		StartDate:   &start,
		EndDate:     &end,
	})
	if err != nil {
		return model.Project{}, err
	}

	tasks := []demoTask{
		{key: "plan", name: "Planning", offset: 0, days: 8},
		{key: "reqs", parent: "plan", name: "Requirements", offset: 0, days: 4, progress: 100},
		{key: "wire", parent: "plan", name: "Wireframes", offset: 4, days: 4, progress: 60},
		{key: "build", name: "Build", offset: 8, days: 20},
		{key: "front", parent: "build", name: "Frontend", offset: 8, days: 14},
		{key: "back", parent: "build", name: "Backend", offset: 8, days: 12, progress: 20},
		{key: "api", parent: "back", name: "API endpoints", offset: 8, days: 6},
		{key: "qa", name: "QA", offset: 22, days: 8},
		{key: "launch", name: "Launch", offset: 31, days: 1, milestone: true},
	}

	// every link joins siblings so the demo passes any predecessor scope
	links := []demoLink{
		{from: "reqs", to: "wire", typ: model.FinishToStart},
		{from: "plan", to: "build", typ: model.FinishToStart},
		{from: "front", to: "back", typ: model.StartToStart},
		{from: "build", to: "qa", typ: model.FinishToStart},
		{from: "plan", to: "qa", typ: model.FinishToFinish, lag: 2},
		{from: "qa", to: "launch", typ: model.FinishToStart, lag: 1},
	}

	ids := make(map[string]int64, len(tasks))
	for _, task := range tasks {
		taskStart := start.AddDate(0, 0, task.offset)
		taskEnd := taskStart.AddDate(0, 0, task.days-1)
		input := db.TaskInput{
			ProjectID:        project.ID,
			Name:             task.name,
			PlannedStartDate: &taskStart,
			PlannedEndDate:   &taskEnd,
			ProgressRate:     task.progress,
			IsMilestone:      task.milestone,
		}
		switch {
		case task.progress == 100:
			input.Status = string(model.StatusCompleted)
			input.ActualStartDate = &taskStart
			input.ActualEndDate = &taskEnd
		case task.progress > 0:
			input.Status = string(model.StatusInProgress)
			input.ActualStartDate = &taskStart
		}
		if task.parent != "" {
			parentID := ids[task.parent]
			input.ParentTaskID = &parentID
		}

		created, err := store.CreateTask(ctx, input)
		if err != nil {
			return model.Project{}, fmt.Errorf("could not create %q: %w", task.name, err)
		}
		ids[task.key] = created.ID
	}

	for _, link := range links {
		if _, err := store.AddDependency(ctx, ids[link.from], ids[link.to], link.typ, link.lag); err != nil {
			return model.Project{}, fmt.Errorf("could not link %s -> %s: %w", link.from, link.to, err)
		}
	}

	return store.GetProject(ctx, project.ID)
}
