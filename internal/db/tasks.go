package db

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/hierarchy"
	"github.com/Joseda-hg/lazygantt/internal/model"
)

type TaskInput struct {
	ProjectID        int64
	ParentTaskID     *int64
	Name             string
	Description      string
	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	ActualStartDate  *time.Time
	ActualEndDate    *time.Time
	ProgressRate     int
	Status           string
	IsMilestone      bool
	EstimatedHours   float64
	ActualHours      float64
	Priority         string
	Category         string
}

// InputFromTask copies the editable fields of a stored task, so callers can
// change a few of them and pass the result to UpdateTask.
func InputFromTask(task model.Task) TaskInput {
	return TaskInput{
		ProjectID:        task.ProjectID,
		ParentTaskID:     task.ParentTaskID,
		Name:             task.Name,
		Description:      task.Description,
		PlannedStartDate: task.PlannedStartDate,
		PlannedEndDate:   task.PlannedEndDate,
		ActualStartDate:  task.ActualStartDate,
		ActualEndDate:    task.ActualEndDate,
		ProgressRate:     task.ProgressRate,
		Status:           string(task.Status),
		IsMilestone:      task.IsMilestone,
		EstimatedHours:   task.EstimatedHours,
		ActualHours:      task.ActualHours,
		Priority:         string(task.Priority),
		Category:         task.Category,
	}
}

// toTask validates the input and returns it as a task without identity.
func (input TaskInput) toTask(id int64) (model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Task{}, invalidf("task name is required")
	}
	status, err := model.ParseStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return model.Task{}, invalidf("%v", err)
	}
	priority, err := model.ParsePriority(strings.ToLower(strings.TrimSpace(input.Priority)))
	if err != nil {
		return model.Task{}, invalidf("%v", err)
	}
	if input.ProgressRate < 0 || input.ProgressRate > 100 {
		return model.Task{}, invalidf("progress rate %d is outside 0..100", input.ProgressRate)
	}
	if input.EstimatedHours < 0 || input.ActualHours < 0 {
		return model.Task{}, invalidf("hours cannot be negative")
	}

	task := model.Task{
		ID:               id,
		ProjectID:        input.ProjectID,
		ParentTaskID:     input.ParentTaskID,
		Name:             name,
		Description:      input.Description,
		PlannedStartDate: dateOnly(input.PlannedStartDate),
		PlannedEndDate:   dateOnly(input.PlannedEndDate),
		ActualStartDate:  dateOnly(input.ActualStartDate),
		ActualEndDate:    dateOnly(input.ActualEndDate),
		ProgressRate:     input.ProgressRate,
		Status:           status,
		IsMilestone:      input.IsMilestone,
		EstimatedHours:   input.EstimatedHours,
		ActualHours:      input.ActualHours,
		Priority:         priority,
		Category:         strings.TrimSpace(input.Category),
	}
	if err := task.CheckDates(); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

const taskColumns = `id, project_id, parent_task_id, level, sort_order, name, description,
	planned_start_date, planned_end_date, actual_start_date, actual_end_date,
	progress_rate, status, is_milestone, estimated_hours, actual_hours, priority, category,
	created_at, updated_at`

// CreateTask stores a new task at the end of its project. The level is
// derived from the parent, which must belong to the same project and sit
// above the deepest level.
func (s *Store) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	task, err := input.toTask(0)
	if err != nil {
		return model.Task{}, err
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		if task.ParentTaskID != nil {
			parent, err := getTask(ctx, tx, *task.ParentTaskID)
			if err != nil {
				return err
			}
			if err := hierarchy.CheckParent(nil, task, parent, parent.Level); err != nil {
				return err
			}
			task.Level = parent.Level + 1
		}

		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM tasks WHERE project_id = ?`, task.ProjectID).Scan(&task.SortOrder); err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}

		now := s.timestamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (project_id, parent_task_id, level, sort_order, name, description,
				planned_start_date, planned_end_date, actual_start_date, actual_end_date,
				progress_rate, status, is_milestone, estimated_hours, actual_hours, priority, category,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ProjectID, nullID(task.ParentTaskID), task.Level, task.SortOrder, task.Name, task.Description,
			formatDate(task.PlannedStartDate), formatDate(task.PlannedEndDate), formatDate(task.ActualStartDate), formatDate(task.ActualEndDate),
			task.ProgressRate, string(task.Status), task.IsMilestone, task.EstimatedHours, task.ActualHours, string(task.Priority), task.Category,
			now, now)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		task.ID = id

		if err := s.addHistory(ctx, tx, task.ProjectID, id, "created", formatCreatedDetails(task)); err != nil {
			return err
		}
		if err := s.rollupProgress(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, task.ProjectID)
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTask replaces the editable fields of a task. Project and parent are
// not changed here; use MoveTask to reparent.
func (s *Store) UpdateTask(ctx context.Context, taskID int64, input TaskInput) (model.Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		input.ProjectID = before.ProjectID
		input.ParentTaskID = before.ParentTaskID
		after, err := input.toTask(taskID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET name = ?, description = ?, planned_start_date = ?, planned_end_date = ?,
				actual_start_date = ?, actual_end_date = ?, progress_rate = ?, status = ?,
				is_milestone = ?, estimated_hours = ?, actual_hours = ?, priority = ?, category = ?,
				updated_at = ?
			WHERE id = ?`,
			after.Name, after.Description, formatDate(after.PlannedStartDate), formatDate(after.PlannedEndDate),
			formatDate(after.ActualStartDate), formatDate(after.ActualEndDate), after.ProgressRate, string(after.Status),
			after.IsMilestone, after.EstimatedHours, after.ActualHours, string(after.Priority), after.Category,
			s.timestamp(), taskID)
		if err != nil {
			return fmt.Errorf("update task %d: %w", taskID, err)
		}

		if err := s.addHistory(ctx, tx, before.ProjectID, taskID, "updated", formatTaskDiff(before, after)); err != nil {
			return err
		}
		if err := s.rollupProgress(ctx, tx, before.ProjectID); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, before.ProjectID)
	})
	if err != nil {
		return model.Task{}, err
	}
	return s.GetTask(ctx, taskID)
}

// MoveTask reparents a task (nil makes it a root) and stores the recomputed
// levels of its whole subtree. Nothing is written when the move is invalid.
func (s *Store) MoveTask(ctx context.Context, taskID int64, newParentID *int64) ([]model.Task, error) {
	var moved []model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if newParentID != nil {
			parent, err := getTask(ctx, tx, *newParentID)
			if err != nil {
				return err
			}
			if parent.ProjectID != task.ProjectID {
				return &model.InvalidHierarchyError{TaskID: taskID, ParentID: parent.ID, Reason: "parent belongs to another project"}
			}
		}

		tasks, err := listTasks(ctx, tx, task.ProjectID)
		if err != nil {
			return err
		}
		if moved, err = s.Planner.ReparentTask(taskID, newParentID, tasks); err != nil {
			return err
		}

		now := s.timestamp()
		for i, t := range moved {
			if i == 0 {
				_, err = tx.ExecContext(ctx, `UPDATE tasks SET parent_task_id = ?, level = ?, updated_at = ? WHERE id = ?`, nullID(t.ParentTaskID), t.Level, now, t.ID)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE tasks SET level = ?, updated_at = ? WHERE id = ?`, t.Level, now, t.ID)
			}
			if err != nil {
				return fmt.Errorf("move task %d: %w", t.ID, err)
			}
		}

		details := "moved: " + formatChange("parent", formatParent(task.ParentTaskID), formatParent(newParentID))
		if err := s.addHistory(ctx, tx, task.ProjectID, taskID, "moved", details); err != nil {
			return err
		}
		if err := s.rollupProgress(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, task.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// DeleteTask removes a task that has no children and no dependency edges.
// Otherwise it fails with TaskInUseError naming what still references it.
func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		children, err := queryIDs(ctx, tx, `SELECT id FROM tasks WHERE parent_task_id = ? ORDER BY id`, taskID)
		if err != nil {
			return err
		}
		edges, err := queryIDs(ctx, tx, `SELECT id FROM task_dependencies WHERE predecessor_id = ? OR successor_id = ? ORDER BY id`, taskID, taskID)
		if err != nil {
			return err
		}
		if len(children) > 0 || len(edges) > 0 {
			return &model.TaskInUseError{TaskID: taskID, ChildIDs: children, DependencyIDs: edges}
		}

		if err := s.addHistory(ctx, tx, task.ProjectID, taskID, "deleted", formatDeletedDetails(task)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
			return fmt.Errorf("delete task %d: %w", taskID, err)
		}
		if err := s.rollupProgress(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, task.ProjectID)
	})
}

func (s *Store) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	return getTask(ctx, s.DB, taskID)
}

// ListTasks returns the tasks of a project by sort order.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	return listTasks(ctx, s.DB, projectID)
}

func getTask(ctx context.Context, q dbtx, taskID int64) (model.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if err != nil {
		return model.Task{}, notFound(err, "task", taskID)
	}
	return task, nil
}

func listTasks(ctx context.Context, q dbtx, projectID int64) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY sort_order, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (model.Task, error) {
	var (
		task                                             model.Task
		parentID                                         sql.NullInt64
		plannedStart, plannedEnd, actualStart, actualEnd sql.NullString
		status, priority                                 string
	)
	err := row.Scan(
		&task.ID, &task.ProjectID, &parentID, &task.Level, &task.SortOrder, &task.Name, &task.Description,
		&plannedStart, &plannedEnd, &actualStart, &actualEnd,
		&task.ProgressRate, &status, &task.IsMilestone, &task.EstimatedHours, &task.ActualHours, &priority, &task.Category,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}
	task.Status = model.Status(status)
	task.Priority = model.Priority(priority)
	if parentID.Valid {
		id := parentID.Int64
		task.ParentTaskID = &id
	}
	for _, field := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&task.PlannedStartDate, plannedStart},
		{&task.PlannedEndDate, plannedEnd},
		{&task.ActualStartDate, actualStart},
		{&task.ActualEndDate, actualEnd},
	} {
		if *field.dst, err = parseDate(field.src); err != nil {
			return model.Task{}, fmt.Errorf("task %d: %w", task.ID, err)
		}
	}
	return task, nil
}

// rollupProgress rewrites the progress of every parent whose children
// average changed. Each rewrite bumps the parent's updated_at and is
// recorded in its history.
func (s *Store) rollupProgress(ctx context.Context, tx *sql.Tx, projectID int64) error {
	tasks, err := listTasks(ctx, tx, projectID)
	if err != nil {
		return err
	}
	forest, err := hierarchy.Build(tasks)
	if err != nil {
		return err
	}
	previous := make(map[int64]int, len(tasks))
	for _, task := range tasks {
		previous[task.ID] = task.ProgressRate
	}

	changed := hierarchy.RollupProgress(forest)
	now := s.timestamp()
	for _, id := range slices.Sorted(maps.Keys(changed)) {
		progress := changed[id]
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET progress_rate = ?, updated_at = ? WHERE id = ?`, progress, now, id); err != nil {
			return fmt.Errorf("roll up progress of task %d: %w", id, err)
		}
		details := "rolled up: " + formatChange("progress", strconv.Itoa(previous[id]), strconv.Itoa(progress))
		if err := s.addHistory(ctx, tx, projectID, id, "progress_rolled_up", details); err != nil {
			return err
		}
		s.log.Logf("[DEBUG] task %d progress rolled up to %d%%", id, progress)
	}
	return nil
}

func queryIDs(ctx context.Context, q dbtx, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func formatCreatedDetails(task model.Task) string {
	return fmt.Sprintf("created: name='%s' status=%s parent=%s start=%s end=%s", task.Name, task.Status, formatParent(task.ParentTaskID), formatDue(task.PlannedStartDate), formatDue(task.PlannedEndDate))
}

func formatDeletedDetails(task model.Task) string {
	return fmt.Sprintf("deleted: name='%s' status=%s parent=%s start=%s end=%s", task.Name, task.Status, formatParent(task.ParentTaskID), formatDue(task.PlannedStartDate), formatDue(task.PlannedEndDate))
}

func formatTaskDiff(before, after model.Task) string {
	changes := []string{}
	if before.Name != after.Name {
		changes = append(changes, formatChange("name", before.Name, after.Name))
	}
	if before.Description != after.Description {
		changes = append(changes, formatChange("description", before.Description, after.Description))
	}
	if before.Status != after.Status {
		changes = append(changes, formatChange("status", string(before.Status), string(after.Status)))
	}
	if before.Priority != after.Priority {
		changes = append(changes, formatChange("priority", string(before.Priority), string(after.Priority)))
	}
	if before.ProgressRate != after.ProgressRate {
		changes = append(changes, formatChange("progress", fmt.Sprintf("%d", before.ProgressRate), fmt.Sprintf("%d", after.ProgressRate)))
	}
	if before.IsMilestone != after.IsMilestone {
		changes = append(changes, formatChange("milestone", fmt.Sprintf("%t", before.IsMilestone), fmt.Sprintf("%t", after.IsMilestone)))
	}
	for _, field := range []struct {
		name          string
		before, after *time.Time
	}{
		{"planned start", before.PlannedStartDate, after.PlannedStartDate},
		{"planned end", before.PlannedEndDate, after.PlannedEndDate},
		{"actual start", before.ActualStartDate, after.ActualStartDate},
		{"actual end", before.ActualEndDate, after.ActualEndDate},
	} {
		if formatDue(field.before) != formatDue(field.after) {
			changes = append(changes, formatChange(field.name, formatDue(field.before), formatDue(field.after)))
		}
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}

	return "updated: " + strings.Join(changes, "; ")
}
