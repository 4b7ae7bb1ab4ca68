package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

const dependencyColumns = `d.id, d.predecessor_id, d.successor_id, d.dependency_type, d.lag_days, d.created_at`

// AddDependency validates and stores an edge predecessor -> successor. The
// planner sees the tasks and edges of both endpoints' projects, so a
// cross-project link is reported as a scope violation rather than an
// unknown task.
func (s *Store) AddDependency(ctx context.Context, predecessorID, successorID int64, typ model.DependencyType, lagDays int) (model.Dependency, error) {
	typ, err := model.ParseDependencyType(string(typ))
	if err != nil {
		return model.Dependency{}, invalidf("%v", err)
	}

	var dependency model.Dependency
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		successor, err := getTask(ctx, tx, successorID)
		if err != nil {
			return err
		}
		projects := []int64{successor.ProjectID}
		predecessor, err := getTask(ctx, tx, predecessorID)
		switch {
		case err == nil:
			if predecessor.ProjectID != successor.ProjectID {
				projects = append(projects, predecessor.ProjectID)
			}
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		var (
			tasks []model.Task
			edges []model.Dependency
		)
		for _, projectID := range projects {
			projectTasks, err := listTasks(ctx, tx, projectID)
			if err != nil {
				return err
			}
			projectEdges, err := listDependencies(ctx, tx, projectID)
			if err != nil {
				return err
			}
			tasks = append(tasks, projectTasks...)
			edges = append(edges, projectEdges...)
		}

		edge, err := s.Planner.AddDependency(predecessorID, successorID, typ, lagDays, tasks, edges)
		if err != nil {
			return err
		}

		now := s.timestamp()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (predecessor_id, successor_id, dependency_type, lag_days, created_at) VALUES (?, ?, ?, ?, ?)`,
			edge.PredecessorID, edge.SuccessorID, string(edge.Type), edge.LagDays, now)
		if err != nil {
			return fmt.Errorf("add dependency: %w", err)
		}
		if edge.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("add dependency: %w", err)
		}
		edge.CreatedAt = now
		dependency = edge

		details := fmt.Sprintf("dependency added: %d -> %d (%s, lag %d)", edge.PredecessorID, edge.SuccessorID, edge.Type.Short(), edge.LagDays)
		if err := s.addHistory(ctx, tx, successor.ProjectID, successorID, "dependency_added", details); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, successor.ProjectID)
	})
	if err != nil {
		return model.Dependency{}, err
	}
	return dependency, nil
}

// RemoveDependency deletes an edge. Removing an edge that does not exist is
// not an error; it reports false.
func (s *Store) RemoveDependency(ctx context.Context, dependencyID int64) (bool, error) {
	removed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+dependencyColumns+`, t.project_id
			FROM task_dependencies d JOIN tasks t ON t.id = d.successor_id
			WHERE d.id = ?`, dependencyID)
		var (
			edge      model.Dependency
			typ       string
			projectID int64
		)
		err := row.Scan(&edge.ID, &edge.PredecessorID, &edge.SuccessorID, &typ, &edge.LagDays, &edge.CreatedAt, &projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get dependency %d: %w", dependencyID, err)
		}
		edge.Type = model.DependencyType(typ)

		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE id = ?`, dependencyID); err != nil {
			return fmt.Errorf("remove dependency %d: %w", dependencyID, err)
		}
		removed = true

		details := fmt.Sprintf("dependency removed: %d -> %d (%s, lag %d)", edge.PredecessorID, edge.SuccessorID, edge.Type.Short(), edge.LagDays)
		if err := s.addHistory(ctx, tx, projectID, edge.SuccessorID, "dependency_removed", details); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID)
	})
	return removed, err
}

// ListDependencies returns the edges touching any task of the project.
func (s *Store) ListDependencies(ctx context.Context, projectID int64) ([]model.Dependency, error) {
	return listDependencies(ctx, s.DB, projectID)
}

// ValidPredecessors lists the tasks that can still be linked as predecessors
// of taskID under the planner's scope policy.
func (s *Store) ValidPredecessors(ctx context.Context, taskID int64) ([]model.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.Planner.ValidatePredecessorCandidates(taskID, snap.Tasks, snap.Dependencies)
}

func listDependencies(ctx context.Context, q dbtx, projectID int64) ([]model.Dependency, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+dependencyColumns+`
		FROM task_dependencies d
		WHERE d.successor_id IN (SELECT id FROM tasks WHERE project_id = ?)
		   OR d.predecessor_id IN (SELECT id FROM tasks WHERE project_id = ?)
		ORDER BY d.id`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var edges []model.Dependency
	for rows.Next() {
		var (
			edge model.Dependency
			typ  string
		)
		if err := rows.Scan(&edge.ID, &edge.PredecessorID, &edge.SuccessorID, &typ, &edge.LagDays, &edge.CreatedAt); err != nil {
			return nil, err
		}
		edge.Type = model.DependencyType(typ)
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
