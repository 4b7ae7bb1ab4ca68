package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

type ProjectInput struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
}

const projectColumns = `id, name, description, start_date, end_date, revision, created_at, updated_at`

func (s *Store) CreateProject(ctx context.Context, input ProjectInput) (model.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Project{}, invalidf("project name is required")
	}
	start, end := dateOnly(input.StartDate), dateOnly(input.EndDate)
	if start != nil && end != nil && end.Before(*start) {
		return model.Project{}, &model.InconsistentDateError{Start: *start, End: *end}
	}

	now := s.timestamp()
	result, err := s.DB.ExecContext(ctx,
		`INSERT INTO projects (name, description, start_date, end_date, revision, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, input.Description, formatDate(start), formatDate(end), uuid.NewString(), now, now)
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	return s.GetProject(ctx, id)
}

func (s *Store) GetProject(ctx context.Context, projectID int64) (model.Project, error) {
	return getProject(ctx, s.DB, projectID)
}

func getProject(ctx context.Context, q dbtx, projectID int64) (model.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	project, err := scanProject(row)
	if err != nil {
		return model.Project{}, notFound(err, "project", projectID)
	}
	return project, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func scanProject(row scanner) (model.Project, error) {
	var (
		project    model.Project
		start, end sql.NullString
	)
	if err := row.Scan(&project.ID, &project.Name, &project.Description, &start, &end, &project.Revision, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return model.Project{}, err
	}
	var err error
	if project.StartDate, err = parseDate(start); err != nil {
		return model.Project{}, err
	}
	if project.EndDate, err = parseDate(end); err != nil {
		return model.Project{}, err
	}
	return project, nil
}

// Snapshot is the full state of one project, as the engine consumes it.
type Snapshot struct {
	Project      model.Project      `json:"project"`
	Tasks        []model.Task       `json:"tasks"`
	Dependencies []model.Dependency `json:"dependencies"`
}

// Snapshot reads a project with all of its tasks and edges in one
// transaction so the three agree on a single revision.
func (s *Store) Snapshot(ctx context.Context, projectID int64) (Snapshot, error) {
	var snap Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Project, err = getProject(ctx, tx, projectID); err != nil {
			return err
		}
		if snap.Tasks, err = listTasks(ctx, tx, projectID); err != nil {
			return err
		}
		snap.Dependencies, err = listDependencies(ctx, tx, projectID)
		return err
	})
	return snap, err
}
