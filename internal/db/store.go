package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists projects, tasks, dependencies and history. Every write that
// changes what a chart shows runs in one transaction, is validated by the
// planner first and bumps the project revision.
type Store struct {
	DB      *sql.DB
	Planner *gantt.Planner

	log lgr.L
	now func() time.Time
}

type StoreOption func(*Store)

func WithLogger(l lgr.L) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(db *sql.DB, planner *gantt.Planner, opts ...StoreOption) *Store {
	if planner == nil {
		planner = gantt.NewPlanner()
	}
	s := &Store{DB: db, Planner: planner, log: lgr.NoOp, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// touchProject stamps a new revision on the project so cached charts of the
// previous state are no longer served.
func (s *Store) touchProject(ctx context.Context, q dbtx, projectID int64) error {
	revision := uuid.NewString()
	if _, err := q.ExecContext(ctx, `UPDATE projects SET revision = ?, updated_at = ? WHERE id = ?`, revision, s.timestamp(), projectID); err != nil {
		return fmt.Errorf("bump project %d revision: %w", projectID, err)
	}
	s.log.Logf("[DEBUG] project %d revision %s", projectID, revision)
	return nil
}

func (s *Store) addHistory(ctx context.Context, q dbtx, projectID, taskID int64, eventType, details string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO history (project_id, task_id, event_type, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		projectID, taskID, eventType, details, s.timestamp())
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{model.ErrInvalidInput}, args...)...)
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, model.ErrNotFound)
	}
	return err
}

func formatDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Format(time.DateOnly)
}

func parseDate(value sql.NullString) (*time.Time, error) {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", value.String, err)
	}
	return &t, nil
}

// dateOnly drops the time of day and location, keeping the calendar date the
// caller sees.
func dateOnly(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	y, m, d := value.Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func formatDue(value *time.Time) string {
	if value == nil {
		return "none"
	}
	return value.Format(time.DateOnly)
}

func formatParent(parentID *int64) string {
	if parentID == nil || *parentID == 0 {
		return "none"
	}
	return fmt.Sprintf("%d", *parentID)
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}
