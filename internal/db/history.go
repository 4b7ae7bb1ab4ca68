package db

import (
	"context"
	"fmt"

	"github.com/Joseda-hg/lazygantt/internal/model"
)

// ListHistory returns the entries of one task, newest first. Entries outlive
// the task they describe.
func (s *Store) ListHistory(ctx context.Context, taskID int64) ([]model.HistoryEntry, error) {
	return s.queryHistory(ctx, `SELECT id, task_id, event_type, details, created_at FROM history WHERE task_id = ? ORDER BY created_at DESC, id DESC`, taskID)
}

// ListProjectHistory returns the latest entries across a project.
func (s *Store) ListProjectHistory(ctx context.Context, projectID int64, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryHistory(ctx, `SELECT id, task_id, event_type, details, created_at FROM history WHERE project_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit)
}

func (s *Store) queryHistory(ctx context.Context, query string, args ...any) ([]model.HistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.EventType, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
