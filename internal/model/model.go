package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold, StatusCancelled}

func ParseStatus(value string) (Status, error) {
	if value == "" {
		return StatusNotStarted, nil
	}
	for _, status := range Statuses {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(value string) (Priority, error) {
	switch Priority(value) {
	case "":
		return PriorityMedium, nil
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(value), nil
	}
	return "", fmt.Errorf("unknown priority %q", value)
}

type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Revision    string     `json:"revision"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Task struct {
	ID               int64      `json:"id"`
	ProjectID        int64      `json:"project_id"`
	ParentTaskID     *int64     `json:"parent_task_id"`
	Level            int        `json:"level"`
	SortOrder        int        `json:"sort_order"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	PlannedStartDate *time.Time `json:"planned_start_date"`
	PlannedEndDate   *time.Time `json:"planned_end_date"`
	ActualStartDate  *time.Time `json:"actual_start_date"`
	ActualEndDate    *time.Time `json:"actual_end_date"`
	ProgressRate     int        `json:"progress_rate"`
	Status           Status     `json:"status"`
	IsMilestone      bool       `json:"is_milestone"`
	EstimatedHours   float64    `json:"estimated_hours"`
	ActualHours      float64    `json:"actual_hours"`
	Priority         Priority   `json:"priority"`
	Category         string     `json:"category"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsRoot reports whether the task has no parent.
func (t Task) IsRoot() bool {
	return t.ParentTaskID == nil
}

// CheckDates returns an InconsistentDateError when a planned or actual end
// precedes its start.
func (t Task) CheckDates() error {
	if t.PlannedStartDate != nil && t.PlannedEndDate != nil && t.PlannedEndDate.Before(*t.PlannedStartDate) {
		return &InconsistentDateError{TaskID: t.ID, Start: *t.PlannedStartDate, End: *t.PlannedEndDate}
	}
	if t.ActualStartDate != nil && t.ActualEndDate != nil && t.ActualEndDate.Before(*t.ActualStartDate) {
		return &InconsistentDateError{TaskID: t.ID, Start: *t.ActualStartDate, End: *t.ActualEndDate, Actual: true}
	}
	return nil
}

type DependencyType string

const (
	FinishToStart  DependencyType = "finish_to_start"
	StartToStart   DependencyType = "start_to_start"
	FinishToFinish DependencyType = "finish_to_finish"
	StartToFinish  DependencyType = "start_to_finish"
)

// ParseDependencyType accepts both the long form and the fs/ss/ff/sf
// abbreviation. An empty value means finish_to_start.
func ParseDependencyType(value string) (DependencyType, error) {
	switch value {
	case "", "fs", string(FinishToStart):
		return FinishToStart, nil
	case "ss", string(StartToStart):
		return StartToStart, nil
	case "ff", string(FinishToFinish):
		return FinishToFinish, nil
	case "sf", string(StartToFinish):
		return StartToFinish, nil
	}
	return "", fmt.Errorf("unknown dependency type %q", value)
}

func (t DependencyType) Short() string {
	switch t {
	case StartToStart:
		return "ss"
	case FinishToFinish:
		return "ff"
	case StartToFinish:
		return "sf"
	default:
		return "fs"
	}
}

type Dependency struct {
	ID            int64          `json:"id"`
	PredecessorID int64          `json:"predecessor_id"`
	SuccessorID   int64          `json:"successor_id"`
	Type          DependencyType `json:"dependency_type"`
	LagDays       int            `json:"lag_days"`
	CreatedAt     time.Time      `json:"created_at"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
