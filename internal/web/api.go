package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/cpm"
	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

type projectPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

// taskPayload carries the fields of a create or patch request. Absent fields
// keep their current value; an empty date string clears the date.
type taskPayload struct {
	ParentTaskID     *int64   `json:"parent_task_id"`
	Name             *string  `json:"name"`
	Description      *string  `json:"description"`
	PlannedStartDate *string  `json:"planned_start_date"`
	PlannedEndDate   *string  `json:"planned_end_date"`
	ActualStartDate  *string  `json:"actual_start_date"`
	ActualEndDate    *string  `json:"actual_end_date"`
	ProgressRate     *int     `json:"progress_rate"`
	Status           *string  `json:"status"`
	IsMilestone      *bool    `json:"is_milestone"`
	EstimatedHours   *float64 `json:"estimated_hours"`
	ActualHours      *float64 `json:"actual_hours"`
	Priority         *string  `json:"priority"`
	Category         *string  `json:"category"`
}

func (p taskPayload) apply(input *db.TaskInput) error {
	if p.Name != nil {
		input.Name = *p.Name
	}
	if p.Description != nil {
		input.Description = *p.Description
	}
	for _, field := range []struct {
		name  string
		value *string
		dst   **time.Time
	}{
		{"planned_start_date", p.PlannedStartDate, &input.PlannedStartDate},
		{"planned_end_date", p.PlannedEndDate, &input.PlannedEndDate},
		{"actual_start_date", p.ActualStartDate, &input.ActualStartDate},
		{"actual_end_date", p.ActualEndDate, &input.ActualEndDate},
	} {
		if field.value == nil {
			continue
		}
		parsed, err := parseDate(field.name, *field.value)
		if err != nil {
			return err
		}
		*field.dst = parsed
	}
	if p.ProgressRate != nil {
		input.ProgressRate = *p.ProgressRate
	}
	if p.Status != nil {
		input.Status = *p.Status
	}
	if p.IsMilestone != nil {
		input.IsMilestone = *p.IsMilestone
	}
	if p.EstimatedHours != nil {
		input.EstimatedHours = *p.EstimatedHours
	}
	if p.ActualHours != nil {
		input.ActualHours = *p.ActualHours
	}
	if p.Priority != nil {
		input.Priority = *p.Priority
	}
	if p.Category != nil {
		input.Category = *p.Category
	}
	return nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, badRequest(fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value))
	}
	return &parsed, nil
}

func (s *Server) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	var payload projectPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.fail(w, err)
		return
	}
	input := db.ProjectInput{Name: payload.Name, Description: payload.Description}
	var err error
	if payload.StartDate != nil {
		if input.StartDate, err = parseDate("start_date", *payload.StartDate); err != nil {
			s.fail(w, err)
			return
		}
	}
	if payload.EndDate != nil {
		if input.EndDate, err = parseDate("end_date", *payload.EndDate); err != nil {
			s.fail(w, err)
			return
		}
	}

	project, err := s.store.CreateProject(r.Context(), input)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) ganttHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	params, err := s.chartParams(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	chart, err := s.chart(r.Context(), projectID, params)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

type criticalPathResponse struct {
	ProjectID     int64                  `json:"project_id"`
	Critical      []int64                `json:"critical"`
	ProjectFinish float64                `json:"project_finish"`
	Schedule      map[int64]cpm.Schedule `json:"schedule"`
	Cycles        [][]int64              `json:"cycles,omitempty"`
}

func (s *Server) criticalPathHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	snap, err := s.store.Snapshot(r.Context(), projectID)
	if err != nil {
		s.fail(w, err)
		return
	}
	planner := s.store.Planner
	window := timeline.ProjectWindow(snap.Project.StartDate, snap.Project.EndDate, snap.Tasks, planner.Now())
	result, err := planner.CriticalPath(snap.Tasks, snap.Dependencies, window)
	if err != nil {
		s.fail(w, err)
		return
	}
	critical := result.Critical
	if critical == nil {
		critical = []int64{}
	}
	writeJSON(w, http.StatusOK, criticalPathResponse{
		ProjectID:     projectID,
		Critical:      critical,
		ProjectFinish: result.ProjectFinish,
		Schedule:      result.Tasks,
		Cycles:        result.Cycles,
	})
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		s.fail(w, err)
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), projectID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.fail(w, err)
		return
	}
	input := db.TaskInput{ProjectID: projectID, ParentTaskID: payload.ParentTaskID}
	if err := payload.apply(&input); err != nil {
		s.fail(w, err)
		return
	}

	task, err := s.store.CreateTask(r.Context(), input)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.charts.Forget(projectID)
	writeJSON(w, http.StatusCreated, task)
}

// projectHistoryHandler lists the latest changes across a project,
// newest first. limit defaults to 50.
func (s *Server) projectHistoryHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			s.fail(w, badRequest(fmt.Errorf("invalid limit %q", raw)))
			return
		}
	}
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		s.fail(w, err)
		return
	}
	history, err := s.store.ListProjectHistory(r.Context(), projectID, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	task, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		s.fail(w, err)
		return
	}
	history, err := s.store.ListHistory(r.Context(), taskID)
	if err != nil {
		s.fail(w, err)
		return
	}

	payload := struct {
		Task    model.Task           `json:"task"`
		History []model.HistoryEntry `json:"history"`
	}{Task: task, History: history}

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.fail(w, err)
		return
	}
	if payload.ParentTaskID != nil {
		s.fail(w, badRequest(fmt.Errorf("parent_task_id cannot be patched, use POST /api/tasks/%d/parent", taskID)))
		return
	}
	current, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		s.fail(w, err)
		return
	}
	input := db.InputFromTask(current)
	if err := payload.apply(&input); err != nil {
		s.fail(w, err)
		return
	}

	task, err := s.store.UpdateTask(r.Context(), taskID, input)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.charts.Forget(task.ProjectID)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	task, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.store.DeleteTask(r.Context(), taskID); err != nil {
		s.fail(w, err)
		return
	}
	s.charts.Forget(task.ProjectID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var payload struct {
		ParentTaskID *int64 `json:"parent_task_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.fail(w, err)
		return
	}

	moved, err := s.store.MoveTask(r.Context(), taskID, payload.ParentTaskID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(moved) > 0 {
		s.charts.Forget(moved[0].ProjectID)
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *Server) predecessorsHandler(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	candidates, err := s.store.ValidPredecessors(r.Context(), taskID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if candidates == nil {
		candidates = []model.Task{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

type dependencyPayload struct {
	PredecessorID int64  `json:"predecessor_id"`
	SuccessorID   int64  `json:"successor_id"`
	Type          string `json:"dependency_type"`
	LagDays       int    `json:"lag_days"`
}

func (s *Server) addDependencyHandler(w http.ResponseWriter, r *http.Request) {
	var payload dependencyPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.fail(w, err)
		return
	}

	edge, err := s.store.AddDependency(r.Context(), payload.PredecessorID, payload.SuccessorID, model.DependencyType(payload.Type), payload.LagDays)
	if err != nil {
		s.fail(w, err)
		return
	}
	if successor, err := s.store.GetTask(r.Context(), edge.SuccessorID); err == nil {
		s.charts.Forget(successor.ProjectID)
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) removeDependencyHandler(w http.ResponseWriter, r *http.Request) {
	dependencyID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	removed, err := s.store.RemoveDependency(r.Context(), dependencyID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
