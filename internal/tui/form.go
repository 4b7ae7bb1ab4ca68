package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/model"
)

type formKind int

const (
	formTask formKind = iota
	formProject
	formLink
	formMove
)

// formField is one line of a popup form. Fields with Options are choices
// cycled with space and the arrow keys instead of typed.
type formField struct {
	Label   string
	Value   string
	Options []string
}

const (
	fieldName = iota
	fieldDescription
	fieldStart
	fieldEnd
	fieldProgress
	fieldStatus
	fieldPriority
	fieldMilestone
	fieldCategory
)

const (
	fieldPredecessor = iota
	fieldType
	fieldLag
)

func statusOptions() []string {
	options := make([]string, 0, len(model.Statuses))
	for _, status := range model.Statuses {
		options = append(options, string(status))
	}
	return options
}

func buildTaskFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Name"},
		{Label: "Description"},
		{Label: "Start (YYYY-MM-DD)"},
		{Label: "End (YYYY-MM-DD)"},
		{Label: "Progress (0-100)"},
		{Label: "Status", Options: statusOptions()},
		{Label: "Priority", Options: []string{string(model.PriorityHigh), string(model.PriorityMedium), string(model.PriorityLow)}},
		{Label: "Milestone", Options: []string{"no", "yes"}},
		{Label: "Category"},
	}

	if task == nil {
		fields[fieldProgress].Value = "0"
		fields[fieldStatus].Value = string(model.StatusNotStarted)
		fields[fieldPriority].Value = string(model.PriorityMedium)
		fields[fieldMilestone].Value = "no"
		return fields
	}

	fields[fieldName].Value = task.Name
	fields[fieldDescription].Value = task.Description
	if task.PlannedStartDate != nil {
		fields[fieldStart].Value = task.PlannedStartDate.Format(time.DateOnly)
	}
	if task.PlannedEndDate != nil {
		fields[fieldEnd].Value = task.PlannedEndDate.Format(time.DateOnly)
	}
	fields[fieldProgress].Value = strconv.Itoa(task.ProgressRate)
	fields[fieldStatus].Value = string(task.Status)
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldMilestone].Value = "no"
	if task.IsMilestone {
		fields[fieldMilestone].Value = "yes"
	}
	fields[fieldCategory].Value = task.Category
	return fields
}

// applyTaskFields copies the form values over input, leaving fields the form
// does not show untouched.
func applyTaskFields(fields []formField, input *db.TaskInput) error {
	start, err := parseDate("start", fields[fieldStart].Value)
	if err != nil {
		return err
	}
	end, err := parseDate("end", fields[fieldEnd].Value)
	if err != nil {
		return err
	}
	progress, err := parseInt("progress", fields[fieldProgress].Value)
	if err != nil {
		return err
	}

	input.Name = strings.TrimSpace(fields[fieldName].Value)
	input.Description = strings.TrimSpace(fields[fieldDescription].Value)
	input.PlannedStartDate = start
	input.PlannedEndDate = end
	input.ProgressRate = progress
	input.Status = fields[fieldStatus].Value
	input.Priority = fields[fieldPriority].Value
	input.IsMilestone = fields[fieldMilestone].Value == "yes"
	input.Category = strings.TrimSpace(fields[fieldCategory].Value)
	return nil
}

func buildProjectFields() []formField {
	return []formField{
		{Label: "Name"},
		{Label: "Description"},
		{Label: "Start (YYYY-MM-DD)"},
		{Label: "End (YYYY-MM-DD)"},
	}
}

func parseProjectFields(fields []formField) (db.ProjectInput, error) {
	start, err := parseDate("start", fields[2].Value)
	if err != nil {
		return db.ProjectInput{}, err
	}
	end, err := parseDate("end", fields[3].Value)
	if err != nil {
		return db.ProjectInput{}, err
	}
	return db.ProjectInput{
		Name:        strings.TrimSpace(fields[0].Value),
		Description: strings.TrimSpace(fields[1].Value),
		StartDate:   start,
		EndDate:     end,
	}, nil
}

// taskOption renders a task as a choice value; optionID reads the id back.
func taskOption(task model.Task) string {
	return fmt.Sprintf("%d: %s", task.ID, task.Name)
}

func optionID(value string) (int64, bool) {
	head, _, ok := strings.Cut(value, ":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	return id, err == nil
}

func buildLinkFields(candidates []model.Task) []formField {
	options := make([]string, 0, len(candidates))
	for _, task := range candidates {
		options = append(options, taskOption(task))
	}
	fields := []formField{
		{Label: "Predecessor", Options: options},
		{Label: "Type", Options: []string{"fs", "ss", "ff", "sf"}, Value: "fs"},
		{Label: "Lag (days)", Value: "0"},
	}
	if len(options) > 0 {
		fields[fieldPredecessor].Value = options[0]
	}
	return fields
}

func parseLinkFields(fields []formField) (int64, model.DependencyType, int, error) {
	predecessorID, ok := optionID(fields[fieldPredecessor].Value)
	if !ok {
		return 0, "", 0, fmt.Errorf("no predecessor available")
	}
	typ, err := model.ParseDependencyType(fields[fieldType].Value)
	if err != nil {
		return 0, "", 0, err
	}
	lag, err := parseInt("lag", fields[fieldLag].Value)
	if err != nil {
		return 0, "", 0, err
	}
	return predecessorID, typ, lag, nil
}

const noParent = "none (root)"

func buildMoveFields(task model.Task, tasks []model.Task) []formField {
	options := []string{noParent}
	current := noParent
	for _, candidate := range tasks {
		if candidate.ID == task.ID {
			continue
		}
		options = append(options, taskOption(candidate))
		if task.ParentTaskID != nil && *task.ParentTaskID == candidate.ID {
			current = taskOption(candidate)
		}
	}
	return []formField{{Label: "Parent", Options: options, Value: current}}
}

func parseMoveFields(fields []formField) *int64 {
	id, ok := optionID(fields[0].Value)
	if !ok {
		return nil
	}
	return &id
}

func cycleOption(options []string, current string, delta int) string {
	if len(options) == 0 {
		return ""
	}
	index := 0
	for i, option := range options {
		if option == current {
			index = i
			break
		}
	}
	index = (index + delta + len(options)) % len(options)
	return options[index]
}

func parseDate(field, value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.DateOnly, trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q", field, trimmed)
	}
	return &parsed, nil
}

func parseInt(field, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, trimmed)
	}
	return parsed, nil
}
