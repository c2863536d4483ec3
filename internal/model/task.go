package model

import (
	"strings"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
)

// Task types (life domains).
const (
	TaskTypeHealth        = "HEALTH"
	TaskTypeWealth        = "WEALTH"
	TaskTypePersonal      = "PERSONAL"
	TaskTypeCareer        = "CAREER"
	TaskTypeRelationships = "RELATIONSHIPS"
	TaskTypeOther         = "OTHER"
)

const (
	CategoryHabit = "habit"
	CategoryGoal  = "goal"
)

var TaskTypes = []string{
	TaskTypeHealth, TaskTypeWealth, TaskTypePersonal,
	TaskTypeCareer, TaskTypeRelationships, TaskTypeOther,
}

const MaxTaskNameLength = 200

// Task is a habit or a goal.
type Task struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	Type      string `json:"type"`
	Category  string `json:"category"`
	Penalty   string `json:"penalty"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	CreatedAt string `json:"createdAt"`
}

func (t *Task) RecordID() string      { return t.ID }
func (t *Task) SetRecordID(id string) { t.ID = id }
func (t *Task) SetOwner(owner string) { t.UserID = owner }
func (t *Task) Owner() string         { return t.UserID }

func (t *Task) Normalize(now time.Time) {
	t.Name = strings.TrimSpace(t.Name)
	t.Reason = strings.TrimSpace(t.Reason)
	t.Penalty = strings.TrimSpace(t.Penalty)
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	t.Type = strings.ToUpper(strings.TrimSpace(t.Type))
	if t.Type == "" {
		t.Type = TaskTypeOther
	}
	if t.StartDate == "" {
		t.StartDate = today(now)
	}
	if t.CreatedAt == "" {
		t.CreatedAt = now.UTC().Format(time.RFC3339Nano)
	}
}

func (t *Task) Validate() error {
	if err := requireText("name", t.Name, MaxTaskNameLength); err != nil {
		return err
	}
	if t.Category != CategoryHabit && t.Category != CategoryGoal {
		return apperror.ValidationFailed("category", "category must be habit or goal")
	}
	if !oneOf(t.Type, TaskTypes) {
		return apperror.ValidationFailed("type", "unknown task type "+t.Type)
	}
	if err := validDate("startDate", t.StartDate, true); err != nil {
		return err
	}
	if err := validDate("endDate", t.EndDate, false); err != nil {
		return err
	}
	// Lexical order is chronological for YYYY-MM-DD.
	if t.EndDate != "" && t.EndDate < t.StartDate {
		return apperror.ValidationFailed("endDate", "endDate must not be before startDate")
	}
	return nil
}

func (t *Task) Values() []any {
	return []any{t.Name, t.Reason, t.Type, t.Category, t.Penalty, t.StartDate, t.EndDate, t.CreatedAt}
}

func (t *Task) Targets() []any {
	return []any{&t.Name, &t.Reason, &t.Type, &t.Category, &t.Penalty, &t.StartDate, &t.EndDate, &t.CreatedAt}
}
