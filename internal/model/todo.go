package model

import (
	"strings"
	"time"
)

const MaxTodoTextLength = 500

type Todo struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	DueDate   string `json:"dueDate"`
	Completed bool   `json:"completed"`
}

func (t *Todo) RecordID() string      { return t.ID }
func (t *Todo) SetRecordID(id string) { t.ID = id }
func (t *Todo) SetOwner(owner string) { t.UserID = owner }
func (t *Todo) Owner() string         { return t.UserID }

func (t *Todo) Normalize(time.Time) {
	t.Text = strings.TrimSpace(t.Text)
}

func (t *Todo) Validate() error {
	if err := requireText("text", t.Text, MaxTodoTextLength); err != nil {
		return err
	}
	return validDate("dueDate", t.DueDate, false)
}

func (t *Todo) Values() []any {
	return []any{t.Text, t.DueDate, t.Completed}
}

func (t *Todo) Targets() []any {
	return []any{&t.Text, &t.DueDate, &t.Completed}
}
