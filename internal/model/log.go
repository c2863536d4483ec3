package model

import (
	"strings"
	"time"
)

// TaskLog records one check-in against a task. Images are data URIs or
// external references.
type TaskLog struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	TaskID    string   `json:"taskId"`
	Date      string   `json:"date"`
	Remark    string   `json:"remark"`
	Images    []string `json:"images"`
	Completed bool     `json:"completed"`
	Timestamp int64    `json:"timestamp"`
}

func (l *TaskLog) RecordID() string      { return l.ID }
func (l *TaskLog) SetRecordID(id string) { l.ID = id }
func (l *TaskLog) SetOwner(owner string) { l.UserID = owner }
func (l *TaskLog) Owner() string         { return l.UserID }

func (l *TaskLog) Normalize(now time.Time) {
	l.TaskID = strings.TrimSpace(l.TaskID)
	l.Remark = strings.TrimSpace(l.Remark)
	l.Images = emptyIfNil(l.Images)
	if l.Date == "" {
		l.Date = today(now)
	}
	if l.Timestamp == 0 {
		l.Timestamp = now.UnixMilli()
	}
}

func (l *TaskLog) Validate() error {
	if err := requireText("taskId", l.TaskID, 64); err != nil {
		return err
	}
	if err := validImages(l.Images); err != nil {
		return err
	}
	return validDate("date", l.Date, true)
}

func (l *TaskLog) Values() []any {
	return []any{l.TaskID, l.Date, l.Remark, l.Images, l.Completed, l.Timestamp}
}

func (l *TaskLog) Targets() []any {
	return []any{&l.TaskID, &l.Date, &l.Remark, &l.Images, &l.Completed, &l.Timestamp}
}
