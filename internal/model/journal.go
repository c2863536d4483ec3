package model

import (
	"strings"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
)

// Moods is the fixed palette a journal entry may carry.
var Moods = []string{"😊", "😐", "😔", "😡", "🥳", "😴"}

const DefaultMood = "😐"

const MaxJournalSubjectLength = 200

type JournalEntry struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Subject   string   `json:"subject"`
	Content   string   `json:"content"`
	Mood      string   `json:"mood"`
	Images    []string `json:"images"`
	Date      string   `json:"date"`
	Timestamp int64    `json:"timestamp"`
}

func (j *JournalEntry) RecordID() string      { return j.ID }
func (j *JournalEntry) SetRecordID(id string) { j.ID = id }
func (j *JournalEntry) SetOwner(owner string) { j.UserID = owner }
func (j *JournalEntry) Owner() string         { return j.UserID }

func (j *JournalEntry) Normalize(now time.Time) {
	j.Subject = strings.TrimSpace(j.Subject)
	j.Mood = strings.TrimSpace(j.Mood)
	if j.Mood == "" {
		j.Mood = DefaultMood
	}
	j.Images = emptyIfNil(j.Images)
	if j.Date == "" {
		j.Date = today(now)
	}
	if j.Timestamp == 0 {
		j.Timestamp = now.UnixMilli()
	}
}

func (j *JournalEntry) Validate() error {
	if len(j.Subject) > MaxJournalSubjectLength {
		return apperror.ValidationFailed("subject", "subject is too long")
	}
	if strings.TrimSpace(j.Content) == "" {
		return apperror.ValidationFailed("content", "content is required")
	}
	if !oneOf(j.Mood, Moods) {
		return apperror.ValidationFailed("mood", "mood must be one of "+strings.Join(Moods, " "))
	}
	if err := validImages(j.Images); err != nil {
		return err
	}
	return validDate("date", j.Date, true)
}

func (j *JournalEntry) Values() []any {
	return []any{j.Subject, j.Content, j.Mood, j.Images, j.Date, j.Timestamp}
}

func (j *JournalEntry) Targets() []any {
	return []any{&j.Subject, &j.Content, &j.Mood, &j.Images, &j.Date, &j.Timestamp}
}
