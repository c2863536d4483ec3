package model

import (
	"strings"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
)

var ExpenseCategories = []string{
	"Food", "Travel", "Shopping", "Bills", "Health", "Entertainment", "Other",
}

type Expense struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (e *Expense) RecordID() string      { return e.ID }
func (e *Expense) SetRecordID(id string) { e.ID = id }
func (e *Expense) SetOwner(owner string) { e.UserID = owner }
func (e *Expense) Owner() string         { return e.UserID }

func (e *Expense) Normalize(now time.Time) {
	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	if e.Date == "" {
		e.Date = today(now)
	}
}

func (e *Expense) Validate() error {
	if !validAmount(e.Amount) {
		return apperror.ValidationFailed("amount", "amount must be a non-negative number")
	}
	if !oneOf(e.Category, ExpenseCategories) {
		return apperror.ValidationFailed("category", "unknown expense category "+e.Category)
	}
	return validDate("date", e.Date, true)
}

func (e *Expense) Values() []any {
	return []any{e.Amount, e.Category, e.Description, e.Date}
}

func (e *Expense) Targets() []any {
	return []any{&e.Amount, &e.Category, &e.Description, &e.Date}
}
