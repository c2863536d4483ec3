package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
)

// DateLayout is the calendar-date format used by every date field.
const DateLayout = "2006-01-02"

// Record is implemented by every collection item.
//
// Values and Targets expose the non-key fields in column order so the store
// can bind and scan them without reflection. The order must match the
// field schema registered for the record's collection.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	SetOwner(owner string)
	Owner() string

	// Normalize trims input and fills server-side defaults.
	Normalize(now time.Time)
	Validate() error

	Values() []any
	Targets() []any
}

func validDate(field, value string, required bool) error {
	if value == "" {
		if required {
			return apperror.ValidationFailed(field, field+" is required")
		}
		return nil
	}
	if !IsDate(value) {
		return apperror.ValidationFailed(field, field+" must be a YYYY-MM-DD date")
	}
	return nil
}

// IsDate reports whether s is a valid YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func requireText(field, value string, max int) error {
	if value == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len(value) > max {
		return apperror.ValidationFailed(field, field+" is too long")
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func today(now time.Time) string {
	return now.Format(DateLayout)
}

// emptyIfNil keeps list columns encoding as [] rather than null. Entries
// are stored exactly as sent.
func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func validImages(images []string) error {
	for i, img := range images {
		if strings.TrimSpace(img) == "" {
			return apperror.ValidationFailed("images", fmt.Sprintf("images[%d] is empty", i))
		}
	}
	return nil
}
