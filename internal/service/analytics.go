package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/model"
)

const (
	DefaultAnalyticsDays = 7
	MaxAnalyticsDays     = 366
)

// AnalyticsService derives the analytics view from a snapshot.
type AnalyticsService struct {
	sync  *SyncService
	users *UserService
	now   func() time.Time
}

func NewAnalyticsService(sync *SyncService, users *UserService) *AnalyticsService {
	return &AnalyticsService{sync: sync, users: users, now: time.Now}
}

// Report covers the last days days ending today (server time). days <= 0
// means DefaultAnalyticsDays.
func (s *AnalyticsService) Report(ctx context.Context, owner string, days int) (*model.Analytics, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	if days > MaxAnalyticsDays {
		return nil, apperror.ValidationFailed("days", fmt.Sprintf("days must be at most %d", MaxAnalyticsDays))
	}

	user, err := s.users.Me(ctx, owner)
	if err != nil {
		return nil, err
	}
	snap, err := s.sync.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}

	a := Analyze(snap, s.now(), days)
	a.Points = user.Points
	return &a, nil
}

// Analyze is the pure part of Report. The activity window is the days
// calendar dates ending at today; totals cover the whole snapshot.
func Analyze(snap model.Snapshot, today time.Time, days int) model.Analytics {
	end := today.Format(model.DateLayout)
	start := today.AddDate(0, 0, -(days - 1)).Format(model.DateLayout)

	activity := make([]model.DayActivity, days)
	index := make(map[string]int, days)
	for i := range days {
		date := today.AddDate(0, 0, i-(days-1)).Format(model.DateLayout)
		activity[i] = model.DayActivity{Date: date}
		index[date] = i
	}

	a := model.Analytics{From: start, To: end, Activity: activity}

	taskType := make(map[string]string, len(snap.Tasks))
	for _, t := range snap.Tasks {
		taskType[t.ID] = t.Type
		a.Totals.Tasks++
		switch t.Category {
		case model.CategoryHabit:
			a.Totals.Habits++
		case model.CategoryGoal:
			a.Totals.Goals++
		}
	}

	logsByType := make(map[string]int)
	for _, l := range snap.Logs {
		if typ, ok := taskType[l.TaskID]; ok {
			logsByType[typ]++
		}
		if !l.Completed {
			continue
		}
		a.Totals.Completions++
		if i, ok := index[l.Date]; ok {
			activity[i].Completed++
		}
	}

	for _, e := range snap.Expenses {
		a.Totals.Spent += e.Amount
		if i, ok := index[e.Date]; ok {
			activity[i].Spent += e.Amount
		}
	}

	for _, td := range snap.Todos {
		if !td.Completed {
			a.Totals.OpenTodos++
		}
	}
	a.Totals.JournalEntries = len(snap.Journal)

	a.FocusAreas = []model.FocusArea{}
	for _, typ := range model.TaskTypes {
		if n := logsByType[typ]; n > 0 {
			a.FocusAreas = append(a.FocusAreas, model.FocusArea{Type: typ, Logs: n})
		}
	}
	return a
}
