package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestRecordService(repo *fakeRecordRepo) *RecordService {
	svc := NewRecordService(repo, 10, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreate_NormalizesAndOverwritesOwner(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)

	rec, err := svc.Create(context.Background(), "alice", collection.Tasks, &model.Task{
		UserID:   "mallory",
		Name:     "  Read  ",
		Category: "Habit",
	})
	require.NoError(t, err)

	task := rec.(*model.Task)
	assert.Equal(t, "alice", task.UserID)
	assert.Equal(t, "Read", task.Name)
	assert.Equal(t, model.CategoryHabit, task.Category)
	assert.Equal(t, model.TaskTypeOther, task.Type)
	assert.Equal(t, "2026-03-14", task.StartDate)
	assert.NotEmpty(t, task.ID)
}

func TestCreate_ValidationStopsBeforeStore(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)

	tests := []struct {
		name string
		kind collection.Kind
		rec  model.Record
	}{
		{"task without name", collection.Tasks, &model.Task{Category: "habit"}},
		{"expense with bad category", collection.Expenses, &model.Expense{Amount: 5, Category: "Yachts"}},
		{"negative expense", collection.Expenses, &model.Expense{Amount: -1, Category: "Food"}},
		{"journal with unknown mood", collection.Journal, &model.JournalEntry{Content: "x", Mood: "🤖"}},
		{"log without task", collection.Logs, &model.TaskLog{}},
		{"id with slash", collection.Todos, &model.Todo{ID: "a/b", Text: "x"}},
		{"wrong kind", collection.Todos, &model.Task{Name: "x", Category: "habit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "alice", tt.kind, tt.rec)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
	assert.Empty(t, repo.data)
}

func TestCreate_RequiresOwner(t *testing.T) {
	svc := newTestRecordService(newFakeRecordRepo())

	_, err := svc.Create(context.Background(), "", collection.Todos, &model.Todo{Text: "x"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestCreate_CompletedLogAwardsPoints(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", collection.Logs, &model.TaskLog{TaskID: "t1", Completed: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", collection.Logs, &model.TaskLog{TaskID: "t1", Date: "2026-03-13"})
	require.NoError(t, err)

	assert.Equal(t, int64(10), repo.awarded["alice"])
}

func TestReplace_CompletingLogAwardsPoints(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", collection.Logs, &model.TaskLog{ID: "l1", TaskID: "t1", Date: "2026-03-13"})
	require.NoError(t, err)
	assert.Zero(t, repo.awarded["alice"])

	_, err = svc.Replace(ctx, "alice", collection.Logs, "l1",
		&model.TaskLog{TaskID: "t1", Date: "2026-03-13", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.awarded["alice"])

	// Already completed: saving it again earns nothing.
	_, err = svc.Replace(ctx, "alice", collection.Logs, "l1",
		&model.TaskLog{TaskID: "t1", Date: "2026-03-13", Completed: true, Remark: "edited"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.awarded["alice"])
}

func TestCreate_DuplicateIDConflict(t *testing.T) {
	svc := newTestRecordService(newFakeRecordRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", collection.Todos, &model.Todo{ID: "d1", Text: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", collection.Todos, &model.Todo{ID: "d1", Text: "b"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestReplace(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", collection.Expenses, &model.Expense{ID: "e1", Amount: 5, Category: "Food"})
	require.NoError(t, err)

	rec, err := svc.Replace(ctx, "alice", collection.Expenses, "e1",
		&model.Expense{ID: "ignored", Amount: 7.25, Category: "Travel", Date: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "e1", rec.RecordID(), "path id wins")

	got, err := svc.Get(ctx, "alice", collection.Expenses, "e1")
	require.NoError(t, err)
	assert.Equal(t, 7.25, got.(*model.Expense).Amount)

	_, err = svc.Replace(ctx, "bob", collection.Expenses, "e1",
		&model.Expense{Amount: 1, Category: "Food"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newTestRecordService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", collection.Todos, &model.Todo{ID: "d1", Text: "a"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", collection.Todos, "d1"))
	require.NoError(t, svc.Delete(ctx, "alice", collection.Todos, "d1"), "delete is idempotent")

	list, err := svc.List(ctx, "alice", collection.Todos)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.Delete(ctx, "alice", collection.Todos, ""), apperror.ErrValidation)
}
