package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

const testSecret = "test-secret-at-least-16-chars!!"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.Points = 0
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetByLogin(_ context.Context, login string) (*model.User, error) {
	return f.find(func(u *model.User) bool {
		return strings.EqualFold(u.Username, login) || (u.Email != "" && strings.EqualFold(u.Email, login))
	}, login)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GitHubID != nil && *u.GitHubID == githubID },
		fmt.Sprint(githubID))
}

func (f *fakeUserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := f.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) }, username)
	return err == nil, nil
}

func (f *fakeUserRepo) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	_, err := f.find(func(u *model.User) bool {
		return u.ID != exceptID && u.Email != "" && strings.EqualFold(u.Email, email)
	}, email)
	return err == nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

// fakeRecordRepo is an in-memory repository.RecordRepository keyed by
// owner, kind and id.
type fakeRecordRepo struct {
	mu      sync.Mutex
	data    map[string]model.Record
	awarded map[string]int64
	resets  []string
	// failList makes List fail for one kind.
	failList  *collection.Kind
	insertErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{data: make(map[string]model.Record), awarded: make(map[string]int64)}
}

func recordKey(owner string, kind collection.Kind, id string) string {
	return owner + "/" + kind.String() + "/" + id
}

func (f *fakeRecordRepo) Insert(_ context.Context, owner string, kind collection.Kind, rec model.Record, award int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if rec.RecordID() == "" {
		rec.SetRecordID(fmt.Sprintf("gen-%d", len(f.data)+1))
	}
	key := recordKey(owner, kind, rec.RecordID())
	if _, ok := f.data[key]; ok {
		return apperror.Conflict(kind.String(), rec.RecordID())
	}
	rec.SetOwner(owner)
	f.data[key] = rec
	f.awarded[owner] += award
	return nil
}

func (f *fakeRecordRepo) Replace(_ context.Context, owner string, kind collection.Kind, rec model.Record, award repository.AwardFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(owner, kind, rec.RecordID())
	prev, ok := f.data[key]
	if !ok {
		return apperror.NotFound(kind.String(), rec.RecordID())
	}
	if award != nil {
		f.awarded[owner] += award(prev)
	}
	f.data[key] = rec
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, owner string, kind collection.Kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, recordKey(owner, kind, id))
	return nil
}

func (f *fakeRecordRepo) Get(_ context.Context, owner string, kind collection.Kind, id string) (model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data[recordKey(owner, kind, id)]
	if !ok {
		return nil, apperror.NotFound(kind.String(), id)
	}
	return rec, nil
}

func (f *fakeRecordRepo) List(_ context.Context, owner string, kind collection.Kind) ([]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil && *f.failList == kind {
		return nil, fmt.Errorf("disk on fire while listing %s", kind)
	}
	prefix := owner + "/" + kind.String() + "/"
	out := []model.Record{}
	for key, rec := range f.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Reset(_ context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.data {
		if strings.HasPrefix(key, owner+"/") {
			delete(f.data, key)
		}
	}
	f.awarded[owner] = 0
	f.resets = append(f.resets, owner)
	return nil
}
