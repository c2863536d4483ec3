// Package repository declares the storage interfaces the services depend on.
//
// Every record method takes the owner id explicitly; implementations must
// apply it in the query itself rather than filtering rows afterwards.
package repository

import (
	"context"
	"time"

	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByLogin matches username or email, case-insensitively.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	Update(ctx context.Context, user *model.User) error
}

// AwardFunc decides how many points a replace earns, given the record it
// overwrites.
type AwardFunc func(prev model.Record) int64

type RecordRepository interface {
	// Insert stores rec for owner. When award > 0 the owner's points are
	// raised by award in the same transaction.
	Insert(ctx context.Context, owner string, kind collection.Kind, rec model.Record, award int64) error
	// Replace overwrites an existing record. When award is non-nil it is
	// given the stored record and the points it returns are added to the
	// owner in the same transaction.
	Replace(ctx context.Context, owner string, kind collection.Kind, rec model.Record, award AwardFunc) error
	// Delete is idempotent; it also removes cascaded children.
	Delete(ctx context.Context, owner string, kind collection.Kind, id string) error
	Get(ctx context.Context, owner string, kind collection.Kind, id string) (model.Record, error)
	List(ctx context.Context, owner string, kind collection.Kind) ([]model.Record, error)
	// Reset removes every record the owner has and zeroes their points,
	// atomically.
	Reset(ctx context.Context, owner string) error
}

// IdempotencyStatus values.
const (
	IdempotencyPending   = "pending"
	IdempotencyCompleted = "completed"
)

type IdempotencyRecord struct {
	OwnerID     string    `db:"owner_id"`
	Key         string    `db:"idem_key"`
	RequestHash string    `db:"request_hash"`
	Status      string    `db:"status"`
	StatusCode  int       `db:"status_code"`
	Response    []byte    `db:"response"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

type IdempotencyRepository interface {
	// Reserve inserts a pending record. It returns apperror.ErrConflict
	// when (owner, key) already exists.
	Reserve(ctx context.Context, rec *IdempotencyRecord) error
	Get(ctx context.Context, owner, key string) (*IdempotencyRecord, error)
	Complete(ctx context.Context, owner, key string, statusCode int, response []byte) error
	Release(ctx context.Context, owner, key string) error
	// Purge drops every record that expired before now.
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// Pinger is satisfied by anything whose health the /health route reports.
type Pinger interface {
	Ping(ctx context.Context) error
}
