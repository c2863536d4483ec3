package client

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
)

// Store mirrors the signed-in user's data. Writes go to the server and are
// followed by a full Refresh; the store never patches its snapshot locally,
// so what it holds is always something the server returned.
//
// When a refresh fails the previous snapshot is kept and the store reports
// itself Stale until a later refresh succeeds. A 401 clears everything.
//
// Refreshes may overlap. Each one takes a generation number when it starts,
// and a result older than the one already applied is dropped.
type Store struct {
	client *Client
	newID  func() string

	mu          sync.RWMutex
	issued      uint64
	applied     uint64
	snap        model.Snapshot
	stale       bool
	lastErr     error
	refreshedAt time.Time
	listeners   []func(model.Snapshot)
}

func NewStore(c *Client) *Store {
	return &Store{
		client: c,
		newID:  uuid.NewString,
		snap:   model.NewSnapshot(),
	}
}

// Snapshot returns the current mirror. Treat it as read-only: it shares
// backing arrays with the store until the next refresh replaces them.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Stale reports whether the last refresh failed.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// OnChange registers fn to run after every successful refresh.
func (s *Store) OnChange(fn func(model.Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Refresh replaces the mirror with a fresh snapshot from the server. If a
// refresh started later has already finished, this one changes nothing.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.mu.Unlock()

	snap, err := s.client.Snapshot(ctx)

	s.mu.Lock()
	if gen < s.applied {
		s.mu.Unlock()
		return err
	}
	s.applied = gen
	if err != nil {
		s.lastErr = err
		if IsUnauthorized(err) {
			s.snap = model.NewSnapshot()
			s.stale = false
		} else {
			s.stale = true
		}
		s.mu.Unlock()
		return err
	}
	s.snap = snap
	s.stale = false
	s.lastErr = nil
	s.refreshedAt = time.Now()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

// Add creates rec on the server, then refreshes. A record without an id
// gets a fresh UUID, which also serves as the Idempotency-Key so a retried
// Add cannot create a duplicate.
//
// The returned error is the write's. A failed refresh after a successful
// write only marks the store Stale.
func (s *Store) Add(ctx context.Context, rec model.Record) error {
	kind, ok := collection.Of(rec)
	if !ok {
		return fmt.Errorf("client: %T is not a collection record", rec)
	}
	if rec.RecordID() == "" {
		rec.SetRecordID(s.newID())
	}
	if err := s.client.Create(ctx, kind.String(), rec, "create-"+kind.String()+"-"+rec.RecordID()); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// Update replaces the stored record with rec, then refreshes.
func (s *Store) Update(ctx context.Context, rec model.Record) error {
	kind, ok := collection.Of(rec)
	if !ok {
		return fmt.Errorf("client: %T is not a collection record", rec)
	}
	if err := s.client.Replace(ctx, kind.String(), rec.RecordID(), rec); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// Remove deletes a record, then refreshes. Removing a task also removes
// its logs on the server; the refresh brings that into the mirror.
func (s *Store) Remove(ctx context.Context, kind collection.Kind, id string) error {
	if err := s.client.Delete(ctx, kind.String(), id); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// Reset wipes the user's data on the server, then refreshes.
func (s *Store) Reset(ctx context.Context, secretKeyAnswer string) error {
	if err := s.client.ResetData(ctx, secretKeyAnswer); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// Clear forgets the mirror, e.g. on logout. Refreshes still in flight are
// dropped when they finish.
func (s *Store) Clear() {
	s.mu.Lock()
	s.applied = s.issued
	s.snap = model.NewSnapshot()
	s.stale = false
	s.lastErr = nil
	s.refreshedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Store) refreshAfterWrite(ctx context.Context) {
	// The error is kept in LastError and surfaces through Stale.
	_ = s.Refresh(ctx)
}
