// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services depend on the repository interfaces, never on sqlstore, so the
// tests run against in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

const MaxIDLength = 64

// RecordService is the generic CRUD layer over every registered collection.
// The owner always comes from the authenticated identity; whatever owner a
// request body claims is overwritten.
type RecordService struct {
	records             repository.RecordRepository
	pointsPerCompletion int64
	logger              *slog.Logger
	now                 func() time.Time
}

func NewRecordService(records repository.RecordRepository, pointsPerCompletion int64, logger *slog.Logger) *RecordService {
	return &RecordService{
		records:             records,
		pointsPerCompletion: pointsPerCompletion,
		logger:              logger,
		now:                 time.Now,
	}
}

// Create validates rec and stores it under owner. A caller-supplied id is
// kept; an id already used by this owner in this collection is a Conflict.
//
// Inserting a completed log earns the owner points in the same transaction.
func (s *RecordService) Create(ctx context.Context, owner string, kind collection.Kind, rec model.Record) (model.Record, error) {
	if err := s.prepare(owner, kind, rec); err != nil {
		return nil, err
	}

	var award int64
	if log, ok := rec.(*model.TaskLog); ok && log.Completed {
		award = s.pointsPerCompletion
	}

	if err := s.records.Insert(ctx, owner, kind, rec, award); err != nil {
		return nil, fmt.Errorf("service/record: creating %s: %w", kind, err)
	}

	s.logger.Info("record created",
		slog.String("collection", kind.String()),
		slog.String("id", rec.RecordID()),
		slog.String("userID", owner),
	)
	return rec, nil
}

// Replace overwrites the record at id with rec. The id in the path wins
// over any id in the body.
//
// Turning a log from open to completed earns the same points as creating
// it completed. Deleting a completed log keeps its points, so deleting and
// recreating it earns them again.
func (s *RecordService) Replace(ctx context.Context, owner string, kind collection.Kind, id string, rec model.Record) (model.Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	rec.SetRecordID(id)
	if err := s.prepare(owner, kind, rec); err != nil {
		return nil, err
	}

	var award repository.AwardFunc
	if log, ok := rec.(*model.TaskLog); ok && log.Completed && s.pointsPerCompletion > 0 {
		award = func(prev model.Record) int64 {
			if p, ok := prev.(*model.TaskLog); ok && !p.Completed {
				return s.pointsPerCompletion
			}
			return 0
		}
	}

	if err := s.records.Replace(ctx, owner, kind, rec, award); err != nil {
		return nil, fmt.Errorf("service/record: replacing %s %s: %w", kind, id, err)
	}

	s.logger.Info("record replaced",
		slog.String("collection", kind.String()),
		slog.String("id", id),
		slog.String("userID", owner),
	)
	return rec, nil
}

// Delete removes the record if it exists. Deleting a task also deletes its
// logs.
func (s *RecordService) Delete(ctx context.Context, owner string, kind collection.Kind, id string) error {
	if owner == "" {
		return apperror.Unauthorized("no user in request")
	}
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.records.Delete(ctx, owner, kind, id); err != nil {
		return fmt.Errorf("service/record: deleting %s %s: %w", kind, id, err)
	}

	s.logger.Info("record deleted",
		slog.String("collection", kind.String()),
		slog.String("id", id),
		slog.String("userID", owner),
	)
	return nil
}

func (s *RecordService) Get(ctx context.Context, owner string, kind collection.Kind, id string) (model.Record, error) {
	if owner == "" {
		return nil, apperror.Unauthorized("no user in request")
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	rec, err := s.records.Get(ctx, owner, kind, id)
	if err != nil {
		return nil, fmt.Errorf("service/record: getting %s %s: %w", kind, id, err)
	}
	return rec, nil
}

func (s *RecordService) List(ctx context.Context, owner string, kind collection.Kind) ([]model.Record, error) {
	if owner == "" {
		return nil, apperror.Unauthorized("no user in request")
	}
	recs, err := s.records.List(ctx, owner, kind)
	if err != nil {
		return nil, fmt.Errorf("service/record: listing %s: %w", kind, err)
	}
	return recs, nil
}

func (s *RecordService) prepare(owner string, kind collection.Kind, rec model.Record) error {
	if owner == "" {
		return apperror.Unauthorized("no user in request")
	}
	if rec == nil {
		return apperror.ValidationFailed("", "record body is required")
	}
	if k, ok := collection.Of(rec); !ok || k != kind {
		return apperror.ValidationFailed("", "record does not belong to "+kind.String())
	}
	rec.SetRecordID(strings.TrimSpace(rec.RecordID()))
	if id := rec.RecordID(); id != "" {
		if err := validateID(id); err != nil {
			return err
		}
	}
	rec.SetOwner(owner)
	rec.Normalize(s.now())
	return rec.Validate()
}

func validateID(id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "id is required")
	}
	if len(id) > MaxIDLength || strings.ContainsAny(id, "/?#") {
		return apperror.ValidationFailed("id", "id is malformed")
	}
	return nil
}
