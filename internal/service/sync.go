package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/collection"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

// SyncService builds the snapshot the client reconciles against.
type SyncService struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func NewSyncService(records repository.RecordRepository, logger *slog.Logger) *SyncService {
	return &SyncService{records: records, logger: logger}
}

// Snapshot lists every collection for owner concurrently. If any list
// fails the whole snapshot fails; a partial snapshot would let the client
// conclude that records were deleted.
func (s *SyncService) Snapshot(ctx context.Context, owner string) (model.Snapshot, error) {
	if owner == "" {
		return model.Snapshot{}, apperror.Unauthorized("no user in request")
	}

	kinds := collection.All()
	results := make([][]model.Record, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			recs, err := s.records.List(gctx, owner, k)
			if err != nil {
				return fmt.Errorf("listing %s: %w", k, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("snapshot failed",
			slog.String("userID", owner),
			slog.String("error", err.Error()),
		)
		return model.Snapshot{}, fmt.Errorf("service/sync: %w", err)
	}

	snap := model.NewSnapshot()
	for _, recs := range results {
		for _, rec := range recs {
			snap.Add(rec)
		}
	}

	s.logger.Debug("snapshot served",
		slog.String("userID", owner),
		slog.Int("records", snap.Len()),
	)
	return snap, nil
}
