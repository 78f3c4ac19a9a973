package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.EntityStore = (*LoggingEntityStore)(nil)

// LoggingEntityStore wraps an EntityStore and logs its writes. Reads pass
// through silently.
type LoggingEntityStore struct {
	next   harvest.EntityStore
	logger *slog.Logger
}

// NewLoggingEntityStore creates a new LoggingEntityStore.
func NewLoggingEntityStore(next harvest.EntityStore, logger *slog.Logger) *LoggingEntityStore {
	return &LoggingEntityStore{next: next, logger: logger}
}

func (s *LoggingEntityStore) FindEntity(ctx context.Context, vertical, ref string) (*harvest.Entity, error) {
	return s.next.FindEntity(ctx, vertical, ref)
}

func (s *LoggingEntityStore) FindEntities(ctx context.Context, filter harvest.EntityFilter) ([]*harvest.Entity, error) {
	return s.next.FindEntities(ctx, filter)
}

// Upsert delegates to the wrapped store and logs the outcome.
func (s *LoggingEntityStore) Upsert(ctx context.Context, in harvest.UpsertInput) (res *harvest.UpsertResult, err error) {
	defer func(begin time.Time) {
		if err != nil {
			s.logger.Error("upsert",
				"vertical", in.Vertical,
				"ref", in.Ref,
				"run_id", in.RunID,
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		s.logger.Info("upsert",
			"vertical", in.Vertical,
			"ref", in.Ref,
			"run_id", in.RunID,
			"status", res.Status,
			"changed", len(res.ChangedFields),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return s.next.Upsert(ctx, in)
}

func (s *LoggingEntityStore) SetImageURL(ctx context.Context, vertical, ref, url string) (err error) {
	defer func() {
		s.logger.Info("set image url",
			"vertical", vertical,
			"ref", ref,
			"url", url,
			"err", err,
		)
	}()
	return s.next.SetImageURL(ctx, vertical, ref, url)
}

func (s *LoggingEntityStore) MarkError(ctx context.Context, vertical, ref, runID, message string, now time.Time) (err error) {
	defer func() {
		s.logger.Info("mark error",
			"vertical", vertical,
			"ref", ref,
			"run_id", runID,
			"message", message,
			"err", err,
		)
	}()
	return s.next.MarkError(ctx, vertical, ref, runID, message, now)
}
