package mock

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.EntityStore = (*EntityStore)(nil)

// EntityStore is a mock implementation of harvest.EntityStore.
type EntityStore struct {
	FindEntityFn   func(ctx context.Context, vertical, ref string) (*harvest.Entity, error)
	FindEntitiesFn func(ctx context.Context, filter harvest.EntityFilter) ([]*harvest.Entity, error)
	UpsertFn       func(ctx context.Context, in harvest.UpsertInput) (*harvest.UpsertResult, error)
	SetImageURLFn  func(ctx context.Context, vertical, ref, url string) error
	MarkErrorFn    func(ctx context.Context, vertical, ref, runID, message string, now time.Time) error
}

func (s *EntityStore) FindEntity(ctx context.Context, vertical, ref string) (*harvest.Entity, error) {
	return s.FindEntityFn(ctx, vertical, ref)
}

func (s *EntityStore) FindEntities(ctx context.Context, filter harvest.EntityFilter) ([]*harvest.Entity, error) {
	return s.FindEntitiesFn(ctx, filter)
}

func (s *EntityStore) Upsert(ctx context.Context, in harvest.UpsertInput) (*harvest.UpsertResult, error) {
	return s.UpsertFn(ctx, in)
}

func (s *EntityStore) SetImageURL(ctx context.Context, vertical, ref, url string) error {
	return s.SetImageURLFn(ctx, vertical, ref, url)
}

func (s *EntityStore) MarkError(ctx context.Context, vertical, ref, runID, message string, now time.Time) error {
	return s.MarkErrorFn(ctx, vertical, ref, runID, message, now)
}

var _ harvest.AuditLog = (*AuditLog)(nil)

// AuditLog is a mock implementation of harvest.AuditLog.
type AuditLog struct {
	AppendLogFn func(ctx context.Context, entry *harvest.AuditEntry) error
	FindLogsFn  func(ctx context.Context, filter harvest.AuditFilter) ([]*harvest.AuditEntry, error)
}

func (l *AuditLog) AppendLog(ctx context.Context, entry *harvest.AuditEntry) error {
	return l.AppendLogFn(ctx, entry)
}

func (l *AuditLog) FindLogs(ctx context.Context, filter harvest.AuditFilter) ([]*harvest.AuditEntry, error) {
	return l.FindLogsFn(ctx, filter)
}
