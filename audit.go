package harvest

import (
	"context"
	"time"
)

// AuditEntry is one append-only record of an ingestion outcome.
type AuditEntry struct {
	ID          string
	RunID       string
	CreatedAt   time.Time
	Vertical    string
	Category    string
	Subcategory string
	StartURL    string
	Ref         string
	Status      Status
	Message     string
}

// Validate returns an error if the entry is missing required fields.
func (e *AuditEntry) Validate() error {
	if e.RunID == "" {
		return Errorf(EINVALID, "audit entry run ID required")
	}
	if e.Status == "" {
		return Errorf(EINVALID, "audit entry status required")
	}
	return nil
}

// AuditFilter selects audit entries.
type AuditFilter struct {
	RunID    *string
	Vertical *string
	Ref      *string
	Status   *Status

	Limit  int
	Offset int
}

// AuditLog stores audit entries. Entries are never updated or deleted.
type AuditLog interface {
	// AppendLog assigns an ID and CreatedAt when unset and stores the entry.
	AppendLog(ctx context.Context, entry *AuditEntry) error

	// FindLogs returns entries oldest first.
	FindLogs(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}
