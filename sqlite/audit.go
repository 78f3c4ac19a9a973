package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ harvest.AuditLog = (*AuditLog)(nil)

// AuditLog implements harvest.AuditLog using SQLite.
type AuditLog struct {
	db *DB
}

// NewAuditLog creates a new AuditLog.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// AppendLog stores entry, assigning an ID and CreatedAt when unset.
func (l *AuditLog) AppendLog(ctx context.Context, entry *harvest.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, run_id, created_at, vertical, category, subcategory, start_url, ref, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.RunID, formatTime(entry.CreatedAt), entry.Vertical, entry.Category, entry.Subcategory,
		entry.StartURL, entry.Ref, string(entry.Status), entry.Message)
	if err != nil {
		return harvest.WrapError(harvest.ESTORE, err, "append audit entry for run %s", entry.RunID)
	}
	return nil
}

// FindLogs retrieves entries matching the filter in insertion order.
func (l *AuditLog) FindLogs(ctx context.Context, filter harvest.AuditFilter) ([]*harvest.AuditEntry, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, run_id, created_at, vertical, category, subcategory, start_url, ref, status, message
		FROM audit_log WHERE 1=1`)

	if filter.RunID != nil {
		query.WriteString(" AND run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.Vertical != nil {
		query.WriteString(" AND vertical = ?")
		args = append(args, *filter.Vertical)
	}
	if filter.Ref != nil {
		query.WriteString(" AND ref = ?")
		args = append(args, *filter.Ref)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY seq")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*harvest.AuditEntry
	for rows.Next() {
		var e harvest.AuditEntry
		var createdAt, status string
		if err := rows.Scan(&e.ID, &e.RunID, &createdAt, &e.Vertical, &e.Category, &e.Subcategory,
			&e.StartURL, &e.Ref, &status, &e.Message); err != nil {
			return nil, err
		}
		e.Status = harvest.Status(status)
		if e.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
