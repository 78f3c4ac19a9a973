package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ harvest.AuditLog = (*AuditLog)(nil)

// AuditLog implements harvest.AuditLog using PostgreSQL.
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
		entry.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	_, err := l.db.pool.Exec(ctx, `
		INSERT INTO audit_log (id, run_id, created_at, vertical, category, subcategory, start_url, ref, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.RunID, entry.CreatedAt, entry.Vertical, entry.Category, entry.Subcategory,
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
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	query.WriteString(`SELECT id, run_id, created_at, vertical, category, subcategory, start_url, ref, status, message
		FROM audit_log WHERE true`)

	if filter.RunID != nil {
		query.WriteString(" AND run_id = " + arg(*filter.RunID))
	}
	if filter.Vertical != nil {
		query.WriteString(" AND vertical = " + arg(*filter.Vertical))
	}
	if filter.Ref != nil {
		query.WriteString(" AND ref = " + arg(*filter.Ref))
	}
	if filter.Status != nil {
		query.WriteString(" AND status = " + arg(string(*filter.Status)))
	}

	query.WriteString(" ORDER BY seq")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		query.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := l.db.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*harvest.AuditEntry
	for rows.Next() {
		var e harvest.AuditEntry
		var status string
		if err := rows.Scan(&e.ID, &e.RunID, &e.CreatedAt, &e.Vertical, &e.Category, &e.Subcategory,
			&e.StartURL, &e.Ref, &status, &e.Message); err != nil {
			return nil, err
		}
		e.Status = harvest.Status(status)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
