package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/harvest"
)

var _ harvest.AuditLog = (*LoggingAuditLog)(nil)

// LoggingAuditLog wraps an AuditLog. Appends are logged at debug, failed
// appends at error; reads pass through.
type LoggingAuditLog struct {
	next   harvest.AuditLog
	logger *slog.Logger
}

// NewLoggingAuditLog creates a new LoggingAuditLog.
func NewLoggingAuditLog(next harvest.AuditLog, logger *slog.Logger) *LoggingAuditLog {
	return &LoggingAuditLog{next: next, logger: logger}
}

func (l *LoggingAuditLog) AppendLog(ctx context.Context, entry *harvest.AuditEntry) error {
	err := l.next.AppendLog(ctx, entry)
	if err != nil {
		l.logger.Error("audit append",
			"run_id", entry.RunID,
			"vertical", entry.Vertical,
			"ref", entry.Ref,
			"status", entry.Status,
			"err", err,
		)
		return err
	}
	l.logger.Debug("audit append",
		"run_id", entry.RunID,
		"vertical", entry.Vertical,
		"ref", entry.Ref,
		"status", entry.Status,
		"id", entry.ID,
	)
	return nil
}

func (l *LoggingAuditLog) FindLogs(ctx context.Context, filter harvest.AuditFilter) ([]*harvest.AuditEntry, error) {
	return l.next.FindLogs(ctx, filter)
}
