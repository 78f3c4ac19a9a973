package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/mock"
	hslog "github.com/fwojciec/harvest/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingAuditLog_AppendLog(t *testing.T) {
	t.Parallel()

	entry := func() *harvest.AuditEntry {
		return &harvest.AuditEntry{RunID: "run-1", Vertical: "jobs", Ref: "123", Status: harvest.StatusCreated}
	}

	t.Run("logs appends at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.AuditLog{
			AppendLogFn: func(_ context.Context, e *harvest.AuditEntry) error {
				e.ID = "entry-1"
				return nil
			},
		}

		err := hslog.NewLoggingAuditLog(inner, logger).AppendLog(context.Background(), entry())

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=DEBUG")
		assert.Contains(t, output, "msg=\"audit append\"")
		assert.Contains(t, output, "status=created")
		assert.Contains(t, output, "id=entry-1")
	})

	t.Run("logs failures at error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.AuditLog{
			AppendLogFn: func(context.Context, *harvest.AuditEntry) error {
				return errors.New("disk full")
			},
		}

		err := hslog.NewLoggingAuditLog(inner, logger).AppendLog(context.Background(), entry())

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "run_id=run-1")
		assert.Contains(t, output, "ref=123")
		assert.Contains(t, output, "err=\"disk full\"")
	})

	t.Run("reads are silent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.AuditLog{
			FindLogsFn: func(context.Context, harvest.AuditFilter) ([]*harvest.AuditEntry, error) {
				return []*harvest.AuditEntry{entry()}, nil
			},
		}

		logs, err := hslog.NewLoggingAuditLog(inner, logger).FindLogs(context.Background(), harvest.AuditFilter{})

		require.NoError(t, err)
		assert.Len(t, logs, 1)
		assert.Empty(t, buf.String())
	})
}
